package effects

import (
	"math"
	"testing"
)

func TestReverbEchoesAtDelay(t *testing.T) {
	const sr = 48000
	r := NewReverb(100, 0.6)
	lag := r.Lag(sr)
	if lag != 4800 {
		t.Fatalf("lag = %d, want 4800", lag)
	}

	buf := make([]float64, 4*lag+1)
	buf[0] = 1
	r.Apply(buf, sr)

	if buf[0] != 1 {
		t.Fatalf("dry sample = %f, want 1", buf[0])
	}
	// Each round trip multiplies by Mix*Decay; the first echo carries one
	// Decay from the write-back.
	want := 0.6
	for k := 1; k <= 4; k++ {
		if got := buf[k*lag]; math.Abs(got-want) > 1e-12 {
			t.Fatalf("echo %d = %f, want %f", k, got, want)
		}
		want *= 0.6
	}
	for i := 1; i < lag; i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %f between echoes", i, buf[i])
		}
	}
}

func TestReverbMixScalesEchoes(t *testing.T) {
	const sr = 1000
	r := NewReverb(10, 0.5)
	r.SetMix(0.5)
	buf := make([]float64, 21)
	buf[0] = 1
	r.Apply(buf, sr)
	if got := buf[10]; math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("first echo = %f, want mix*decay 0.25", got)
	}
	if got := buf[20]; math.Abs(got-0.0625) > 1e-12 {
		t.Fatalf("second echo = %f, want 0.0625", got)
	}
}

func TestReverbStateSpansCalls(t *testing.T) {
	const sr = 1000
	r := NewReverb(10, 0.5)
	first := make([]float64, 7)
	first[0] = 1
	r.Apply(first, sr)
	second := make([]float64, 7)
	r.Apply(second, sr)
	if got := second[3]; math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("echo across calls = %f, want 0.5", got)
	}
}

func TestReverbClampsDecay(t *testing.T) {
	r := NewReverb(100, 3)
	if r.Decay() >= 1 {
		t.Fatalf("decay = %f, want < 1", r.Decay())
	}
	r.SetDecay(math.NaN())
	if r.Decay() != 0 {
		t.Fatalf("NaN decay = %f", r.Decay())
	}
}

func TestReverbZeroSampleRate(t *testing.T) {
	r := NewReverb(100, 0.6)
	buf := []float64{1, 0, 0}
	r.Apply(buf, 0)
	for _, v := range buf {
		if math.IsNaN(v) {
			t.Fatal("NaN output")
		}
	}
}

func TestCompressSampleMonotonicAndBounded(t *testing.T) {
	prev := math.Inf(-1)
	for v := 0.0; v <= 35000; v += 10 {
		got, _ := CompressSample(v)
		if got < prev {
			t.Fatalf("not monotonic at %f: %f < %f", v, got, prev)
		}
		if got > 27000 {
			t.Fatalf("CompressSample(%f) = %f exceeds 27000", v, got)
		}
		neg, _ := CompressSample(-v)
		if neg != -got {
			t.Fatalf("asymmetric at %f: %f vs %f", v, neg, got)
		}
		prev = got
	}
}

func TestCompressSampleKnees(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{15000, 15000},
		{20000, 20000},
		{25000, 23500},
		{30000, 26000 + (27000-26000)*0.2},
		{-25000, -23500},
	}
	for _, tc := range cases {
		if got, clip := CompressSample(tc.in); math.Abs(got-tc.want) > 1e-9 || clip != NoClip {
			t.Errorf("CompressSample(%v) = %v, %v; want %v", tc.in, got, clip, tc.want)
		}
	}
}

func TestCompressSampleReportsClipping(t *testing.T) {
	if _, clip := CompressSample(1e6); clip != Overflow {
		t.Fatalf("clip = %v, want Overflow", clip)
	}
	if _, clip := CompressSample(-1e6); clip != Underflow {
		t.Fatalf("clip = %v, want Underflow", clip)
	}
}

func TestToInt16(t *testing.T) {
	cases := map[float64]int16{
		0:       0,
		1.9:     1,
		-1.9:    -1,
		40000:   32767,
		-40000:  -32768,
		32766.5: 32766,
	}
	for in, want := range cases {
		if got := ToInt16(in); got != want {
			t.Errorf("ToInt16(%v) = %d, want %d", in, got, want)
		}
	}
	if ToInt16(math.NaN()) != 0 {
		t.Error("NaN should map to 0")
	}
}

func TestReverbLagCappedAtBuffer(t *testing.T) {
	cases := []struct {
		name    string
		delayMs float64
		sr      int
		want    int
	}{
		{"short", 10, 1000, 10},
		{"max delay fits", 10000, 48000, BufferLength - 1},
		{"over buffer", 10000, 96000, BufferLength - 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReverb(tc.delayMs, 0.5)
			if got := r.Lag(tc.sr); got != tc.want {
				t.Fatalf("Lag(%d) = %d, want %d", tc.sr, got, tc.want)
			}
		})
	}
}

func TestReverbResetClearsTail(t *testing.T) {
	const sr = 1000
	r := NewReverb(10, 0.9)
	buf := make([]float64, 5)
	buf[0] = 1
	r.Apply(buf, sr)
	r.Reset()

	after := make([]float64, 40)
	r.Apply(after, sr)
	for i, v := range after {
		if v != 0 {
			t.Fatalf("sample %d = %f after Reset", i, v)
		}
	}
}
