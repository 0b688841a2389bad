package filter

import (
	"math"
	"testing"
)

func impulse(n int) []float64 {
	buf := make([]float64, n)
	buf[0] = 1
	return buf
}

func TestMoogImpulseIsBoundedAndDecays(t *testing.T) {
	for _, res := range []float64{0, 0.3, 0.6, 0.9} {
		f := NewMoog(48000, 2000)
		f.SetResonance(res)
		buf := impulse(10000)
		f.Apply(buf)
		var tail float64
		for i, v := range buf {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 10 {
				t.Fatalf("res %.1f: sample %d = %v", res, i, v)
			}
			if i >= 9000 {
				tail = math.Max(tail, math.Abs(v))
			}
		}
		if res <= 0.6 && tail > 1e-3 {
			t.Fatalf("res %.1f: tail peak %g did not decay", res, tail)
		}
	}
}

func TestMoogStateCarriesAcrossCalls(t *testing.T) {
	whole := NewMoog(48000, 1000)
	split := NewMoog(48000, 1000)

	a := impulse(512)
	whole.Apply(a)

	b := impulse(512)
	split.Apply(b[:100])
	split.Apply(b[100:])

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMoogPassesDC(t *testing.T) {
	f := NewMoog(48000, 1000)
	f.SetResonance(0)
	buf := make([]float64, 48000)
	for i := range buf {
		buf[i] = 1
	}
	f.Apply(buf)
	if got := buf[len(buf)-1]; math.Abs(got-1) > 0.05 {
		t.Fatalf("DC gain = %f, want ~1", got)
	}
}

func TestOnePoleSmoothsStep(t *testing.T) {
	f := NewOnePole(48000, 500)
	buf := make([]float64, 4800)
	for i := range buf {
		buf[i] = 1
	}
	f.Apply(buf)
	if buf[0] >= 1 || buf[0] <= 0 {
		t.Fatalf("first output = %f, want partial step", buf[0])
	}
	for i := 1; i < len(buf); i++ {
		if buf[i] < buf[i-1] {
			t.Fatalf("step response not monotonic at %d", i)
		}
	}
	if math.Abs(buf[len(buf)-1]-1) > 1e-3 {
		t.Fatalf("settled at %f", buf[len(buf)-1])
	}
}

func TestOnePoleIgnoresResonance(t *testing.T) {
	a := NewOnePole(48000, 800)
	b := NewOnePole(48000, 800)
	b.SetResonance(0.9)
	x := impulse(64)
	y := impulse(64)
	a.Apply(x)
	b.Apply(y)
	for i := range x {
		if x[i] != y[i] {
			t.Fatal("resonance changed one-pole output")
		}
	}
}

func TestResetClearsState(t *testing.T) {
	for _, kind := range []Kind{OnePole, Moog} {
		f := New(kind, 48000, 1000)
		f.Apply(impulse(16))
		f.Reset()
		buf := make([]float64, 16)
		f.Apply(buf)
		for i, v := range buf {
			if v != 0 {
				t.Fatalf("%s: sample %d = %v after reset", kind, i, v)
			}
		}
	}
}

func TestNonPositiveSampleRateDoesNotPanic(t *testing.T) {
	f := NewMoog(0, 1000)
	buf := impulse(32)
	f.Apply(buf)
	for _, v := range buf {
		if math.IsNaN(v) {
			t.Fatal("NaN output")
		}
	}
}

func TestClampCutoff(t *testing.T) {
	if got := ClampCutoff(-3, 48000); got != 20 {
		t.Fatalf("low clamp = %f", got)
	}
	if got := ClampCutoff(1e6, 48000); got != 24000 {
		t.Fatalf("high clamp = %f", got)
	}
	if got := ClampCutoff(math.NaN(), 48000); got != 20 {
		t.Fatalf("NaN clamp = %f", got)
	}
}
