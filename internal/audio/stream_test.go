package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

type rampSource struct {
	next  int16
	calls int
}

func (s *rampSource) Render(out []int16) {
	s.calls++
	for i := range out {
		out[i] = s.next
		s.next += 1000
	}
}

func TestStreamReaderWritesStereoFloat32(t *testing.T) {
	src := &rampSource{next: -2000}
	r := NewStreamReader(src)
	buf := make([]byte, 8*4+3)
	n, err := r.Read(buf)
	if err != nil || n != 32 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < 4; i++ {
		want := float32(-2000+1000*i) / 32768
		l := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8:]))
		rr := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8+4:]))
		if l != want || rr != want {
			t.Fatalf("frame %d = (%f, %f), want %f", i, l, rr, want)
		}
	}
}

func TestMonoReaderWritesInt16(t *testing.T) {
	src := &rampSource{next: -1000}
	r := NewMonoReader(src)
	buf := make([]byte, 7)
	n, err := r.Read(buf)
	if err != nil || n != 6 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < 3; i++ {
		got := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		if want := int16(-1000 + 1000*i); got != want {
			t.Fatalf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestReadersSkipSourceForTinyBuffers(t *testing.T) {
	src := &rampSource{}
	if n, _ := NewStreamReader(src).Read(make([]byte, 7)); n != 0 {
		t.Fatalf("stereo read of 7 bytes = %d", n)
	}
	if n, _ := NewMonoReader(src).Read(make([]byte, 1)); n != 0 {
		t.Fatalf("mono read of 1 byte = %d", n)
	}
	if src.calls != 0 {
		t.Fatalf("source rendered %d times", src.calls)
	}
}

func TestScratchBufferIsReused(t *testing.T) {
	r := NewMonoReader(&rampSource{})
	r.Read(make([]byte, 256))
	first := &r.buf[0]
	r.Read(make([]byte, 64))
	if &r.buf[0] != first {
		t.Fatal("smaller read reallocated the scratch buffer")
	}
}

func TestParseBackend(t *testing.T) {
	cases := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendEbiten, false},
		{"ebiten", BackendEbiten, false},
		{"oto", BackendOto, false},
		{"alsa", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBackend(tc.in)
			if (err != nil) != tc.wantErr || got != tc.want {
				t.Fatalf("ParseBackend(%q) = %v, %v", tc.in, got, err)
			}
		})
	}
	if BackendOto.String() != "oto" {
		t.Fatal("String mismatch")
	}
}

func TestOpenRejectsBadSampleRate(t *testing.T) {
	if _, err := Open(BackendOto, 0, 0, &rampSource{}); err != ErrSampleRate {
		t.Fatalf("err = %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	if got := bufferDuration(48000, 480); got.Milliseconds() != 10 {
		t.Fatalf("duration = %v", got)
	}
}
