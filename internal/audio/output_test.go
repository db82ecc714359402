package audio

import (
	"sync/atomic"
	"testing"
)

// deviceless builds an Output without a real device so the data
// callback can be driven directly.
func deviceless(gen func() uint64) *Output {
	return &Output{
		ring:       NewRing(),
		channels:   2,
		generation: gen,
	}
}

func TestOnData_DuplicatesMonoAcrossChannels(t *testing.T) {
	o := deviceless(nil)
	o.ring.Write([]int16{100, 200})

	buf := make([]byte, 2*2*2) // 2 frames, stereo s16le
	o.onData(buf, nil, 2)

	got := BytesToInt16(buf)
	want := []int16{100, 100, 200, 200}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame data: got %v, want %v", got, want)
		}
	}
}

func TestOnData_GenerationBumpClearsRing(t *testing.T) {
	var gen atomic.Uint64
	o := deviceless(gen.Load)
	o.ring.Write([]int16{100, 200, 300, 400})

	// Same generation: samples flow through normally
	buf := make([]byte, 2*2*2)
	o.onData(buf, nil, 2)
	if got := BytesToInt16(buf); got[0] != 100 || got[2] != 200 {
		t.Fatalf("pre-bump frames: got %v", got)
	}
	if o.ring.Len() != 2 {
		t.Fatalf("ring after first read: got %d samples, want 2", o.ring.Len())
	}

	// Bump: the callback itself must discard the queued samples and
	// emit silence, without any help from the writer side
	gen.Add(1)
	for i := range buf {
		buf[i] = 0x55 // poison so silence is observable
	}
	o.onData(buf, nil, 2)

	for i, s := range BytesToInt16(buf) {
		if s != 0 {
			t.Fatalf("sample %d after bump: got %d, want silence", i, s)
		}
	}
	if o.ring.Len() != 0 {
		t.Errorf("ring should be empty after a generation bump, got %d samples", o.ring.Len())
	}
}

func TestOnData_BumpDoesNotClearNewAudio(t *testing.T) {
	var gen atomic.Uint64
	o := deviceless(gen.Load)

	gen.Add(1)
	buf := make([]byte, 2*2*2)
	o.onData(buf, nil, 2) // consumes the bump

	// Audio written for the new generation plays normally
	o.ring.Write([]int16{7, 8})
	o.onData(buf, nil, 2)
	if got := BytesToInt16(buf); got[0] != 7 || got[2] != 8 {
		t.Errorf("post-bump frames: got %v, want [7 7 8 8]", got)
	}
}
