package audio

import (
	"sync"
	"testing"
)

func TestRing_WriteThenRead(t *testing.T) {
	r := NewRing()
	r.Write([]int16{1, 2, 3})

	if r.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", r.Len())
	}

	dst := make([]byte, 3*2) // 3 frames, mono
	r.ReadFrames(dst, 3, 1)

	got := BytesToInt16(dst)
	want := []int16{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if r.Len() != 0 {
		t.Errorf("ring should be empty after full read, Len=%d", r.Len())
	}
}

func TestRing_UnderrunEmitsSilence(t *testing.T) {
	r := NewRing()
	r.Write([]int16{7})

	dst := make([]byte, 4*2)
	for i := range dst {
		dst[i] = 0xAA // poison to detect uninitialized output
	}
	r.ReadFrames(dst, 4, 1)

	got := BytesToInt16(dst)
	if got[0] != 7 {
		t.Errorf("first frame: got %d, want 7", got[0])
	}
	for i := 1; i < 4; i++ {
		if got[i] != 0 {
			t.Errorf("underrun frame %d should be silence, got %d", i, got[i])
		}
	}
}

func TestRing_DuplicatesMonoAcrossChannels(t *testing.T) {
	r := NewRing()
	r.Write([]int16{5, -5})

	dst := make([]byte, 2*2*2) // 2 frames, stereo
	r.ReadFrames(dst, 2, 2)

	got := BytesToInt16(dst)
	want := []int16{5, 5, -5, -5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interleaved sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRing_Clear(t *testing.T) {
	r := NewRing()
	r.Write(make([]int16, 1000))
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", r.Len())
	}

	dst := make([]byte, 2)
	dst[0], dst[1] = 0xFF, 0xFF
	r.ReadFrames(dst, 1, 1)
	if got := BytesToInt16(dst); got[0] != 0 {
		t.Errorf("read after Clear should be silence, got %d", got[0])
	}
}

func TestRing_ConcurrentWriteRead(t *testing.T) {
	r := NewRing()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Write(make([]int16, 480))
		}
	}()
	go func() {
		defer wg.Done()
		dst := make([]byte, 480*2)
		for i := 0; i < 100; i++ {
			r.ReadFrames(dst, 480, 1)
		}
	}()

	wg.Wait()
	// Drain whatever is left; must not panic or deadlock
	dst := make([]byte, 480*2)
	for r.Len() > 0 {
		r.ReadFrames(dst, 480, 1)
	}
}
