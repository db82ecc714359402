package audio

import (
	"sync"
)

// Ring 是播放线程与设备回调共享的 int16 样本队列。
// 写端为播放线程，读端为实时回调，回调内持锁时间必须尽量短，
// ReadFrames 不做任何内存分配。
type Ring struct {
	mu   sync.Mutex
	buf  []int16
	head int
}

// NewRing 创建一个空的样本队列。
func NewRing() *Ring {
	return &Ring{}
}

// Write 追加样本到队尾。
func (r *Ring) Write(samples []int16) {
	if len(samples) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// head 偏移超过一半时先压缩，避免切片无限增长
	if r.head > len(r.buf)/2 && r.head > 4096 {
		n := copy(r.buf, r.buf[r.head:])
		r.buf = r.buf[:n]
		r.head = 0
	}
	r.buf = append(r.buf, samples...)
}

// Len 返回尚未消费的样本数。
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.head
}

// Clear 丢弃所有未消费的样本。
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
	r.head = 0
}

// ReadFrames 向 dst 写入 frames 帧小端 int16 数据，每帧将一个单声道样本
// 复制到全部 channels 个声道。队列不足时剩余帧填充静音。
func (r *Ring) ReadFrames(dst []byte, frames, channels int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := 0
	for i := 0; i < frames; i++ {
		var s int16
		if r.head < len(r.buf) {
			s = r.buf[r.head]
			r.head++
		}
		lo, hi := byte(s), byte(s>>8)
		for c := 0; c < channels; c++ {
			if pos+1 >= len(dst) {
				return
			}
			dst[pos] = lo
			dst[pos+1] = hi
			pos += 2
		}
	}
	if r.head == len(r.buf) {
		r.buf = r.buf[:0]
		r.head = 0
	}
}
