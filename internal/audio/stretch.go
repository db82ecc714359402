package audio

import (
	"math"
)

// bypassTolerance 接近原速时直接透传，避免近 1.0 比率下的微小伪音。
const bypassTolerance = 0.05

// Stretcher 是 WSOLA 风格的变速不变调处理器。
// 以 50% 重叠的分析窗做互相关对齐后叠加，窗口约 50ms，搜索范围约 15ms。
// 跨调用携带未消费的输入和上一窗的重叠尾部，适合流式逐块处理；
// 新的播放任务开始前应调用 Reset。
type Stretcher struct {
	window int // 分析窗长度（样本数，偶数）
	seek   int // 互相关搜索范围（样本数）

	input []int16   // 跨调用携带的未消费输入
	tail  []float64 // 上一窗的合成重叠尾部（长度 window/2）
}

// NewStretcher 创建工作在指定采样率上的处理器。
func NewStretcher(sampleRate int) *Stretcher {
	w := sampleRate * 50 / 1000
	if w%2 != 0 {
		w++
	}
	return &Stretcher{
		window: w,
		seek:   sampleRate * 15 / 1000,
	}
}

// Reset 丢弃携带的会话状态。
func (s *Stretcher) Reset() {
	s.input = s.input[:0]
	s.tail = nil
}

// Stretch 以 ratio 变速处理一段单声道 int16 样本并返回结果。
// ratio > 1.0 加速（输出更短），< 1.0 减速。接近 1.0（±5%）时原样返回，
// 并丢弃之前携带的会话状态。空输入或非法比率返回空切片，不报错。
// 本次未消费完的输入会携带到下一次调用。
func (s *Stretcher) Stretch(in []int16, ratio float64) []int16 {
	if math.Abs(ratio-1.0) < bypassTolerance {
		// 比率跨进旁路区间时丢弃携带状态，过期样本不能在之后乱序重放
		if len(s.input) > 0 || s.tail != nil {
			s.Reset()
		}
		return in
	}
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return nil
	}

	s.input = append(s.input, in...)

	hs := s.window / 2             // 合成步长
	ha := ratio * float64(hs)      // 分析步长
	need := s.window + s.seek      // 一次迭代需要的最少输入

	if len(s.input) < need {
		return nil
	}

	var out []int16
	pos := 0.0

	for int(pos)+need <= len(s.input) {
		start := int(pos)

		// 有上一窗尾部时，在 [start, start+seek) 内搜索互相关最大的偏移
		offset := 0
		if s.tail != nil {
			offset = s.bestOffset(start, hs)
		}

		seg := s.input[start+offset : start+offset+s.window]

		if s.tail == nil {
			out = append(out, seg[:hs]...)
		} else {
			// 线性交叉淡入淡出前半窗
			for i := 0; i < hs; i++ {
				f := float64(i) / float64(hs)
				v := s.tail[i]*(1.0-f) + float64(seg[i])*f
				out = append(out, clampInt16(v))
			}
		}

		if s.tail == nil {
			s.tail = make([]float64, hs)
		}
		for i := 0; i < hs; i++ {
			s.tail[i] = float64(seg[hs+i])
		}

		pos += ha
	}

	// 丢弃已消费的输入，剩余部分携带到下一次调用
	consumed := int(pos)
	if consumed > len(s.input) {
		consumed = len(s.input)
	}
	n := copy(s.input, s.input[consumed:])
	s.input = s.input[:n]

	return out
}

// bestOffset 在 [0, seek) 内寻找与上一窗尾部互相关最大的对齐偏移。
func (s *Stretcher) bestOffset(start, hs int) int {
	best := 0
	bestScore := math.Inf(-1)

	// 步进 2 采样粗搜，语音信号下足够且省一半计算
	for off := 0; off < s.seek; off += 2 {
		score := 0.0
		for i := 0; i < hs; i += 4 {
			score += s.tail[i] * float64(s.input[start+off+i])
		}
		if score > bestScore {
			bestScore = score
			best = off
		}
	}
	return best
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
