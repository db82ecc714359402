package audio

import (
	"math"
)

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// Float32ToInt16 将 [-1.0, 1.0] 范围的 float32 样本转换为 PCM int16。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		// 钳位到 [-1.0, 1.0]
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// StereoToMono 将交错立体声 int16 样本按左右声道平均合成单声道。
// 奇数长度时丢弃不完整的尾帧。
func StereoToMono(in []int16) []int16 {
	n := len(in) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16((int32(in[2*i]) + int32(in[2*i+1])) / 2)
	}
	return out
}

// ResampleLinear 将单声道 int16 样本从 from 采样率线性插值到 to 采样率。
// 精度对语音足够，不适合音乐。
func ResampleLinear(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}

	ratio := float64(from) / float64(to)
	n := int(float64(len(in)) / ratio)
	out := make([]int16, 0, n)

	for i := 0; i < n; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		var s1, s2 int16
		if srcIdx < len(in) {
			s1 = in[srcIdx]
		}
		if srcIdx+1 < len(in) {
			s2 = in[srcIdx+1]
		} else {
			s2 = s1
		}

		out = append(out, int16(float64(s1)*(1.0-frac)+float64(s2)*frac))
	}
	return out
}

// UpsampleDouble 通过复制每个样本实现 2 倍升采样（如 24kHz -> 48kHz）。
func UpsampleDouble(in []int16) []int16 {
	out := make([]int16, len(in)*2)
	for i, s := range in {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}
