package iir

import "math"

// Biquad is a direct-form-1 second order IIR filter followed by a linear
// gain stage. History holds raw inputs and pre-gain outputs, newest first.
type Biquad struct {
	b0, b1, b2 float32
	a0, a1, a2 float32
	gain       float32

	x [2]float32
	y [2]float32
}

// NewBiquad builds a filter from numerator (b) and denominator (a)
// coefficients. a0 normalizes the rest. gainDB is converted once to a
// linear multiplier.
func NewBiquad(b0, b1, b2, a0, a1, a2, gainDB float32) *Biquad {
	if a0 == 0 {
		panic("iir: a0 must be non-zero")
	}
	return &Biquad{
		b0:   b0,
		b1:   b1,
		b2:   b2,
		a0:   a0,
		a1:   a1,
		a2:   a2,
		gain: float32(math.Pow(10, float64(gainDB)/20)),
	}
}

// Filter processes a single sample and advances the history.
func (f *Biquad) Filter(sample float32) float32 {
	// Each product is rounded explicitly so the result does not depend on
	// whether the platform fuses multiply-add.
	acc := float32(f.b0 * sample)
	acc += float32(f.b1 * f.x[0])
	acc += float32(f.b2 * f.x[1])
	acc -= float32(f.a1 * f.y[0])
	acc -= float32(f.a2 * f.y[1])
	out := acc / f.a0

	f.x[1] = f.x[0]
	f.x[0] = sample
	f.y[1] = f.y[0]
	f.y[0] = out

	return float32(out * f.gain)
}

func (f *Biquad) WorkBuffer(input, output []float32) int {
	for i := 0; i < len(input); i++ {
		output[i] = f.Filter(input[i])
	}
	return len(input)
}

func (f *Biquad) Work(data []float32) []float32 {
	ret := make([]float32, len(data))
	f.WorkBuffer(data, ret)
	return ret
}

func (f *Biquad) PredictOutputSize(inputSize int) int {
	return inputSize
}

// Reset clears the history.
func (f *Biquad) Reset() {
	f.x = [2]float32{}
	f.y = [2]float32{}
}
