package codec

import "encoding/binary"

// Unpacker turns packed 12-bit groups into normalized samples. Trailing
// bytes that do not form a full group are ignored.
type Unpacker struct{}

func NewUnpacker() *Unpacker {
	return &Unpacker{}
}

func (u *Unpacker) PredictOutputSize(inputSize int) int {
	return inputSize / PackedGroupSize * 2
}

func (u *Unpacker) WorkBuffer(input []byte, output []float32) int {
	n := 0
	for i := 0; i+PackedGroupSize <= len(input); i += PackedGroupSize {
		a, b := Unpack12(input[i : i+PackedGroupSize])
		output[n] = Decode12(a)
		output[n+1] = Decode12(b)
		n += 2
	}
	return n
}

func (u *Unpacker) Work(input []byte) []float32 {
	ret := make([]float32, u.PredictOutputSize(len(input)))
	return ret[:u.WorkBuffer(input, ret)]
}

// Packer turns normalized samples into packed 12-bit groups. An odd final
// sample is paired with silence.
type Packer struct{}

func NewPacker() *Packer {
	return &Packer{}
}

func (p *Packer) PredictOutputSize(inputSize int) int {
	return (inputSize + 1) / 2 * PackedGroupSize
}

func (p *Packer) WorkBuffer(input []float32, output []byte) int {
	j := 0
	for i := 0; i < len(input) && j+PackedGroupSize <= len(output); i += 2 {
		var second float32
		if i+1 < len(input) {
			second = input[i+1]
		}
		Pack12(output[j:j+PackedGroupSize], Encode12(input[i]), Encode12(second))
		j += PackedGroupSize
	}
	return j
}

func (p *Packer) Work(input []float32) []byte {
	ret := make([]byte, p.PredictOutputSize(len(input)))
	return ret[:p.WorkBuffer(input, ret)]
}

// PCM16Decoder turns big-endian unsigned 16-bit samples into normalized
// samples. An odd trailing byte is ignored.
type PCM16Decoder struct{}

func NewPCM16Decoder() *PCM16Decoder {
	return &PCM16Decoder{}
}

func (d *PCM16Decoder) PredictOutputSize(inputSize int) int {
	return inputSize / PCM16SampleSize
}

func (d *PCM16Decoder) WorkBuffer(input []byte, output []float32) int {
	n := 0
	for i := 0; i+PCM16SampleSize <= len(input); i += PCM16SampleSize {
		output[n] = Decode16(binary.BigEndian.Uint16(input[i:]))
		n++
	}
	return n
}

func (d *PCM16Decoder) Work(input []byte) []float32 {
	ret := make([]float32, d.PredictOutputSize(len(input)))
	return ret[:d.WorkBuffer(input, ret)]
}

// PCM16Encoder turns normalized samples into big-endian unsigned 16-bit
// samples.
type PCM16Encoder struct{}

func NewPCM16Encoder() *PCM16Encoder {
	return &PCM16Encoder{}
}

func (e *PCM16Encoder) PredictOutputSize(inputSize int) int {
	return inputSize * PCM16SampleSize
}

func (e *PCM16Encoder) WorkBuffer(input []float32, output []byte) int {
	for i, s := range input {
		binary.BigEndian.PutUint16(output[i*PCM16SampleSize:], Encode16(s))
	}
	return len(input) * PCM16SampleSize
}

func (e *PCM16Encoder) Work(input []float32) []byte {
	ret := make([]byte, e.PredictOutputSize(len(input)))
	return ret[:e.WorkBuffer(input, ret)]
}
