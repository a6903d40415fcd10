package codec

import (
	"math"
	"reflect"
	"testing"
)

func TestPack12RoundTrip(t *testing.T) {
	group := make([]byte, PackedGroupSize)
	for a := uint16(0); a < 4096; a++ {
		for b := uint16(0); b < 4096; b += 13 {
			Pack12(group, a, b)
			gotA, gotB := Unpack12(group)
			if gotA != a || gotB != b {
				t.Fatalf("Unpack12(Pack12(%d, %d)) = (%d, %d)", a, b, gotA, gotB)
			}
		}
		Pack12(group, a, 4095)
		if _, gotB := Unpack12(group); gotB != 4095 {
			t.Fatalf("Unpack12(Pack12(%d, 4095)) b = %d", a, gotB)
		}
	}
}

func TestPack12Layout(t *testing.T) {
	tests := []struct {
		name string
		a, b uint16
		want []byte
	}{
		{"zero", 0, 0, []byte{0x00, 0x00, 0x00}},
		{"high only", 0xABC, 0, []byte{0xAB, 0xC0, 0x00}},
		{"low only", 0, 0xDEF, []byte{0x00, 0x0D, 0xEF}},
		{"both", 0x123, 0x456, []byte{0x12, 0x34, 0x56}},
		{"masked", 0xF800, 0x1FFF, []byte{0x80, 0x0F, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]byte, PackedGroupSize)
			Pack12(got, tt.a, tt.b)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Pack12(%#x, %#x) = %#v, want %#v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDecode12Affine(t *testing.T) {
	if got := Decode12(2048); got != 0.0 {
		t.Errorf("Decode12(2048) = %v, want 0", got)
	}
	if got := Decode12(0); math.Abs(float64(got)+1.0) > 1e-6 {
		t.Errorf("Decode12(0) = %v, want -1", got)
	}
	if got := Decode12(4095); math.Abs(float64(got)-0.9995) > 1e-4 {
		t.Errorf("Decode12(4095) = %v, want ~0.9995", got)
	}
}

func TestEncode12RoundTrip(t *testing.T) {
	for u := 0; u < 4096; u++ {
		got := Encode12(Decode12(uint16(u)))
		if diff := int(got) - u; diff < -1 || diff > 1 {
			t.Fatalf("Encode12(Decode12(%d)) = %d", u, got)
		}
	}
}

func TestEncode16(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want uint16
	}{
		{"min", -1.0, 0},
		{"mid", 0.0, 32767},
		{"max", 1.0, 65534},
		// (1.5+1)*32767+0.5 = 81918 which wraps to 16382.
		{"overflow wraps", 1.5, 16382},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode16(tt.in); got != tt.want {
				t.Errorf("Encode16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode16RoundTrip(t *testing.T) {
	for u := 0; u <= 65534; u += 3 {
		got := Encode16(Decode16(uint16(u)))
		if diff := int(got) - u; diff < -1 || diff > 1 {
			t.Fatalf("Encode16(Decode16(%d)) = %d", u, got)
		}
	}
}

func TestWorkers(t *testing.T) {
	packed := []byte{0x80, 0x08, 0x00, 0x00, 0x0F, 0xFF, 0x42}

	samples := NewUnpacker().Work(packed)
	want := []float32{0, 0, -1, Decode12(4095)}
	if !reflect.DeepEqual(samples, want) {
		t.Fatalf("Unpacker.Work() = %v, want %v", samples, want)
	}

	repacked := NewPacker().Work(samples)
	if !reflect.DeepEqual(repacked, packed[:6]) {
		t.Errorf("Packer.Work() = %#v, want %#v", repacked, packed[:6])
	}

	odd := NewPacker().Work([]float32{-1})
	if !reflect.DeepEqual(odd, []byte{0x00, 0x08, 0x00}) {
		t.Errorf("Packer.Work(odd) = %#v", odd)
	}

	pcm := NewPCM16Encoder().Work([]float32{-1, 0, 1})
	if !reflect.DeepEqual(pcm, []byte{0x00, 0x00, 0x7F, 0xFF, 0xFF, 0xFE}) {
		t.Errorf("PCM16Encoder.Work() = %#v", pcm)
	}
	decoded := NewPCM16Decoder().Work(append(pcm, 0x01))
	if len(decoded) != 3 || decoded[0] != -1 || decoded[1] != 0 {
		t.Errorf("PCM16Decoder.Work() = %v", decoded)
	}
}

func TestPackerRespectsOutputSpace(t *testing.T) {
	out := make([]byte, 5)
	if n := NewPacker().WorkBuffer([]float32{0, 0, 0, 0}, out); n != 3 {
		t.Errorf("WorkBuffer() = %d, want 3", n)
	}
}
