package modem

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/norasector/fmgateway/pkg/fm/control"
)

const (
	FrameStart byte = 0xE0

	TypeFMData   byte = 0x65
	TypeFMStatus byte = 0x66
	TypeFMEOT    byte = 0x67

	// HeaderLength covers start, length and type.
	HeaderLength   = 3
	MaxFrameLength = 255
	MaxPayload     = MaxFrameLength - HeaderLength
)

var ErrPayloadTooLarge = errors.New("modem: payload exceeds frame size")

type Frame struct {
	Type    byte
	Payload []byte
}

// Tagged converts the frame to the tagged chunk form consumed by
// control.Control. ok is false for frames that carry no FM audio.
func (f Frame) Tagged() (chunk []byte, ok bool) {
	switch f.Type {
	case TypeFMData:
		chunk = make([]byte, 1+len(f.Payload))
		chunk[0] = control.TagData
		copy(chunk[1:], f.Payload)
		return chunk, true
	case TypeFMEOT:
		return []byte{control.TagEOT}, true
	default:
		return nil, false
	}
}

// AppendFrame appends the wire encoding of a frame to dst.
func AppendFrame(dst []byte, frameType byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return dst, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	dst = append(dst, FrameStart, byte(len(payload)+HeaderLength), frameType)
	return append(dst, payload...), nil
}

// FrameReader reassembles frames from a byte stream, skipping anything
// that does not start with FrameStart.
type FrameReader struct {
	r       *bufio.Reader
	skipped int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 2*MaxFrameLength)}
}

// Skipped returns the number of bytes discarded while hunting for a frame.
func (fr *FrameReader) Skipped() int {
	return fr.skipped
}

func (fr *FrameReader) ReadFrame() (Frame, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b != FrameStart {
			fr.skipped++
			continue
		}

		length, err := fr.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if int(length) < HeaderLength {
			fr.skipped += 2
			continue
		}

		body := make([]byte, int(length)-2)
		if _, err := io.ReadFull(fr.r, body); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Frame{}, err
		}

		return Frame{Type: body[0], Payload: body[1:]}, nil
	}
}
