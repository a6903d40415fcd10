package modem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/norasector/fmgateway/pkg/fm/control"
)

func mustFrame(t *testing.T, frameType byte, payload []byte) []byte {
	t.Helper()
	buf, err := AppendFrame(nil, frameType, payload)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestAppendFrame(t *testing.T) {
	got := mustFrame(t, TypeFMData, []byte{1, 2, 3})
	want := []byte{FrameStart, 6, TypeFMData, 1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AppendFrame() = %#v, want %#v", got, want)
	}

	if _, err := AppendFrame(nil, TypeFMData, make([]byte, MaxPayload+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized payload err = %v", err)
	}
	if _, err := AppendFrame(nil, TypeFMData, make([]byte, MaxPayload)); err != nil {
		t.Errorf("max payload err = %v", err)
	}
}

func TestFrameReaderResync(t *testing.T) {
	var stream []byte
	stream = append(stream, 0x00, 0x42)
	stream = append(stream, mustFrame(t, TypeFMData, []byte{9, 8, 7})...)
	stream = append(stream, FrameStart, 0x01)
	stream = append(stream, mustFrame(t, TypeFMEOT, nil)...)

	for _, chunk := range []int{0, 1, 2, 5} {
		port := &MockPort{ReadData: append([]byte(nil), stream...), ReadChunk: chunk}
		fr := NewFrameReader(port)

		f1, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if f1.Type != TypeFMData || !bytes.Equal(f1.Payload, []byte{9, 8, 7}) {
			t.Errorf("chunk %d: first frame = %+v", chunk, f1)
		}

		f2, err := fr.ReadFrame()
		if err != nil {
			t.Fatalf("chunk %d: %v", chunk, err)
		}
		if f2.Type != TypeFMEOT || len(f2.Payload) != 0 {
			t.Errorf("chunk %d: second frame = %+v", chunk, f2)
		}
		if fr.Skipped() != 4 {
			t.Errorf("chunk %d: skipped = %d, want 4", chunk, fr.Skipped())
		}

		if _, err := fr.ReadFrame(); err != io.EOF {
			t.Errorf("chunk %d: trailing err = %v, want EOF", chunk, err)
		}
	}
}

func TestFrameReaderTruncated(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader([]byte{FrameStart, 10, TypeFMData, 1}))
	if _, err := fr.ReadFrame(); err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestTagged(t *testing.T) {
	tests := []struct {
		name   string
		frame  Frame
		want   []byte
		wantOK bool
	}{
		{"data", Frame{TypeFMData, []byte{1, 2, 3}}, []byte{control.TagData, 1, 2, 3}, true},
		{"eot", Frame{TypeFMEOT, nil}, []byte{control.TagEOT}, true},
		{"status", Frame{TypeFMStatus, []byte{1}}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.frame.Tagged()
			if ok != tt.wantOK || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tagged() = %#v, %v; want %#v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestModemStart(t *testing.T) {
	var stream []byte
	stream = append(stream, mustFrame(t, TypeFMStatus, []byte{0})...)
	stream = append(stream, mustFrame(t, TypeFMData, []byte{0x80, 0x08, 0x00})...)
	stream = append(stream, mustFrame(t, TypeFMEOT, nil)...)

	m := NewModem(&MockPort{ReadData: stream, ReadChunk: 4})
	if err := m.Start(context.Background()); !errors.Is(err, ErrModemClosed) {
		t.Fatalf("Start() = %v, want %v", err, ErrModemClosed)
	}

	var got [][]byte
	for len(m.Chunks()) > 0 {
		got = append(got, <-m.Chunks())
	}
	want := [][]byte{{control.TagData, 0x80, 0x08, 0x00}, {control.TagEOT}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chunks = %#v, want %#v", got, want)
	}
}

func TestModemStartCancelled(t *testing.T) {
	var stream []byte
	for i := 0; i < chunkBufferLength+1; i++ {
		stream = append(stream, mustFrame(t, TypeFMEOT, nil)...)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewModem(&MockPort{ReadData: stream})
	if err := m.Start(ctx); err != context.Canceled {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
}

func TestWriteFMData(t *testing.T) {
	port := &MockPort{}
	m := NewModem(port)

	if err := m.WriteFMData([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteFMData([]byte{4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	want := []byte{FrameStart, 6, TypeFMData, 1, 2, 3, FrameStart, 6, TypeFMData, 4, 5, 6}
	if !bytes.Equal(port.Written(), want) {
		t.Errorf("written = %#v, want %#v", port.Written(), want)
	}

	port.WriteError = errors.New("boom")
	if err := m.WriteFMData([]byte{1, 2, 3}); err == nil {
		t.Errorf("expected write error")
	}

	if err := m.Close(); err != nil || !port.Closed {
		t.Errorf("Close() = %v closed = %v", err, port.Closed)
	}
}
