package modem

import (
	"io"
	"sync"
)

// MockPort implements Port for testing.
type MockPort struct {
	ReadData    []byte
	WrittenData []byte
	ReadChunk   int
	WriteError  error
	Closed      bool

	mu sync.Mutex
}

// Read returns at most ReadChunk bytes per call when ReadChunk is set, so
// tests can exercise split frames.
func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ReadData) == 0 {
		return 0, io.EOF
	}
	if m.ReadChunk > 0 && len(p) > m.ReadChunk {
		p = p[:m.ReadChunk]
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Written returns a copy of everything written so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.WrittenData...)
}
