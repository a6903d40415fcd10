package buffer

import "fmt"

// Accumulator is an append-at-tail, drain-from-head byte queue. Bytes are
// never reordered. It is not safe for concurrent use.
type Accumulator struct {
	name string
	data []byte
	head int
}

func NewAccumulator(capacity int, name string) *Accumulator {
	return &Accumulator{
		name: name,
		data: make([]byte, 0, capacity),
	}
}

func (a *Accumulator) Name() string {
	return a.name
}

// Append adds p to the tail. Growth is unbounded; callers are expected to
// drain regularly.
func (a *Accumulator) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if a.head > 0 && len(a.data)+len(p) > cap(a.data) {
		a.compact()
	}
	a.data = append(a.data, p...)
}

// Size returns the number of buffered bytes.
func (a *Accumulator) Size() int {
	return len(a.data) - a.head
}

// Drain removes len(dst) bytes from the head into dst. It panics if dst is
// larger than Size.
func (a *Accumulator) Drain(dst []byte) {
	n := len(dst)
	if n > a.Size() {
		panic(fmt.Sprintf("%s: drain of %d bytes exceeds %d buffered", a.name, n, a.Size()))
	}
	copy(dst, a.data[a.head:a.head+n])
	a.Discard(n)
}

// Discard drops n bytes from the head without copying them.
func (a *Accumulator) Discard(n int) {
	if n > a.Size() {
		panic(fmt.Sprintf("%s: discard of %d bytes exceeds %d buffered", a.name, n, a.Size()))
	}
	a.head += n
	if a.head == len(a.data) {
		a.head = 0
		a.data = a.data[:0]
	}
}

// compact moves the unread bytes to the start of the backing array so that
// the capacity freed by earlier drains is reused.
func (a *Accumulator) compact() {
	n := copy(a.data, a.data[a.head:])
	a.data = a.data[:n]
	a.head = 0
}
