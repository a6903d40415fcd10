package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// NopWriteAPI discards every point. It is the default when no InfluxDB is
// configured.
type NopWriteAPI struct{}

func (m *NopWriteAPI) WriteRecord(line string)       {}
func (m *NopWriteAPI) WritePoint(point *write.Point) {}
func (m *NopWriteAPI) Flush()                        {}
func (m *NopWriteAPI) Close()                        {}
func (m *NopWriteAPI) Errors() <-chan error          { return nil }

// RecordingWriteAPI keeps every point written to it.
type RecordingWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
}

func (m *RecordingWriteAPI) WriteRecord(line string) {}

func (m *RecordingWriteAPI) WritePoint(point *write.Point) {
	m.mu.Lock()
	m.points = append(m.points, point)
	m.mu.Unlock()
}

func (m *RecordingWriteAPI) Flush()               {}
func (m *RecordingWriteAPI) Close()               {}
func (m *RecordingWriteAPI) Errors() <-chan error { return nil }

// Points returns the points with the given measurement name.
func (m *RecordingWriteAPI) Points(measurement string) []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ret []*write.Point
	for _, p := range m.points {
		if p.Name() == measurement {
			ret = append(ret, p)
		}
	}
	return ret
}

// Field returns the value of a field on p, or nil.
func Field(p *write.Point, key string) interface{} {
	for _, f := range p.FieldList() {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}
