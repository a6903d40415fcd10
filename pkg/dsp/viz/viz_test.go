package viz

import (
	"bytes"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestTimeDomainPlotterKeepsLatest(t *testing.T) {
	tp := NewTimeDomainPlotter("test", 4)

	tests := []struct {
		name   string
		append []float32
		want   []float32
	}{
		{"partial", []float32{1, 2}, []float32{1, 2}},
		{"fill", []float32{3, 4, 5}, []float32{2, 3, 4, 5}},
		{"wrap", []float32{6, 7, 8}, []float32{5, 6, 7, 8}},
		{"oversized", []float32{9, 10, 11, 12, 13}, []float32{10, 11, 12, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp.AppendFloat(tt.append)
			if got := tp.Samples(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Samples() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpectrumPeak(t *testing.T) {
	const size = 256
	sp := NewSpectrumPlotter("spectrum", size, 8000)

	// 1kHz tone lands in bin 1000/8000*256 = 32.
	tone := make([]float32, size)
	for i := range tone {
		tone[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 8000))
	}
	sp.AppendFloat(tone)

	power := sp.Power()
	peak := 0
	for i := range power {
		if power[i] > power[peak] {
			peak = i
		}
	}
	if peak != 32 {
		t.Errorf("peak bin = %d, want 32", peak)
	}
}

func TestSpectrumWindowGain(t *testing.T) {
	const size = 256
	sp := NewSpectrumPlotter("dc", size, 8000)

	dc := make([]float32, size)
	for i := range dc {
		dc[i] = 1
	}
	sp.AppendFloat(dc)

	// A full-scale DC input reads as unit magnitude once the window gain
	// is removed; the first call weighs it by the smoothing factor.
	power := sp.Power()
	if math.Abs(power[0]-spectrumAverage) > 1e-3 {
		t.Errorf("power[0] = %v, want %v", power[0], spectrumAverage)
	}
	if power[size/4] > 1e-5 {
		t.Errorf("power[%d] = %v, want leakage below 1e-5", size/4, power[size/4])
	}
}

func TestServer(t *testing.T) {
	s := NewServer(0, time.Second)
	tp := NewTimeDomainPlotter("audio", 16)
	s.Register("modem", tp)

	s.Render()
	if _, ok := s.Image("modem", "audio"); ok {
		t.Fatalf("image rendered before enough samples")
	}

	tp.AppendFloat(make([]float32, 16))
	s.Render()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/view/modem" {
		t.Errorf("GET / = %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(srv.URL + "/img/modem/audio")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body.Bytes(), []byte("\x89PNG")) {
		t.Errorf("GET /img = %d, %d bytes", resp.StatusCode, body.Len())
	}

	resp, err = client.Get(srv.URL + "/view/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /view/missing = %d", resp.StatusCode)
	}
}
