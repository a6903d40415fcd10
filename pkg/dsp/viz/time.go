package viz

import (
	"sync"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

// TimeDomainPlotter keeps the most recent samples written to it.
type TimeDomainPlotter struct {
	mu          sync.Mutex
	buf         []float32
	size        int
	name        string
	plotOptions []PlotOptions
}

func NewTimeDomainPlotter(name string, size int) *TimeDomainPlotter {
	return &TimeDomainPlotter{
		buf:  make([]float32, 0, 2*size),
		size: size,
		name: name,
	}
}

func (tp *TimeDomainPlotter) Name() string {
	return tp.name
}

func (tp *TimeDomainPlotter) AppendFloat(f []float32) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if len(f) >= tp.size {
		tp.buf = append(tp.buf[:0], f[len(f)-tp.size:]...)
		return
	}
	if len(tp.buf)+len(f) > cap(tp.buf) {
		keep := tp.size - len(f)
		if keep > len(tp.buf) {
			keep = len(tp.buf)
		}
		tp.buf = append(tp.buf[:0], tp.buf[len(tp.buf)-keep:]...)
	}
	tp.buf = append(tp.buf, f...)
}

// Samples returns a copy of the last size samples.
func (tp *TimeDomainPlotter) Samples() []float32 {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	start := 0
	if len(tp.buf) > tp.size {
		start = len(tp.buf) - tp.size
	}
	return append([]float32(nil), tp.buf[start:]...)
}

func (tp *TimeDomainPlotter) AddPlotOption(opt PlotOptions) {
	tp.plotOptions = append(tp.plotOptions, opt)
}

// GetImage returns nil until a full window of samples has been seen.
func (tp *TimeDomainPlotter) GetImage() (*ImageContainer, error) {
	samples := tp.Samples()
	if len(samples) < tp.size {
		return nil, nil
	}

	p := plotWithDefaults(tp.name)
	p.Y.Label.Text = "Amplitude"
	p.Y.Min = -1.5
	p.Y.Max = 1.5
	p.X.Label.Text = "t"

	for _, opt := range tp.plotOptions {
		opt(p)
	}

	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xys[i] = plotter.XY{X: float64(i), Y: float64(s)}
	}
	if err := plotutil.AddLines(p, "f(t)", xys); err != nil {
		return nil, err
	}

	return renderPNG(tp.name, p)
}
