package viz

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
)

const spectrumAverage = 0.10

// SpectrumPlotter plots a smoothed power spectrum of real samples.
type SpectrumPlotter struct {
	samples      *TimeDomainPlotter
	sampleRate   int
	fft          *fourier.FFT
	size         int
	averagePower []float64
}

func NewSpectrumPlotter(name string, size, sampleRate int) *SpectrumPlotter {
	return &SpectrumPlotter{
		samples:      NewTimeDomainPlotter(name, size),
		sampleRate:   sampleRate,
		fft:          fourier.NewFFT(size),
		size:         size,
		averagePower: make([]float64, size/2+1),
	}
}

func (s *SpectrumPlotter) Name() string {
	return s.samples.Name()
}

func (s *SpectrumPlotter) AppendFloat(f []float32) {
	s.samples.AppendFloat(f)
}

func (s *SpectrumPlotter) AddPlotOption(opt PlotOptions) {
	s.samples.AddPlotOption(opt)
}

// Power returns the windowed magnitude per bin, smoothed across calls.
func (s *SpectrumPlotter) Power() []float64 {
	samples := s.samples.Samples()
	if len(samples) < s.size {
		return nil
	}

	// 0.42 is the Blackman window's coherent gain.
	data := make([]float64, len(samples))
	for i, v := range samples {
		data[i] = float64(v) / (0.42 * float64(len(samples)))
	}
	window.Blackman(data)

	coeffs := s.fft.Coefficients(nil, data)
	for i, c := range coeffs {
		s.averagePower[i] = (1.0-spectrumAverage)*s.averagePower[i] + spectrumAverage*cmplx.Abs(c)
	}
	return s.averagePower
}

func (s *SpectrumPlotter) GetImage() (*ImageContainer, error) {
	power := s.Power()
	if power == nil {
		return nil, nil
	}

	p := plotWithDefaults(s.Name())
	p.Y.Label.Text = "Power (dB)"
	p.Y.Min = -100
	p.Y.Max = 0
	p.X.Label.Text = "Frequency (Hz)"

	for _, opt := range s.samples.plotOptions {
		opt(p)
	}

	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, 0, len(power))
	for i, mag := range power {
		if mag <= 0 {
			continue
		}
		xys = append(xys, plotter.XY{
			X: s.fft.Freq(i) * float64(s.sampleRate),
			Y: 20 * math.Log10(mag),
		})
	}
	if err := plotutil.AddLines(p, "frequency", xys); err != nil {
		return nil, err
	}

	return renderPNG(s.Name(), p)
}
