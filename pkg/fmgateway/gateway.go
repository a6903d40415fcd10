package fmgateway

import (
	"context"
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/fmgateway/pkg/dsp/viz"
	"github.com/norasector/fmgateway/pkg/fm/control"
	"github.com/norasector/fmgateway/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	modemFrameSpace = 252

	vizTimeLength     = 512
	vizSpectrumLength = 1024
)

// Modem is the serial side of the gateway.
type Modem interface {
	Start(ctx context.Context) error
	Chunks() <-chan []byte
	WriteFMData(data []byte) error
}

// Network is the packet side of the gateway.
type Network interface {
	control.Network
	Start(ctx context.Context) error
	Enable(enabled bool)
}

type Options struct {
	ClockInterval time.Duration
	VizSampleRate int
}

type Gateway struct {
	modem     Modem
	network   Network
	control   *control.Control
	hooks     control.Hooks
	opts      Options
	writeAPI  api.WriteAPI
	vizServer *viz.Server
	logger    zerolog.Logger

	modemOut [modemFrameSpace]byte
	lastTick time.Time
}

type GatewayOption func(g *Gateway) error

func WithInfluxDB(writeAPI api.WriteAPI) GatewayOption {
	return func(g *Gateway) error {
		g.writeAPI = writeAPI
		return nil
	}
}

func WithImageServer(vizServer *viz.Server) GatewayOption {
	return func(g *Gateway) error {
		g.vizServer = vizServer
		return nil
	}
}

func WithLogger(logger zerolog.Logger) GatewayOption {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

func NewGateway(modem Modem, network Network, options Options, opts ...GatewayOption) (*Gateway, error) {
	g := &Gateway{
		modem:    modem,
		network:  network,
		opts:     options,
		writeAPI: &util.NopWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	if g.modem == nil {
		return nil, errors.New("must specify a modem")
	}
	if g.opts.ClockInterval <= 0 {
		return nil, errors.New("must specify a clock interval")
	}
	if g.opts.VizSampleRate == 0 {
		g.opts.VizSampleRate = 8000
	}

	var controlOpts []control.Option
	if g.vizServer != nil {
		controlOpts = append(controlOpts,
			control.WithModemTap(g.registerTaps("modem", "De-emphasised RF audio")),
			control.WithNetworkTap(g.registerTaps("network", "Pre-emphasised network audio")))
	}

	g.control = control.NewControl(g.network, controlOpts...)
	g.hooks = g.control

	return g, nil
}

type taps []control.SampleTap

func (t taps) AppendFloat(f []float32) {
	for _, tap := range t {
		tap.AppendFloat(f)
	}
}

func (g *Gateway) registerTaps(bucket, title string) control.SampleTap {
	timeDomain := viz.NewTimeDomainPlotter("01. "+title, vizTimeLength)
	spectrum := viz.NewSpectrumPlotter("02. "+title+" (FFT)", vizSpectrumLength, g.opts.VizSampleRate)
	g.vizServer.Register(bucket, timeDomain)
	g.vizServer.Register(bucket, spectrum)
	return taps{timeDomain, spectrum}
}

func (g *Gateway) Control() *control.Control {
	return g.control
}

// Start runs the modem, network and the pump loop until ctx ends.
func (g *Gateway) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.modem.Start(ctx)
	})

	if g.network != nil {
		g.network.Enable(true)
		eg.Go(func() error {
			return g.network.Start(ctx)
		})
	}

	if g.vizServer != nil {
		eg.Go(func() error {
			return g.vizServer.Run(ctx)
		})
	}

	eg.Go(func() error {
		return g.pump(ctx)
	})

	g.logger.Info().
		Dur("clock_interval", g.opts.ClockInterval).
		Bool("network", g.control.HasNetwork()).
		Msg("Starting")

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (g *Gateway) pump(ctx context.Context) error {
	g.hooks.Enable(true)
	defer g.hooks.Enable(false)
	if g.network != nil {
		defer g.network.Enable(false)
	}

	tick := time.NewTicker(g.opts.ClockInterval)
	defer tick.Stop()
	g.lastTick = time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-g.modem.Chunks():
			g.handleModemChunk(chunk)
		case now := <-tick.C:
			elapsed := now.Sub(g.lastTick)
			g.lastTick = now
			g.hooks.Clock(uint(elapsed.Milliseconds()))

			if err := g.feedModem(); err != nil {
				return err
			}
		}
	}
}

func (g *Gateway) handleModemChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	var ok bool
	duration := util.TimeOperationMicroseconds(func() {
		ok = g.control.WriteModem(chunk)
	})
	if !ok {
		g.logger.Warn().Uint8("tag", chunk[0]).Int("length", len(chunk)).Msg("modem chunk rejected")
	}

	g.writeAPI.WritePoint(influxdb2.NewPoint("fm.modem_to_network",
		map[string]string{"tag": tagName(chunk[0])},
		map[string]interface{}{
			"bytes_in":    len(chunk) - 1,
			"buffered":    g.control.Buffered(),
			"success":     util.BoolToInt(ok),
			"duration_us": duration,
		}, time.Now()))
}

// feedModem moves at most one modem frame of network audio per tick.
func (g *Gateway) feedModem() error {
	var n int
	duration := util.TimeOperationMicroseconds(func() {
		n = g.control.ReadModem(g.modemOut[:])
	})
	if n == 0 {
		return nil
	}

	if err := g.modem.WriteFMData(g.modemOut[:n]); err != nil {
		return err
	}

	g.writeAPI.WritePoint(influxdb2.NewPoint("fm.network_to_modem",
		nil,
		map[string]interface{}{
			"bytes_out":   n,
			"duration_us": duration,
		}, time.Now()))
	return nil
}

func tagName(tag byte) string {
	switch tag {
	case control.TagHeader:
		return "header"
	case control.TagData:
		return "data"
	case control.TagLost:
		return "lost"
	case control.TagEOT:
		return "eot"
	default:
		return "unknown"
	}
}
