package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/fmgateway/pkg/dsp/viz"
	"github.com/norasector/fmgateway/pkg/fm/modem"
	"github.com/norasector/fmgateway/pkg/fm/network"
	"github.com/norasector/fmgateway/pkg/fmgateway"
	"github.com/norasector/fmgateway/pkg/fmgateway/config"
	"github.com/norasector/fmgateway/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "fmgateway.yaml", "YAML config file")

	flag.Parse()

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}
	log.Logger = log.Logger.Level(opts.Level())

	var writeAPI api.WriteAPI = &util.NopWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, opts.InfluxDB.Token)
		defer client.Close()
		writeAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	log.Info().Str("port", opts.Modem.Port).Int("baud_rate", opts.Modem.BaudRate).Msg("opening modem...")
	port, err := modem.OpenSerial(opts.Modem.Port, opts.Modem.BaudRate)
	if err != nil {
		log.Fatal().Err(err).Str("port", opts.Modem.Port).Msg("failed to open modem")
	}
	mmdvm := modem.NewModem(port, modem.WithLogger(log.Logger))
	defer mmdvm.Close()

	udp, err := network.NewUDPNetwork(opts.Network.LocalAddress, opts.Network.RemoteAddress,
		network.WithLogger(log.Logger),
		network.WithInfluxDB(writeAPI),
		network.WithMaxBuffered(opts.Network.MaxBuffered),
		network.WithPollInterval(opts.Network.PollInterval))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid network configuration")
	}
	if err := udp.Open(); err != nil {
		log.Fatal().Err(err).Str("address", opts.Network.LocalAddress).Msg("failed to open network")
	}
	defer udp.Close()

	gatewayOpts := []fmgateway.GatewayOption{
		fmgateway.WithInfluxDB(writeAPI),
		fmgateway.WithLogger(log.Logger),
	}
	if opts.VizServer.Enabled {
		gatewayOpts = append(gatewayOpts,
			fmgateway.WithImageServer(viz.NewServer(opts.VizServer.Port, opts.VizServer.UpdateInterval)))
	}

	gateway, err := fmgateway.NewGateway(mmdvm, udp,
		fmgateway.Options{
			ClockInterval: opts.ClockInterval,
			VizSampleRate: opts.VizServer.SampleRate,
		}, gatewayOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway")
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
			log.Info().Msg("shutting down")
		case <-ctx.Done():
		}
		cancel()
		return nil
	})

	eg.Go(func() error {
		return gateway.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
