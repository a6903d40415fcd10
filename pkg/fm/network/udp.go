package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/fmgateway/pkg/fm/buffer"
	"github.com/norasector/fmgateway/pkg/fm/control"
	"github.com/norasector/fmgateway/pkg/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Each datagram starts with a three byte tag.
const (
	TagData = "FMD"
	TagEOT  = "FME"
	TagPoll = "FMP"

	tagLength   = 3
	maxDatagram = 1500

	DefaultMaxBuffered  = 2000
	DefaultPollInterval = 5 * time.Second
)

// UDPNetwork carries 16-bit PCM to and from a single remote peer.
type UDPNetwork struct {
	localAddr    *net.UDPAddr
	remoteAddr   *net.UDPAddr
	conn         *net.UDPConn
	maxBuffered  int
	pollInterval time.Duration
	metrics      api.WriteAPI
	logger       zerolog.Logger

	mu      sync.Mutex
	rx      *buffer.Accumulator
	enabled bool

	txMu  sync.Mutex
	txBuf []byte
}

type Option func(n *UDPNetwork)

func WithLogger(logger zerolog.Logger) Option {
	return func(n *UDPNetwork) {
		n.logger = logger
	}
}

func WithInfluxDB(writeAPI api.WriteAPI) Option {
	return func(n *UDPNetwork) {
		n.metrics = writeAPI
	}
}

// WithMaxBuffered bounds the received audio waiting to be read.
func WithMaxBuffered(max int) Option {
	return func(n *UDPNetwork) {
		n.maxBuffered = max
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(n *UDPNetwork) {
		n.pollInterval = interval
	}
}

func NewUDPNetwork(localAddr, remoteAddr string, opts ...Option) (*UDPNetwork, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve local address %q: %w", localAddr, err)
	}
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve remote address %q: %w", remoteAddr, err)
	}

	n := &UDPNetwork{
		localAddr:    local,
		remoteAddr:   remote,
		maxBuffered:  DefaultMaxBuffered,
		pollInterval: DefaultPollInterval,
		metrics:      &util.NopWriteAPI{},
		logger:       log.Logger,
		txBuf:        make([]byte, 0, maxDatagram),
	}

	for _, opt := range opts {
		opt(n)
	}

	n.rx = buffer.NewAccumulator(n.maxBuffered, "FM Network Audio")

	return n, nil
}

// Open binds the local socket.
func (n *UDPNetwork) Open() error {
	conn, err := net.ListenUDP("udp", n.localAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", n.localAddr, err)
	}
	n.conn = conn
	n.logger.Info().
		Str("local", conn.LocalAddr().String()).
		Str("remote", n.remoteAddr.String()).
		Msg("fm network opened")
	return nil
}

func (n *UDPNetwork) LocalAddr() net.Addr {
	return n.conn.LocalAddr()
}

// Start runs the receive loop and keepalive polls until ctx ends.
func (n *UDPNetwork) Start(ctx context.Context) error {
	if n.conn == nil {
		return errors.New("fm network not opened")
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		n.conn.Close()
		return nil
	})

	eg.Go(func() error {
		if n.pollInterval <= 0 {
			return nil
		}
		tick := time.NewTicker(n.pollInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				n.write(TagPoll, nil)
			}
		}
	})

	eg.Go(func() error {
		buf := make([]byte, maxDatagram)
		for {
			length, addr, err := n.conn.ReadFromUDP(buf)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("fm network read: %w", err)
			}

			if !addr.IP.Equal(n.remoteAddr.IP) || addr.Port != n.remoteAddr.Port {
				n.logger.Debug().Str("from", addr.String()).Msg("dropping datagram from unknown peer")
				continue
			}

			n.receive(buf[:length])
		}
	})

	return eg.Wait()
}

func (n *UDPNetwork) receive(datagram []byte) {
	if len(datagram) < tagLength {
		return
	}

	switch string(datagram[:tagLength]) {
	case TagData:
		payload := datagram[tagLength:]

		n.mu.Lock()
		if !n.enabled {
			n.mu.Unlock()
			return
		}
		dropped := n.rx.Size()+len(payload) > n.maxBuffered
		if !dropped {
			n.rx.Append(payload)
		}
		buffered := n.rx.Size()
		n.mu.Unlock()

		if dropped {
			n.logger.Warn().Int("length", len(payload)).Int("buffered", buffered).Msg("fm network buffer full, dropping audio")
		}
		n.metrics.WritePoint(influxdb2.NewPoint("fm.network.received_frame",
			map[string]string{"direction": "rx"},
			map[string]interface{}{
				"length":   len(payload),
				"buffered": buffered,
				"dropped":  util.BoolToInt(dropped),
			}, time.Now()))

	case TagEOT:
		n.logger.Debug().Msg("fm network end of transmission")
	case TagPoll:
	default:
		n.logger.Debug().Bytes("tag", datagram[:tagLength]).Msg("unknown fm network datagram")
	}
}

func (n *UDPNetwork) write(tag string, payload []byte) bool {
	n.txMu.Lock()
	defer n.txMu.Unlock()

	if n.conn == nil {
		return false
	}

	buf := append(n.txBuf[:0], tag...)
	buf = append(buf, payload...)

	written, err := n.conn.WriteToUDP(buf, n.remoteAddr)
	sent := err == nil
	if err != nil {
		n.logger.Error().Err(err).Str("tag", tag).Msg("error writing")
	}

	n.metrics.WritePoint(influxdb2.NewPoint("fm.network.sent_frame",
		map[string]string{"tag": tag},
		map[string]interface{}{
			"bytes_written": written,
			"length":        len(payload),
			"sent":          util.BoolToInt(sent),
			"dropped":       util.BoolToInt(!sent),
		}, time.Now()))

	return sent
}

func (n *UDPNetwork) isEnabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// WriteData sends PCM audio to the remote peer.
func (n *UDPNetwork) WriteData(data []byte) bool {
	if !n.isEnabled() {
		return false
	}
	return n.write(TagData, data)
}

// WriteEOT signals the end of a transmission to the remote peer.
func (n *UDPNetwork) WriteEOT() bool {
	if !n.isEnabled() {
		return false
	}
	return n.write(TagEOT, nil)
}

// Read copies buffered PCM into data without blocking. The count is always
// even so that samples are never split.
func (n *UDPNetwork) Read(data []byte) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	length := n.rx.Size()
	if length > len(data) {
		length = len(data)
	}
	length -= length % 2
	if length == 0 {
		return 0
	}
	n.rx.Drain(data[:length])
	return length
}

// Enable starts or stops accepting audio. Disabling discards anything
// buffered.
func (n *UDPNetwork) Enable(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	if !enabled {
		n.rx.Discard(n.rx.Size())
	}
	n.mu.Unlock()
}

// Buffered returns the number of received bytes waiting to be read.
func (n *UDPNetwork) Buffered() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rx.Size()
}

func (n *UDPNetwork) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

var _ control.Network = (*UDPNetwork)(nil)
