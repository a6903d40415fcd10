package control

import (
	"github.com/norasector/fmgateway/pkg/dsp/filters/iir"
	"github.com/norasector/fmgateway/pkg/fm/buffer"
	"github.com/norasector/fmgateway/pkg/fm/codec"
)

// Tags carried in the first byte of every chunk written by the modem.
const (
	TagHeader byte = 0x00
	TagData   byte = 0x01
	TagLost   byte = 0x02
	TagEOT    byte = 0x03
)

const (
	incomingCapacity = 1600

	// maxModemDrain is the most packed audio converted per WriteModem call.
	maxModemDrain   = 255
	maxModemSamples = maxModemDrain / codec.PackedGroupSize * 2

	// The modem accepts at most 84 samples (252 packed bytes) per frame.
	maxModemSpace    = 252
	maxNetworkRead   = 168
	maxNetworkSample = maxNetworkRead / codec.PCM16SampleSize
)

// Network is the packet side of the bridge.
type Network interface {
	WriteEOT() bool
	WriteData(data []byte) bool
	// Read must not block. It returns 0 when nothing is available.
	Read(data []byte) int
}

// Hooks are lifecycle extension points. They have no effect today.
type Hooks interface {
	Clock(ms uint)
	Enable(enabled bool)
}

// SampleTap observes normalized audio after emphasis filtering.
type SampleTap interface {
	AppendFloat([]float32)
}

// Control converts between the modem's packed 12-bit audio and 16-bit PCM
// on the network, applying de-emphasis towards the network and
// pre-emphasis towards the modem. A Control serves one session and is not
// safe for concurrent use within a direction.
type Control struct {
	network Network

	incoming *buffer.Accumulator

	unpacker    *codec.Unpacker
	deEmphasis  *iir.Biquad
	pcmEncoder  *codec.PCM16Encoder
	pcmDecoder  *codec.PCM16Decoder
	preEmphasis *iir.Biquad
	packer      *codec.Packer

	modemTap   SampleTap
	networkTap SampleTap

	// Scratch space, sized for the largest chunk each direction handles.
	rfData     [maxModemDrain]byte
	rfSamples  [maxModemSamples]float32
	rfOut      [maxModemSamples * codec.PCM16SampleSize]byte
	netData    [maxNetworkRead]byte
	netSamples [maxNetworkSample]float32
}

type Option func(c *Control)

// WithModemTap observes de-emphasised audio heading to the network.
func WithModemTap(tap SampleTap) Option {
	return func(c *Control) {
		c.modemTap = tap
	}
}

// WithNetworkTap observes pre-emphasised audio heading to the modem.
func WithNetworkTap(tap SampleTap) Option {
	return func(c *Control) {
		c.networkTap = tap
	}
}

// NewControl creates a Control. network may be nil, in which case modem
// audio is dropped and nothing is ever returned for the modem.
func NewControl(network Network, opts ...Option) *Control {
	c := &Control{
		network:     network,
		incoming:    buffer.NewAccumulator(incomingCapacity, "Incoming RF FM Audio"),
		unpacker:    codec.NewUnpacker(),
		deEmphasis:  iir.NewDeEmphasis(),
		pcmEncoder:  codec.NewPCM16Encoder(),
		pcmDecoder:  codec.NewPCM16Decoder(),
		preEmphasis: iir.NewPreEmphasis(),
		packer:      codec.NewPacker(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HasNetwork reports whether a network collaborator is attached.
func (c *Control) HasNetwork() bool {
	return c.network != nil
}

// Buffered returns the number of modem bytes waiting for a full group.
func (c *Control) Buffered() int {
	return c.incoming.Size()
}

// WriteModem accepts one tagged chunk from the modem. It returns false for
// an unrecognized tag or when the network rejects the write.
func (c *Control) WriteModem(data []byte) bool {
	if len(data) == 0 {
		panic("control: WriteModem called with an empty chunk")
	}

	switch data[0] {
	case TagHeader:
		return true
	case TagEOT:
		if c.network == nil {
			return false
		}
		return c.network.WriteEOT()
	case TagData:
	default:
		return false
	}

	if c.network == nil {
		return true
	}

	c.incoming.Append(data[1:])

	length := c.incoming.Size()
	if length > maxModemDrain {
		length = maxModemDrain
	}
	length -= length % codec.PackedGroupSize
	if length < codec.PackedGroupSize {
		return true
	}

	packed := c.rfData[:length]
	c.incoming.Drain(packed)

	nSamples := c.unpacker.WorkBuffer(packed, c.rfSamples[:])
	samples := c.rfSamples[:nSamples]
	c.deEmphasis.WorkBuffer(samples, samples)
	if c.modemTap != nil {
		c.modemTap.AppendFloat(samples)
	}

	nOut := c.pcmEncoder.WorkBuffer(samples, c.rfOut[:])
	return c.network.WriteData(c.rfOut[:nOut])
}

// ReadModem fills data with packed audio for the modem and returns the
// number of bytes written, always a multiple of 3. It returns 0 when the
// network has nothing to offer.
func (c *Control) ReadModem(data []byte) int {
	if len(data) == 0 {
		panic("control: ReadModem called with no space")
	}

	if c.network == nil {
		return 0
	}

	space := len(data)
	if space > maxModemSpace {
		space = maxModemSpace
	}

	length := c.network.Read(c.netData[:])
	if length <= 0 {
		return 0
	}
	if length > maxNetworkRead {
		length = maxNetworkRead
	}

	nSamples := c.pcmDecoder.WorkBuffer(c.netData[:length], c.netSamples[:])
	samples := c.netSamples[:nSamples]
	c.preEmphasis.WorkBuffer(samples, samples)
	if c.networkTap != nil {
		c.networkTap.AppendFloat(samples)
	}

	return c.packer.WorkBuffer(samples, data[:space])
}

// Clock is called periodically with the elapsed milliseconds.
func (c *Control) Clock(ms uint) {}

// Enable toggles the bridge.
func (c *Control) Enable(enabled bool) {}

var _ Hooks = (*Control)(nil)
