package iir

// EmphasisGainDB is shared by both filters so that de-emphasis exactly
// undoes pre-emphasis.
const EmphasisGainDB float32 = 0.0

// Fixed design constants for the 8kHz modem audio stream. The
// de-emphasis filter is the reciprocal transfer function of the
// pre-emphasis filter.
const (
	emphasisZero0 float32 = 0.3889703155
	emphasisZero1 float32 = -0.32900055326
	emphasisPole0 float32 = 1.0
	emphasisPole1 float32 = 0.2820291817
)

// NewPreEmphasis boosts high frequencies ahead of the modem.
func NewPreEmphasis() *Biquad {
	return NewBiquad(
		emphasisZero0, emphasisZero1, 0.0,
		emphasisPole0, emphasisPole1, 0.0,
		EmphasisGainDB)
}

// NewDeEmphasis flattens audio received from the modem.
func NewDeEmphasis() *Biquad {
	return NewBiquad(
		emphasisPole0, emphasisPole1, 0.0,
		emphasisZero0, emphasisZero1, 0.0,
		EmphasisGainDB)
}
