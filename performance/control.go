package performance

import (
	"math"
	"sync/atomic"
)

// Control surface defaults
const (
	DefaultTempo    = 1.0
	DefaultVelocity = 64
	DefaultScaler   = 0.0

	minTempo = 0.01
)

// ControlSurface is the live tuning state shared between the controller
// side and the scheduler. Writers and readers may be concurrent; each value
// is stored atomically, so a reader sees an old or a new value but never a
// torn one. The scheduler samples the surface once per score position, so a
// write may lag by at most one position interval. That staleness is accepted;
// no lock is worth the added dispatch latency here.
type ControlSurface struct {
	tempo    atomic.Uint64 // float64 bits
	velocity atomic.Int64
	scaler   atomic.Uint64 // float64 bits
}

// NewControlSurface returns a surface with default tempo/velocity/scaler
func NewControlSurface() *ControlSurface {
	s := &ControlSurface{}
	s.SetTempo(DefaultTempo)
	s.SetVelocity(DefaultVelocity)
	s.SetScaler(DefaultScaler)
	return s
}

// SetTempo sets the tempo multiplier. Values at or below zero are clamped
// to a small positive floor so the equivalent-onset accumulator keeps
// advancing.
func (s *ControlSurface) SetTempo(t float64) {
	if t < minTempo || math.IsNaN(t) {
		t = minTempo
	}
	s.tempo.Store(math.Float64bits(t))
}

// Tempo returns the current tempo multiplier
func (s *ControlSurface) Tempo() float64 {
	return math.Float64frombits(s.tempo.Load())
}

// SetVelocity sets the velocity level, clamped to the MIDI range
func (s *ControlSurface) SetVelocity(v int) {
	if v < 0 {
		v = 0
	}
	if v > 127 {
		v = 127
	}
	s.velocity.Store(int64(v))
}

// Velocity returns the current velocity level
func (s *ControlSurface) Velocity() int {
	return int(s.velocity.Load())
}

// SetScaler sets the dynamics scaler in [0, 100]. Zero means no override:
// the loaded parameters are used as-is.
func (s *ControlSurface) SetScaler(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.scaler.Store(math.Float64bits(v))
}

// Scaler returns the current dynamics scaler
func (s *ControlSurface) Scaler() float64 {
	return math.Float64frombits(s.scaler.Load())
}

// Snapshot reads the surface once for a score position
func (s *ControlSurface) Snapshot() Snapshot {
	return Snapshot{
		Tempo:    s.Tempo(),
		Velocity: s.Velocity(),
		Scaler:   s.Scaler(),
	}
}

// Snapshot is one coherent read of the control surface
type Snapshot struct {
	Tempo    float64
	Velocity int
	Scaler   float64
}
