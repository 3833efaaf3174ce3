package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/CPJKU/con-espressione/debug"
)

// CC assignment of the hardware controller, channel 0
const (
	ccTempo    uint8 = 20
	ccVelocity uint8 = 21
	ccScaler   uint8 = 22
	ccSong     uint8 = 23
	ccPlay     uint8 = 24
	ccStop     uint8 = 25
)

// Session is the playback side the remote drives
type Session interface {
	SelectSong(idx int)
	Play() error
	Stop()
	SetTempo(mult float64)
	SetVelocity(vel int)
	SetScaler(s float64)
}

// Remote maps incoming control-change messages to session commands. Raw CC
// values (0-127) are affine-mapped into the engineering units the control
// surface expects; out-of-range input is clamped here and never reaches the
// scheduler.
type Remote struct {
	session Session
	stop    func()
}

// NewRemote creates a remote for the given session
func NewRemote(session Session) *Remote {
	return &Remote{session: session}
}

// Listen starts consuming controller messages from the named input port
func (r *Remote) Listen(portName string) error {
	stop, err := OpenInput(portName, r.Handle)
	if err != nil {
		return err
	}
	r.stop = stop
	return nil
}

// Close releases the input port
func (r *Remote) Close() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

// Handle processes one controller message
func (r *Remote) Handle(msg gomidi.Message) {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) || ch != 0 {
		return
	}

	switch cc {
	case ccTempo:
		r.session.SetTempo(TempoFromCC(val))
	case ccVelocity:
		r.session.SetVelocity(VelocityFromCC(val))
	case ccScaler:
		r.session.SetScaler(ScalerFromCC(val))
	case ccSong:
		debug.Log("remote", "song change: %d", val)
		r.session.SelectSong(int(val))
	case ccPlay:
		if val == 127 {
			debug.Log("remote", "play")
			if err := r.session.Play(); err != nil {
				debug.Log("remote", "play rejected: %v", err)
			}
		}
	case ccStop:
		if val == 127 {
			debug.Log("remote", "stop")
			r.session.Stop()
		}
	}
}

// TempoFromCC maps a raw value to a tempo multiplier in [0.5, 2.0].
// The knob center (64) lands on 1.0; turning up speeds playback up by
// shrinking the multiplier.
func TempoFromCC(val uint8) float64 {
	v := float64(val)
	if val <= 64 {
		return -(2.0/128.0)*v + 2.0
	}
	return -(1.0/127.0)*v + 1.5
}

// VelocityFromCC maps a raw value to the velocity level. The controller
// range already is the MIDI velocity range, so this is the identity; the
// control surface clamps on write.
func VelocityFromCC(val uint8) int {
	return int(val)
}

// ScalerFromCC maps a raw value to the dynamics scaler in [0, 100]
func ScalerFromCC(val uint8) float64 {
	return (100.0 / 127.0) * float64(val)
}
