package performance

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/CPJKU/con-espressione/debug"
)

// LiteralEvent is one pre-timed event of a literal sequence
type LiteralEvent struct {
	At  float64 // seconds since the start of the piece
	Msg gomidi.Message
}

// LoadSMF reads a standard MIDI file into a single time-ordered literal
// sequence. Only playable channel messages are kept; meta events are
// already consumed by the reader for tempo mapping.
func LoadSMF(path string) ([]LiteralEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open midi file: %w", err)
	}
	defer f.Close()

	var events []LiteralEvent
	rd := smf.ReadTracksFrom(f)
	rd.Do(func(ev smf.TrackEvent) {
		if !ev.Message.IsPlayable() {
			return
		}
		events = append(events, LiteralEvent{
			At:  float64(ev.AbsMicroSeconds) / 1e6,
			Msg: gomidi.Message(ev.Message),
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("midi file %s: no playable events", path)
	}

	// Tracks are read one after another; merge into one timeline
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })

	return events, nil
}

// LiteralPlayer replays a pre-timed event sequence as-is, with only a
// constant tempo stretch and an optional velocity override for note-ons.
// Used when no expressive prediction is available for a piece. Unlike the
// Scheduler there are no queues and no per-position control sampling; the
// stretch and override are fixed for the whole run.
type LiteralPlayer struct {
	send     func(gomidi.Message) error
	stretch  float64
	override uint8 // 0 = keep original velocities

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewLiteralPlayer creates a literal player. stretch scales every
// inter-event gap; override, when nonzero, replaces the velocity of every
// sounding note-on.
func NewLiteralPlayer(send func(gomidi.Message) error, stretch float64, override uint8) *LiteralPlayer {
	if stretch <= 0 {
		stretch = 1
	}
	return &LiteralPlayer{
		send:     send,
		stretch:  stretch,
		override: override,
		stopChan: make(chan struct{}),
	}
}

// Stop aborts the replay before the next event
func (lp *LiteralPlayer) Stop() {
	lp.stopOnce.Do(func() { close(lp.stopChan) })
}

// Run replays the sequence. Blocks until the last event or a Stop. On stop,
// note-offs for notes still sounding are sent before returning.
func (lp *LiteralPlayer) Run(events []LiteralEvent) error {
	debug.Log("literal", "run: %d events stretch=%.2f override=%d", len(events), lp.stretch, lp.override)

	sounding := make(map[[2]uint8]int)
	flush := func() {
		for k, n := range sounding {
			for ; n > 0; n-- {
				if err := lp.send(gomidi.NoteOff(k[0], k[1])); err != nil {
					debug.Log("literal", "flush note off ch=%d key=%d: %v", k[0], k[1], err)
				}
			}
		}
	}

	prev := 0.0
	for _, ev := range events {
		delta := time.Duration((ev.At - prev) * lp.stretch * float64(time.Second))
		prev = ev.At

		if delta > 0 {
			timer := time.NewTimer(delta)
			select {
			case <-lp.stopChan:
				timer.Stop()
				flush()
				return nil
			case <-timer.C:
			}
		} else {
			select {
			case <-lp.stopChan:
				flush()
				return nil
			default:
			}
		}

		msg := ev.Msg
		var ch, key, vel uint8
		// Note-offs and zero-velocity note-ons pass through untouched
		if lp.override != 0 && msg.GetNoteStart(&ch, &key, &vel) {
			msg = gomidi.NoteOn(ch, key, lp.override)
		}

		if err := lp.send(msg); err != nil {
			return fmt.Errorf("send literal event: %w", err)
		}

		if msg.GetNoteStart(&ch, &key, &vel) {
			sounding[[2]uint8{ch, key}]++
		} else if msg.GetNoteEnd(&ch, &key) {
			if sounding[[2]uint8{ch, key}] > 0 {
				sounding[[2]uint8{ch, key}]--
			}
		}
	}
	return nil
}
