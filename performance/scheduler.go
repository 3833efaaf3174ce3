package performance

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/CPJKU/con-espressione/debug"
)

// State is the scheduler lifecycle state
type State int32

const (
	Idle State = iota
	Priming
	Streaming
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Priming:
		return "priming"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Scheduler defaults
const (
	DefaultVelMin       = 30
	DefaultVelMax       = 110
	DefaultPollInterval = time.Millisecond

	// Playback starts this many seconds after the clock is captured
	leadInSeconds = 0.5
)

// pendingEvent is a constructed MIDI message waiting for its wall-clock slot
type pendingEvent struct {
	at  float64 // seconds since the playback clock
	msg gomidi.Message
	key uint8
}

// sortByTime orders a pending queue by scheduled time. Only the note-off
// queue ever needs this: note-ons are produced in non-decreasing time order,
// while note-offs from different positions interleave because durations vary.
func sortByTime(evs []pendingEvent) {
	sort.SliceStable(evs, func(a, b int) bool { return evs[a].at < evs[b].at })
}

// Scheduler renders a Performance into real-time note-on/note-off events.
// It owns the transport sender for the duration of a run and samples the
// control surface once per score position. A Scheduler drives a single run;
// make a new one for the next.
type Scheduler struct {
	send    func(gomidi.Message) error
	surface *ControlSurface

	velMin  int
	velMax  int
	poll    time.Duration
	channel uint8

	state    atomic.Int32
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler sending through the given transport
func NewScheduler(send func(gomidi.Message) error, surface *ControlSurface) *Scheduler {
	return &Scheduler{
		send:     send,
		surface:  surface,
		velMin:   DefaultVelMin,
		velMax:   DefaultVelMax,
		poll:     DefaultPollInterval,
		stopChan: make(chan struct{}),
	}
}

// SetVelocityClamp sets the [min, max] band projected velocities are
// clipped into
func (s *Scheduler) SetVelocityClamp(min, max int) {
	s.velMin, s.velMax = min, max
}

// SetPollInterval sets the dispatch loop sleep between head checks
func (s *Scheduler) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.poll = d
	}
}

// SetChannel sets the MIDI channel events are sent on
func (s *Scheduler) SetChannel(ch uint8) {
	s.channel = ch
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stop requests an end to playback. No further note-on is sent after the
// request; note-offs for notes already sounding are still flushed before
// the scheduler reaches Stopped, so nothing is left hanging.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) stopRequested() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

// Run plays the performance to completion. It blocks; callers put it on its
// own goroutine and use Stop from elsewhere. The transport must not be
// shared with another sender while Run is active. A send failure aborts the
// run and is returned; nothing already sent is rolled back.
func (s *Scheduler) Run(perf *Performance) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Priming)) {
		return fmt.Errorf("scheduler already started")
	}

	debug.Log("sched", "run: %d positions poll=%s", perf.Len(), s.poll)

	// The playback clock. Never reset during this run.
	t0 := time.Now()
	eq := leadInSeconds

	var ons, offs []pendingEvent
	sounding := make(map[uint8]int)

	for i := range perf.Positions {
		if s.stopRequested() {
			break
		}
		pos := &perf.Positions[i]

		s.state.Store(int32(Priming))
		snap := s.surface.Snapshot()
		var notes Notes
		notes, eq = Project(pos, eq, snap, s.velMin, s.velMax)

		for j := 0; j < notes.Len(); j++ {
			ons = append(ons, pendingEvent{
				at:  notes.Onset[j],
				msg: gomidi.NoteOn(s.channel, notes.Pitch[j], notes.Velocity[j]),
				key: notes.Pitch[j],
			})
			offs = append(offs, pendingEvent{
				at:  notes.Onset[j] + notes.Duration[j],
				msg: gomidi.NoteOff(s.channel, notes.Pitch[j]),
				key: notes.Pitch[j],
			})
		}
		sortByTime(offs)

		// Dispatch until this position's note-ons are out, then go prime
		// the next one. Only the heads are ever inspected.
		s.state.Store(int32(Streaming))
		for len(ons) > 0 {
			if s.stopRequested() {
				break
			}

			if time.Since(t0).Seconds() >= ons[0].at {
				if err := s.send(ons[0].msg); err != nil {
					s.state.Store(int32(Stopped))
					return fmt.Errorf("send note on: %w", err)
				}
				sounding[ons[0].key]++
				debug.LogEvery(32, "dispatch", "on key=%d at=%.3f", ons[0].key, ons[0].at)
				ons = ons[1:]
			}

			if len(offs) > 0 && time.Since(t0).Seconds() >= offs[0].at {
				if err := s.send(offs[0].msg); err != nil {
					s.state.Store(int32(Stopped))
					return fmt.Errorf("send note off: %w", err)
				}
				if sounding[offs[0].key] > 0 {
					sounding[offs[0].key]--
				}
				offs = offs[1:]
			}

			time.Sleep(s.poll)
		}
	}

	// All positions projected (or stop requested): only note-offs remain
	s.state.Store(int32(Draining))
	for len(offs) > 0 {
		if s.stopRequested() {
			// Flush offs for notes that actually started so none stick;
			// offs for never-sent note-ons are dropped.
			for _, ev := range offs {
				if sounding[ev.key] == 0 {
					continue
				}
				if err := s.send(ev.msg); err != nil {
					s.state.Store(int32(Stopped))
					return fmt.Errorf("flush note off: %w", err)
				}
				sounding[ev.key]--
			}
			offs = nil
			break
		}

		if time.Since(t0).Seconds() >= offs[0].at {
			if err := s.send(offs[0].msg); err != nil {
				s.state.Store(int32(Stopped))
				return fmt.Errorf("send note off: %w", err)
			}
			if sounding[offs[0].key] > 0 {
				sounding[offs[0].key]--
			}
			offs = offs[1:]
			continue
		}
		time.Sleep(s.poll)
	}

	s.state.Store(int32(Stopped))
	debug.Log("sched", "stopped")
	return nil
}
