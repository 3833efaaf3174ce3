package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/CPJKU/con-espressione/debug"
	"github.com/CPJKU/con-espressione/performance"
)

// ErrPlaybackActive is returned when Play is called while a previous run
// has not reached Stopped yet.
var ErrPlaybackActive = errors.New("playback already active")

// Song is one entry of the playable song list
type Song struct {
	Name string
	Path string
}

// Literal reports whether the song replays a plain MIDI file instead of an
// expressive prediction
func (s Song) Literal() bool {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".mid", ".midi":
		return true
	}
	return false
}

// Manager owns the playback lifecycle: the song list, the control surface,
// and the single active run. The transport sender belongs to the running
// scheduler for the duration of a run; a new run cannot start until the
// previous one has stopped and been joined.
type Manager struct {
	send    func(gomidi.Message) error
	surface *performance.ControlSurface

	velMin   int
	velMax   int
	poll     time.Duration
	deadpan  bool
	override uint8 // literal-mode velocity override, 0 = keep original

	mu      sync.Mutex
	songs   []Song
	cur     int
	running bool
	done    chan struct{}
	lastErr error
	sched   *performance.Scheduler
	literal *performance.LiteralPlayer

	// Notify the TUI of state changes
	UpdateChan chan struct{}
}

// NewManager creates a session manager sending through the given transport
func NewManager(send func(gomidi.Message) error, songs []Song) *Manager {
	return &Manager{
		send:       send,
		surface:    performance.NewControlSurface(),
		velMin:     performance.DefaultVelMin,
		velMax:     performance.DefaultVelMax,
		poll:       performance.DefaultPollInterval,
		songs:      songs,
		UpdateChan: make(chan struct{}, 1),
	}
}

// SetVelocityClamp sets the velocity band for expressive runs
func (m *Manager) SetVelocityClamp(min, max int) {
	m.velMin, m.velMax = min, max
}

// SetPollInterval sets the dispatch poll interval
func (m *Manager) SetPollInterval(d time.Duration) {
	if d > 0 {
		m.poll = d
	}
}

// SetDeadpan flattens expressive parameters on load when set
func (m *Manager) SetDeadpan(deadpan bool) {
	m.deadpan = deadpan
}

// SetLiteralOverride fixes the note-on velocity used in literal playback;
// zero keeps the file's own velocities
func (m *Manager) SetLiteralOverride(v uint8) {
	m.override = v
}

// Surface returns the live control surface
func (m *Manager) Surface() *performance.ControlSurface {
	return m.surface
}

// Songs returns the song list
func (m *Manager) Songs() []Song {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.songs
}

// CurrentSong returns the selected song index and entry
func (m *Manager) CurrentSong() (int, Song) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.songs) == 0 {
		return -1, Song{}
	}
	return m.cur, m.songs[m.cur]
}

// SelectSong selects a song by index; out-of-range values are ignored
func (m *Manager) SelectSong(idx int) {
	m.mu.Lock()
	if idx >= 0 && idx < len(m.songs) {
		m.cur = idx
	}
	m.mu.Unlock()
	m.notify()
}

// Playing reports whether a run is active
func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// State describes the active run for display
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return "idle"
	}
	if m.literal != nil {
		return "literal"
	}
	if m.sched != nil {
		return m.sched.State().String()
	}
	return "idle"
}

// Err returns the error of the last finished run or of the last rejected
// Play, if any. Cleared when a run starts.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Play starts playback of the selected song on its own goroutine. Loading
// happens before the goroutine starts, so a malformed song fails here and
// nothing is sent. Returns ErrPlaybackActive if the previous run has not
// stopped yet; the run is claimed before loading, so two concurrent calls
// can never both start.
func (m *Manager) Play() error {
	m.mu.Lock()
	if m.running {
		m.lastErr = ErrPlaybackActive
		m.mu.Unlock()
		m.notify()
		return ErrPlaybackActive
	}
	if len(m.songs) == 0 {
		err := errors.New("no songs configured")
		m.lastErr = err
		m.mu.Unlock()
		m.notify()
		return err
	}
	song := m.songs[m.cur]
	m.running = true
	m.lastErr = nil
	m.sched = nil
	m.literal = nil
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	debug.Log("session", "play: %s", song.Path)

	// The claim is released on a failed load so the next Play can try again
	abort := func(err error) error {
		m.mu.Lock()
		m.running = false
		m.lastErr = err
		m.mu.Unlock()
		close(done)
		m.notify()
		return err
	}

	var run func() error
	if song.Literal() {
		events, err := performance.LoadSMF(song.Path)
		if err != nil {
			return abort(fmt.Errorf("load %s: %w", song.Path, err))
		}
		// Stretch is sampled once, here; literal playback does not follow
		// the surface afterwards.
		lp := performance.NewLiteralPlayer(m.send, m.surface.Tempo(), m.override)
		m.mu.Lock()
		m.literal = lp
		m.mu.Unlock()
		run = func() error { return lp.Run(events) }
	} else {
		perf, err := performance.Load(song.Path, m.deadpan)
		if err != nil {
			return abort(fmt.Errorf("load %s: %w", song.Path, err))
		}
		sched := performance.NewScheduler(m.send, m.surface)
		sched.SetVelocityClamp(m.velMin, m.velMax)
		sched.SetPollInterval(m.poll)
		m.mu.Lock()
		m.sched = sched
		m.mu.Unlock()
		run = func() error { return sched.Run(perf) }
	}

	m.notify()

	go func() {
		err := run()
		if err != nil {
			debug.Log("session", "run failed: %v", err)
		}
		m.mu.Lock()
		m.lastErr = err
		m.running = false
		m.mu.Unlock()
		close(done)
		m.notify()
	}()

	return nil
}

// Stop requests the active run to stop. Safe to call when idle.
func (m *Manager) Stop() {
	m.mu.Lock()
	sched, lit := m.sched, m.literal
	m.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	if lit != nil {
		lit.Stop()
	}
}

// Wait joins the active run, blocking until it reaches Stopped. Returns
// immediately when idle.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// SetTempo forwards a tempo multiplier to the control surface
func (m *Manager) SetTempo(mult float64) {
	m.surface.SetTempo(mult)
	m.notify()
}

// SetVelocity forwards a velocity level to the control surface
func (m *Manager) SetVelocity(vel int) {
	m.surface.SetVelocity(vel)
	m.notify()
}

// SetScaler forwards a dynamics scaler to the control surface
func (m *Manager) SetScaler(s float64) {
	m.surface.SetScaler(s)
	m.notify()
}

func (m *Manager) notify() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
