package performance

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func TestLoadSMF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(960)
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 60, 80))
	tr.Add(960, gomidi.NoteOff(0, 60)) // one quarter note at 120 bpm = 0.5s
	tr.Close(0)
	if err := sm.Add(tr); err != nil {
		t.Fatal(err)
	}
	if err := sm.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	events, err := LoadSMF(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (meta events dropped)", len(events))
	}
	if events[0].At != 0 {
		t.Errorf("first event at %v, want 0", events[0].At)
	}
	if math.Abs(events[1].At-0.5) > 0.01 {
		t.Errorf("second event at %v, want 0.5", events[1].At)
	}
	for i := 1; i < len(events); i++ {
		if events[i].At < events[i-1].At {
			t.Errorf("events not time-ordered at %d", i)
		}
	}
}

func TestLoadSMFMissing(t *testing.T) {
	if _, err := LoadSMF(filepath.Join(t.TempDir(), "nope.mid")); err == nil {
		t.Error("want error for missing file")
	}
}

func TestLiteralVelocityOverride(t *testing.T) {
	rec := newRecorder()
	lp := NewLiteralPlayer(rec.send, 1, 99)

	events := []LiteralEvent{
		{At: 0, Msg: gomidi.NoteOn(0, 60, 80)},
		{At: 0.01, Msg: gomidi.NoteOn(0, 62, 0)}, // zero velocity = note off
		{At: 0.02, Msg: gomidi.NoteOff(0, 60)},
	}
	if err := lp.Run(events); err != nil {
		t.Fatalf("run: %v", err)
	}

	sent := rec.snapshot()
	if len(sent) != 3 {
		t.Fatalf("sent = %d, want 3", len(sent))
	}

	var ch, key, vel uint8
	if !sent[0].msg.GetNoteStart(&ch, &key, &vel) || vel != 99 {
		t.Errorf("sounding note-on should carry the override: %v", sent[0].msg)
	}
	if !sent[1].msg.GetNoteEnd(&ch, &key) {
		t.Errorf("zero-velocity note-on must pass through unmodified: %v", sent[1].msg)
	}
	if !sent[2].msg.GetNoteEnd(&ch, &key) || key != 60 {
		t.Errorf("note-off must pass through unmodified: %v", sent[2].msg)
	}
}

func TestLiteralNoOverrideKeepsVelocity(t *testing.T) {
	rec := newRecorder()
	lp := NewLiteralPlayer(rec.send, 1, 0)

	if err := lp.Run([]LiteralEvent{{At: 0, Msg: gomidi.NoteOn(0, 60, 80)}}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var ch, key, vel uint8
	if !rec.snapshot()[0].msg.GetNoteStart(&ch, &key, &vel) || vel != 80 {
		t.Errorf("velocity should be untouched without an override")
	}
}

func TestLiteralTempoStretch(t *testing.T) {
	rec := newRecorder()
	lp := NewLiteralPlayer(rec.send, 0.1, 0)

	events := []LiteralEvent{
		{At: 0, Msg: gomidi.NoteOn(0, 60, 80)},
		{At: 1.0, Msg: gomidi.NoteOff(0, 60)},
	}
	start := time.Now()
	if err := lp.Run(events); err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("run took %v; stretch 0.1 should compress the 1s gap", elapsed)
	}
}

// A dead transport during the stop flush must not turn the stop into a
// failure; the flush keeps going and Run still returns cleanly.
func TestLiteralStopFlushBestEffort(t *testing.T) {
	rec := newRecorder()
	rec.failAfter = 1 // accept the note-on, fail everything after
	lp := NewLiteralPlayer(rec.send, 1, 0)

	events := []LiteralEvent{
		{At: 0, Msg: gomidi.NoteOn(0, 60, 80)},
		{At: 5.0, Msg: gomidi.NoteOff(0, 60)},
	}

	done := make(chan error, 1)
	go func() { done <- lp.Run(events) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.countStarts() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("note-on never sent")
		}
		time.Sleep(time.Millisecond)
	}

	lp.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stop flush must stay best effort, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("literal player did not stop")
	}
}

func TestLiteralStopFlushesSounding(t *testing.T) {
	rec := newRecorder()
	lp := NewLiteralPlayer(rec.send, 1, 0)

	events := []LiteralEvent{
		{At: 0, Msg: gomidi.NoteOn(0, 60, 80)},
		{At: 5.0, Msg: gomidi.NoteOff(0, 60)},
	}

	done := make(chan error, 1)
	go func() { done <- lp.Run(events) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.countStarts() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("note-on never sent")
		}
		time.Sleep(time.Millisecond)
	}

	lp.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("literal player did not stop")
	}

	if rec.countEnds() != 1 {
		t.Errorf("note-offs = %d, want 1 flushed on stop", rec.countEnds())
	}
}
