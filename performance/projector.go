package performance

import (
	"math"
	"sort"
)

// Notes holds the projected output for one score position: parallel arrays
// sorted by ascending onset (stable, ties keep score order). Onsets are
// seconds since the playback clock; velocities are already clamped.
type Notes struct {
	Pitch    []uint8
	Onset    []float64
	Duration []float64
	Velocity []uint8
}

// Len returns the number of projected notes
func (n *Notes) Len() int {
	return len(n.Pitch)
}

// Project maps one score position to concrete per-note onset, duration and
// velocity under the given control snapshot. eqOnset is the running
// equivalent-onset accumulator seeded by the caller; the advanced value is
// returned to seed the next position. Pure: no I/O, inputs untouched.
//
//	eq'     = eq + 2^lbpr * tempo * ioi
//	onset_i = eq' - tim_i
//	dur_i   = 2^lart_i * tempo * dur_i
//	vel_i   = clip(round(vt_i * velocity - vd_i), velMin, velMax)
func Project(pos *ScorePosition, eqOnset float64, snap Snapshot, velMin, velMax int) (Notes, float64) {
	n := pos.NumNotes()

	lbpr := pos.LBPR
	f := 1.0
	if snap.Scaler > 0 {
		// Dynamics scaler rescales the expressive deviations around their
		// neutral values; 100 keeps the full prediction.
		f = snap.Scaler / 100
		lbpr *= f
	}

	eq := eqOnset + math.Exp2(lbpr)*snap.Tempo*pos.IOI

	onsets := make([]float64, n)
	durs := make([]float64, n)
	vels := make([]uint8, n)
	for i := 0; i < n; i++ {
		vt, vd, tim, lart := pos.VelTrend[i], pos.VelDev[i], pos.Timing[i], pos.LogArt[i]
		if snap.Scaler > 0 {
			vt = 1 + (vt-1)*f
			vd *= f
			tim *= f
			lart *= f
		}
		onsets[i] = eq - tim
		durs[i] = math.Exp2(lart) * snap.Tempo * pos.Duration[i]

		vel := int(math.Round(vt*float64(snap.Velocity) - vd))
		if vel < velMin {
			vel = velMin
		}
		if vel > velMax {
			vel = velMax
		}
		vels[i] = uint8(vel)
	}

	// Chord members carry distinct micro-timing; emit in performed order
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return onsets[idx[a]] < onsets[idx[b]] })

	notes := Notes{
		Pitch:    make([]uint8, n),
		Onset:    make([]float64, n),
		Duration: make([]float64, n),
		Velocity: make([]uint8, n),
	}
	for out, in := range idx {
		notes.Pitch[out] = pos.Pitch[in]
		notes.Onset[out] = onsets[in]
		notes.Duration[out] = durs[in]
		notes.Velocity[out] = vels[in]
	}

	return notes, eq
}
