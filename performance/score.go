package performance

// ScorePosition holds the precomputed expressive parameters for every note
// starting at one score time. The per-note slices are parallel and share
// their length; IOI and LBPR apply to the position as a whole.
type ScorePosition struct {
	Onset float64 // score time in beats, the map key
	IOI   float64 // beats since the previous position (0 for the first)
	LBPR  float64 // log2 beat-period ratio

	Pitch    []uint8
	Duration []float64 // nominal duration in beats
	VelTrend []float64 // velocity trend scalar
	VelDev   []float64 // velocity deviation
	Timing   []float64 // per-note onset deviation
	LogArt   []float64 // log2 articulation ratio
	Melody   []bool    // melody lead flag
}

// NumNotes returns how many notes sound at this position
func (p *ScorePosition) NumNotes() int {
	return len(p.Pitch)
}

// Performance is a score annotated with expressive parameters, ordered by
// ascending onset. Positions are immutable once loaded; a playback run
// iterates them exactly once.
type Performance struct {
	Positions []ScorePosition
}

// Len returns the number of score positions
func (p *Performance) Len() int {
	return len(p.Positions)
}
