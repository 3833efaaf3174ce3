package performance

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// One row of a prediction file: per-note score info plus the precomputed
// expressive parameters.
type predRow struct {
	pitch    uint8
	onset    float64
	duration float64
	velTrend float64
	velDev   float64
	lbpr     float64
	timing   float64
	logArt   float64
	melody   bool
}

// Load reads a precomputed prediction file and groups its rows into score
// positions. Each line holds nine whitespace-separated columns:
//
//	pitch onset duration vel_trend vel_dev log_bpr timing log_art melody
//
// With deadpan set, the expressive columns are flattened to neutral values
// so the piece plays back mechanically.
func Load(path string, deadpan bool) (*Performance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	var rows []predRow
	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 9 {
			return nil, fmt.Errorf("predictions %s:%d: want 9 columns, got %d", path, lineNo, len(fields))
		}

		vals := make([]float64, 9)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("predictions %s:%d: column %d: %w", path, lineNo, i+1, err)
			}
			vals[i] = v
		}

		if vals[0] < 0 || vals[0] > 127 {
			return nil, fmt.Errorf("predictions %s:%d: pitch %v out of MIDI range", path, lineNo, vals[0])
		}

		row := predRow{
			pitch:    uint8(vals[0]),
			onset:    vals[1],
			duration: vals[2],
			velTrend: vals[3],
			velDev:   vals[4],
			lbpr:     vals[5],
			timing:   vals[6],
			logArt:   vals[7],
			melody:   vals[8] != 0,
		}
		if deadpan {
			row.velTrend = 1
			row.velDev = 0
			row.lbpr = 0
			row.timing = 0
			row.logArt = 0
			row.melody = false
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("predictions %s: no notes", path)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].onset < rows[j].onset })

	perf := &Performance{}
	prevOnset := rows[0].onset
	for i := 0; i < len(rows); {
		onset := rows[i].onset
		pos := ScorePosition{
			Onset: onset,
			IOI:   onset - prevOnset,
			LBPR:  rows[i].lbpr, // shared across the chord
		}
		for i < len(rows) && rows[i].onset == onset {
			r := rows[i]
			pos.Pitch = append(pos.Pitch, r.pitch)
			pos.Duration = append(pos.Duration, r.duration)
			pos.VelTrend = append(pos.VelTrend, r.velTrend)
			pos.VelDev = append(pos.VelDev, r.velDev)
			pos.Timing = append(pos.Timing, r.timing)
			pos.LogArt = append(pos.LogArt, r.logArt)
			pos.Melody = append(pos.Melody, r.melody)
			i++
		}
		perf.Positions = append(perf.Positions, pos)
		prevOnset = onset
	}

	return perf, nil
}
