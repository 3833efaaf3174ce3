package performance

import (
	"os"
	"path/filepath"
	"testing"
)

func writePreds(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preds.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const samplePreds = `# pitch onset duration vel_trend vel_dev log_bpr timing log_art melody
60 0.0 1.0 1.0  0.0 0.0 0.00  0.0 0
64 0.0 1.0 1.1 -2.0 0.0 0.01  0.0 1
62 1.5 0.5 0.9  1.0 0.1 0.00 -0.2 0
`

func TestLoadGroupsByOnset(t *testing.T) {
	perf, err := Load(writePreds(t, samplePreds), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if perf.Len() != 2 {
		t.Fatalf("positions = %d, want 2", perf.Len())
	}

	first := perf.Positions[0]
	if first.NumNotes() != 2 {
		t.Errorf("first position notes = %d, want 2", first.NumNotes())
	}
	if first.IOI != 0 {
		t.Errorf("first IOI = %v, want 0", first.IOI)
	}
	if first.Pitch[0] != 60 || first.Pitch[1] != 64 {
		t.Errorf("first pitches = %v, want [60 64]", first.Pitch)
	}
	if !first.Melody[1] || first.Melody[0] {
		t.Errorf("melody flags = %v, want [false true]", first.Melody)
	}

	second := perf.Positions[1]
	if second.IOI != 1.5 {
		t.Errorf("second IOI = %v, want 1.5", second.IOI)
	}
	if second.LBPR != 0 {
		t.Errorf("second LBPR = %v", second.LBPR)
	}
	if second.LogArt[0] != -0.2 {
		t.Errorf("second log articulation = %v, want -0.2", second.LogArt[0])
	}
}

func TestLoadDeadpanFlattens(t *testing.T) {
	perf, err := Load(writePreds(t, samplePreds), true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, pos := range perf.Positions {
		if pos.LBPR != 0 {
			t.Errorf("deadpan LBPR = %v, want 0", pos.LBPR)
		}
		for i := range pos.Pitch {
			if pos.VelTrend[i] != 1 || pos.VelDev[i] != 0 || pos.Timing[i] != 0 || pos.LogArt[i] != 0 {
				t.Errorf("deadpan left expressive values at note %d: %+v", i, pos)
			}
		}
	}
}

func TestLoadUnsortedRows(t *testing.T) {
	perf, err := Load(writePreds(t, "62 1.0 0.5 1 0 0 0 0 0\n60 0.0 1.0 1 0 0 0 0 0\n"), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if perf.Positions[0].Onset != 0 || perf.Positions[1].Onset != 1.0 {
		t.Errorf("positions not in ascending onset order: %v, %v",
			perf.Positions[0].Onset, perf.Positions[1].Onset)
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"short row":   "60 0.0 1.0\n",
		"bad number":  "60 zero 1.0 1 0 0 0 0 0\n",
		"bad pitch":   "300 0.0 1.0 1 0 0 0 0 0\n",
		"empty":       "",
		"only header": "# nothing\n",
	}
	for name, content := range cases {
		if _, err := Load(writePreds(t, content), false); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt"), false); err == nil {
		t.Error("want error for missing file")
	}
}
