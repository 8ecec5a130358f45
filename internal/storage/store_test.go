package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/hapsim/internal/bridge"
)

func samples() []bridge.Snapshot {
	return []bridge.Snapshot{
		{
			Time:    0.01,
			Objects: []bridge.ObjectState{{Name: "s1", Position: mgl64.Vec3{0, 0, 1}}},
		},
		{
			Time:        0.02,
			Contacts:    4,
			CursorForce: mgl64.Vec3{0.5, 0, 0},
			Objects: []bridge.ObjectState{
				{Name: "s1", Position: mgl64.Vec3{0, 0, 0.9}},
				{Name: "s2", Position: mgl64.Vec3{1, 2, 3}},
			},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Scenario:   "drop",
		Preset:     "earth",
		Integrator: "rk4",
		Steps:      2,
		Metrics:    map[string]float64{"energy": 1.5},
	}
	runID, err := st.Save(meta, samples())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got.Scenario != "drop" || got.ID != runID {
		t.Errorf("expected scenario 'drop' as %s, got '%s' as %s", runID, got.Scenario, got.ID)
	}

	if got.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", got.Metrics["energy"])
	}

	tr, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}

	if len(tr.Times) != 2 || tr.Times[1] != 0.02 {
		t.Errorf("expected 2 times, got %v", tr.Times)
	}

	z, ok := tr.Column("s1.z")
	if !ok || z[0] != 1 || z[1] != 0.9 {
		t.Errorf("s1.z = %v", z)
	}
	x, _ := tr.Column("s2.x")
	if !math.IsNaN(x[0]) || x[1] != 1 {
		t.Errorf("s2.x = %v, want NaN before it exists", x)
	}
	c, _ := tr.Column("contacts")
	if c[1] != 4 {
		t.Errorf("contacts = %v", c)
	}
	if _, ok := tr.Column("s3.x"); ok {
		t.Error("unknown column found")
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(filepath.Join(tmpDir, "runs"))

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	first, err := st.Save(RunMetadata{Scenario: "drop"}, samples())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := st.Save(RunMetadata{Scenario: "grasp"}, nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(st.baseDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 2 || runs[0].ID != first || runs[1].ID != second {
		t.Errorf("expected [%s %s], got %+v", first, second, runs)
	}

	tr, err := st.LoadTrace(second)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	if len(tr.Rows) != 0 {
		t.Errorf("expected empty trace, got %d rows", len(tr.Rows))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Scenario: "pendulum"}, samples())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}

	if _, err := os.Stat(filepath.Join(runDir, "trace.csv")); os.IsNotExist(err) {
		t.Error("trace.csv not created")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{Scenario: "drop"}, samples()); err != nil {
		t.Fatal(err)
	}

	var back ExportData
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Steps != 2 || back.Meta.Scenario != "drop" {
		t.Errorf("export = %+v", back)
	}
	if back.Samples[1].Objects[1].Position != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("s2 = %+v", back.Samples[1].Objects[1])
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSONFile(path, RunMetadata{}, samples()); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("export file: %v", err)
	}
}

func TestTrajectorySVG(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save(RunMetadata{Scenario: "drop"}, samples())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := TrajectorySVG(&buf, tr, "s1", "xz", 200, 100, "#00ff00"); err != nil {
		t.Fatal(err)
	}
	svg := buf.String()
	if !strings.HasPrefix(svg, "<?xml") || !strings.Contains(svg, "</svg>") {
		t.Fatalf("not an svg document:\n%s", svg)
	}
	if n := strings.Count(svg, " L"); n != 1 {
		t.Errorf("path has %d segments, want 1", n)
	}

	tests := []struct {
		name   string
		object string
		plane  string
	}{
		{"unknown object", "s9", "xz"},
		{"one sample", "s2", "xz"},
		{"bad plane", "s1", "xw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TrajectorySVG(io.Discard, tr, tt.object, tt.plane, 200, 100, "#fff")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.plane == "xz" && !errors.Is(err, ErrNoTrajectory) {
				t.Errorf("err = %v, want ErrNoTrajectory", err)
			}
		})
	}
}
