package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/hapsim/internal/bridge"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	PhysicsRate float64            `json:"physics_rate"`
	HapticRate  float64            `json:"haptic_rate"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Integrator  string             `json:"integrator"`
	Device      string             `json:"device"`
	Rejected    int                `json:"rejected"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes meta and the sampled trace under a new run directory and
// returns the run ID.
func (s *Store) Save(meta RunMetadata, samples []bridge.Snapshot) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Scenario, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trace.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := writeTrace(w, samples); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return runID, nil
}

// objectNames lists every object seen in samples, in order of appearance.
func objectNames(samples []bridge.Snapshot) []string {
	var names []string
	seen := make(map[string]bool)
	for _, snap := range samples {
		for _, o := range snap.Objects {
			if !seen[o.Name] {
				seen[o.Name] = true
				names = append(names, o.Name)
			}
		}
	}
	return names
}

func writeTrace(w *csv.Writer, samples []bridge.Snapshot) error {
	if len(samples) == 0 {
		return nil
	}
	names := objectNames(samples)

	header := []string{"time", "contacts", "force.x", "force.y", "force.z"}
	for _, n := range names {
		header = append(header, n+".x", n+".y", n+".z")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, snap := range samples {
		row := []string{format(snap.Time), strconv.Itoa(snap.Contacts)}
		for _, v := range snap.CursorForce {
			row = append(row, format(v))
		}
		for _, n := range names {
			if o, ok := snap.Find(n); ok {
				row = append(row, format(o.Position.X()), format(o.Position.Y()), format(o.Position.Z()))
			} else {
				row = append(row, "NaN", "NaN", "NaN")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Trace is a stored run read back as columns.
type Trace struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Column returns the values of the named column over time.
func (t *Trace) Column(name string) ([]float64, bool) {
	for i, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Rows))
		for j, row := range t.Rows {
			out[j] = math.NaN()
			if i < len(row) {
				out[j] = row[i]
			}
		}
		return out, true
	}
	return nil, false
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &Trace{}
	if len(records) == 0 {
		return tr, nil
	}
	tr.Columns = records[0]

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row := make([]float64, len(record))
		for j, field := range record {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				val = math.NaN()
			}
			row[j] = val
		}
		tr.Times = append(tr.Times, row[0])
		tr.Rows = append(tr.Rows, row)
	}
	return tr, nil
}
