package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/hapsim/internal/bridge"
)

type ExportData struct {
	Meta    RunMetadata       `json:"meta"`
	Steps   int               `json:"steps"`
	Samples []bridge.Snapshot `json:"samples"`
}

// ExportJSON writes a run and its full snapshots as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, samples []bridge.Snapshot) error {
	data := ExportData{
		Meta:    meta,
		Steps:   len(samples),
		Samples: samples,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, samples []bridge.Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, samples)
}
