// Package content ingests raw question records from question bank files.
// It is a collaborator of the graph builder: it reads and shape-checks
// external data, the builder decides graph-level validity.
package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fastwise/tutr/internal/graph"
)

// Stats reports what an ingestion pass consumed.
type Stats struct {
	Files   int `json:"files"`
	Records int `json:"records"`
}

// LoadFile loads question records from a single bank file. The format is
// chosen by extension: .json, .yaml/.yml, or .xlsx.
func LoadFile(path string) ([]graph.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported question bank format: %s", path)
	}
}

// LoadDir walks root and loads every recognized question bank file.
// Unreadable or malformed files are skipped with a warning; the graph
// builder still rejects the batch if the surviving records are invalid.
func LoadDir(root string) ([]graph.Record, Stats, error) {
	var records []graph.Record
	var stats Stats

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml", ".xlsx":
		default:
			return nil
		}

		recs, err := LoadFile(path)
		if err != nil {
			slog.Warn("skipping question bank file", "path", path, "error", err)
			return nil
		}
		records = append(records, recs...)
		stats.Files++
		stats.Records += len(recs)
		return nil
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("walking %s: %w", root, err)
	}

	slog.Info("question banks loaded", "files", stats.Files, "records", stats.Records)
	return records, stats, nil
}

// Load loads records from a file or, if path is a directory, from every
// bank file under it.
func Load(path string) ([]graph.Record, Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("question bank path: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	records, err := LoadFile(path)
	if err != nil {
		return nil, Stats{}, err
	}
	return records, Stats{Files: 1, Records: len(records)}, nil
}

func loadJSON(path string) ([]graph.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := validateJSONBank(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var records []graph.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

func loadYAML(path string) ([]graph.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []graph.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}
