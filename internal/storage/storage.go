// Package storage persists parsed documents, per-document extraction
// output and graph snapshots as JSON files, the interop format the rest
// of the toolchain reads.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agenthands/cobalt/internal/core/graph"
	"github.com/agenthands/cobalt/internal/core/model"
)

type Store struct {
	baseDir string
}

func New(baseDir string) (*Store, error) {
	for _, sub := range []string{"documents", "entities", "claims", "hypotheses", "graphs"} {
		if err := os.MkdirAll(filepath.Join(baseDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) SaveDocument(doc model.DocumentRecord) error {
	return s.writeJSON(filepath.Join("documents", doc.DocID+".json"), doc)
}

func (s *Store) LoadDocument(docID string) (model.DocumentRecord, error) {
	var doc model.DocumentRecord
	err := s.readJSON(filepath.Join("documents", docID+".json"), &doc)
	return doc, err
}

// ListDocuments returns the ids of every stored document, sorted.
func (s *Store) ListDocuments() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "documents"))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".json"); ok {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) SaveEntities(docID string, entities []model.EntityRecord) error {
	return s.writeJSON(filepath.Join("entities", docID+"_entities.json"), entities)
}

func (s *Store) LoadEntities(docID string) ([]model.EntityRecord, error) {
	var out []model.EntityRecord
	err := s.readJSON(filepath.Join("entities", docID+"_entities.json"), &out)
	return out, err
}

func (s *Store) SaveClaims(docID string, claims []model.ClaimRecord) error {
	return s.writeJSON(filepath.Join("claims", docID+"_claims.json"), claims)
}

func (s *Store) LoadClaims(docID string) ([]model.ClaimRecord, error) {
	var out []model.ClaimRecord
	err := s.readJSON(filepath.Join("claims", docID+"_claims.json"), &out)
	return out, err
}

func (s *Store) SaveHypotheses(docID string, hyps []model.HypothesisRecord) error {
	return s.writeJSON(filepath.Join("hypotheses", docID+"_hypotheses.json"), hyps)
}

func (s *Store) LoadHypotheses(docID string) ([]model.HypothesisRecord, error) {
	var out []model.HypothesisRecord
	err := s.readJSON(filepath.Join("hypotheses", docID+"_hypotheses.json"), &out)
	return out, err
}

// SaveSnapshot writes a timestamped graph snapshot and returns its path.
func (s *Store) SaveSnapshot(name string, snap *graph.Snapshot) (string, error) {
	stamp := time.Now().UTC().Format("20060102_150405")
	rel := filepath.Join("graphs", fmt.Sprintf("%s_%s.json", name, stamp))
	if err := s.writeJSON(rel, snap); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, rel), nil
}

// LoadSnapshot reads a snapshot back from an absolute or base-relative
// path.
func (s *Store) LoadSnapshot(path string) (*graph.Snapshot, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func (s *Store) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.baseDir, rel)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readJSON(rel string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, rel))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
