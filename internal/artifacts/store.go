package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bankops/retail-analytics/internal/risk"
	"github.com/bankops/retail-analytics/pkg/models"
)

// Exactly two named artifacts make up a model pair. They are written and
// loaded together or not at all.
const (
	scalerFile = "scaler.json"
	modelFile  = "loan_risk_model.json"
)

// Store persists the trained artifact pair as JSON blobs on disk. Writes go
// through a temp file and rename, so a reader never observes a partial file.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// modelEnvelope carries the classifier plus the pair-level metadata
type modelEnvelope struct {
	Classifier *risk.GradientBoostedClassifier `json:"classifier"`
	Schema     []string                        `json:"schema"`
	TrainedAt  time.Time                       `json:"trained_at"`
	AUC        float64                         `json:"auc"`
	TrainRows  int                             `json:"train_rows"`
	TestRows   int                             `json:"test_rows"`
}

// Save writes both artifacts
func (s *Store) Save(pair *risk.ArtifactPair) error {
	if pair == nil || pair.Scaler == nil || pair.Classifier == nil {
		return fmt.Errorf("cannot save incomplete artifact pair")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	if err := s.writeJSON(scalerFile, pair.Scaler); err != nil {
		return err
	}

	envelope := modelEnvelope{
		Classifier: pair.Classifier,
		Schema:     pair.Schema,
		TrainedAt:  pair.TrainedAt,
		AUC:        pair.AUC,
		TrainRows:  pair.TrainRows,
		TestRows:   pair.TestRows,
	}
	return s.writeJSON(modelFile, envelope)
}

// Load reads both artifacts. A missing file on either side yields
// ErrArtifactMissing; the pair is never half-loaded.
func (s *Store) Load() (*risk.ArtifactPair, error) {
	var scaler risk.StandardScaler
	if err := s.readJSON(scalerFile, &scaler); err != nil {
		return nil, err
	}

	var envelope modelEnvelope
	if err := s.readJSON(modelFile, &envelope); err != nil {
		return nil, err
	}
	if envelope.Classifier == nil {
		return nil, fmt.Errorf("model artifact %s has no classifier", modelFile)
	}

	return &risk.ArtifactPair{
		Scaler:     &scaler,
		Classifier: envelope.Classifier,
		Schema:     envelope.Schema,
		TrainedAt:  envelope.TrainedAt,
		AUC:        envelope.AUC,
		TrainRows:  envelope.TrainRows,
		TestRows:   envelope.TestRows,
	}, nil
}

func (s *Store) writeJSON(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	final := filepath.Join(s.dir, name)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.ErrArtifactMissing
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
