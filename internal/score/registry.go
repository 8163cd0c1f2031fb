package score

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/akshatvasisht/oversite/internal/feature"
	"github.com/akshatvasisht/oversite/internal/model"
)

// Classifier predicts a behavioral label from a feature vector.
type Classifier interface {
	Predict(v feature.Vector) string
}

// behavioralArtifact is the JSON file a trained classifier exports. It is
// a linear model over a subset of the feature vector: one weight row and
// bias per label, evaluated at the listed indices.
const behavioralArtifact = "behavioral_classifier.json"

// resultCacheSize bounds the number of recent session scores kept in
// memory for repeated reads.
const resultCacheSize = 128

type weightArtifact struct {
	Labels      []string           `json:"labels"`
	Indices     []int              `json:"indices"`
	Weights     [][]float64        `json:"weights"`
	Bias        []float64          `json:"bias"`
	Importances map[string]float64 `json:"feature_importances,omitempty"`
}

func (a *weightArtifact) validate() error {
	if len(a.Labels) == 0 {
		return fmt.Errorf("artifact has no labels")
	}
	if len(a.Weights) != len(a.Labels) || len(a.Bias) != len(a.Labels) {
		return fmt.Errorf("artifact shape mismatch: %d labels, %d weight rows, %d biases",
			len(a.Labels), len(a.Weights), len(a.Bias))
	}
	for i, row := range a.Weights {
		if len(row) != len(a.Indices) {
			return fmt.Errorf("weight row %d has %d entries, want %d", i, len(row), len(a.Indices))
		}
	}
	for _, idx := range a.Indices {
		if idx < 0 || idx >= feature.VectorLen {
			return fmt.Errorf("artifact index %d out of range", idx)
		}
	}
	return nil
}

// Predict scores every label and returns the highest.
func (a *weightArtifact) Predict(v feature.Vector) string {
	best := 0
	var bestScore float64
	for k := range a.Labels {
		s := a.Bias[k]
		for j, idx := range a.Indices {
			s += a.Weights[k][j] * v[idx]
		}
		if k == 0 || s > bestScore {
			best, bestScore = k, s
		}
	}
	return a.Labels[best]
}

// Registry owns the loaded model artifacts and a bounded cache of recent
// scoring results. Artifacts load lazily on first use and can be swapped
// at runtime with Reset. Safe for concurrent use.
type Registry struct {
	mu            sync.Mutex
	dir           string
	forceFallback bool
	loaded        bool
	behavioral    *weightArtifact

	results *lru.Cache[string, *model.SessionScore]
}

// NewRegistry creates a registry reading artifacts from dir. When
// forceFallback is set, no artifact is loaded and every behavioral
// evaluation takes the neutral fallback path.
func NewRegistry(dir string, forceFallback bool) *Registry {
	cache, err := lru.New[string, *model.SessionScore](resultCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Registry{dir: dir, forceFallback: forceFallback, results: cache}
}

// Behavioral returns the loaded classifier, or nil when unavailable.
func (r *Registry) Behavioral() Classifier {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forceFallback {
		return nil
	}
	r.loadLocked()
	if r.behavioral == nil {
		return nil
	}
	return r.behavioral
}

// Importances returns the feature importances exported with the
// behavioral artifact, or nil when no artifact is loaded.
func (r *Registry) Importances() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forceFallback {
		return nil
	}
	r.loadLocked()
	if r.behavioral == nil {
		return nil
	}
	return r.behavioral.Importances
}

func (r *Registry) loadLocked() {
	if r.loaded {
		return
	}
	r.loaded = true

	if r.dir == "" {
		return
	}
	path := filepath.Join(r.dir, behavioralArtifact)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("registry: reading %s: %v", path, err)
		}
		return
	}

	var art weightArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		log.Printf("registry: parsing %s: %v", path, err)
		return
	}
	if err := art.validate(); err != nil {
		log.Printf("registry: rejecting %s: %v", path, err)
		return
	}
	r.behavioral = &art
}

// Reset drops the loaded artifacts and the result cache so the next use
// reloads from disk.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.behavioral = nil
	r.results.Purge()
}

// CacheResult stores a computed score for quick re-reads.
func (r *Registry) CacheResult(sessionID string, s *model.SessionScore) {
	r.results.Add(sessionID, s)
}

// CachedResult returns the cached score for a session, if present.
func (r *Registry) CachedResult(sessionID string) (*model.SessionScore, bool) {
	return r.results.Get(sessionID)
}
