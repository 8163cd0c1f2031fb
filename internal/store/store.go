// Package store persists sessions, telemetry, suggestions, and scores.
// Two implementations exist: an in-memory store for tests and ephemeral
// runs, and a SQLite store for everything else.
package store

import (
	"context"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
)

// Store is the persistence boundary. Lookups return model.ErrNotFound
// (wrapped) for missing rows. The multi-record operations ApplyDecision
// and ResolveSuggestion are atomic: either every record in the call is
// persisted or none is.
type Store interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	EndSession(ctx context.Context, id string, at time.Time) error

	CreateFile(ctx context.Context, f *model.File) error
	GetFile(ctx context.Context, id string) (*model.File, error)
	ListFiles(ctx context.Context, sessionID string) ([]model.File, error)

	AppendEvent(ctx context.Context, e *model.Event) error
	ListEvents(ctx context.Context, sessionID string) ([]model.Event, error)

	CreateInteraction(ctx context.Context, in *model.Interaction) error
	ListInteractions(ctx context.Context, sessionID string) ([]model.Interaction, error)

	CreateSuggestion(ctx context.Context, s *model.Suggestion) error
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)
	SetHunksCount(ctx context.Context, suggestionID string, count int) error

	GetDecision(ctx context.Context, suggestionID string, chunkIndex int) (*model.ChunkDecision, error)
	ListSuggestionDecisions(ctx context.Context, suggestionID string) ([]model.ChunkDecision, error)
	ListDecisions(ctx context.Context, sessionID string) ([]model.ChunkDecision, error)

	// ApplyDecision records a chunk decision together with its audit
	// event and, when the decision completes the suggestion, the
	// suggestion's resolution. res may be nil.
	ApplyDecision(ctx context.Context, d *model.ChunkDecision, audit *model.Event, res *model.Resolution) error

	// ResolveSuggestion marks a suggestion resolved together with the
	// final editor snapshot and the audit event. snap may be nil.
	ResolveSuggestion(ctx context.Context, res *model.Resolution, snap *model.EditorSnapshot, audit *model.Event) error

	SaveSnapshot(ctx context.Context, snap *model.EditorSnapshot) error
	LatestSnapshot(ctx context.Context, fileID string) (*model.EditorSnapshot, error)
	ListSnapshots(ctx context.Context, sessionID string) ([]model.EditorSnapshot, error)

	SaveScore(ctx context.Context, sc *model.SessionScore) error
	GetScore(ctx context.Context, sessionID string) (*model.SessionScore, error)
	SetNarrative(ctx context.Context, scoreID, narrative string) error

	Close() error
}
