// Package model defines the core data types shared across oversite.
package model

import "time"

// Decision is the candidate's judgment on a single hunk.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionModified Decision = "modified"
)

// Valid reports whether d is one of the three allowed decision values.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAccepted, DecisionRejected, DecisionModified:
		return true
	}
	return false
}

// Deliberation time bounds applied to every chunk decision, in milliseconds.
const (
	MinTimeOnChunkMS = 100
	MaxTimeOnChunkMS = 300000
)

// ClampTimeOnChunk forces ms into the [MinTimeOnChunkMS, MaxTimeOnChunkMS]
// range. Out-of-range values are clamped, never rejected.
func ClampTimeOnChunk(ms int) int {
	if ms < MinTimeOnChunkMS {
		return MinTimeOnChunkMS
	}
	if ms > MaxTimeOnChunkMS {
		return MaxTimeOnChunkMS
	}
	return ms
}

// Hunk is a single contiguous change block between two text versions.
// StartLine and EndLine are 1-based inclusive positions in the original
// text; for a pure insertion both hold the insert-after line marker and
// OriginalCode is empty.
type Hunk struct {
	Index             int    `json:"index"`
	OriginalCode      string `json:"original_code"`
	ProposedCode      string `json:"proposed_code"`
	StartLine         int    `json:"start_line"`
	EndLine           int    `json:"end_line"`
	ProposedCharCount int    `json:"proposed_char_count"`
}

// Session is one timed assessment exercise.
type Session struct {
	ID          string
	Username    string
	ProjectName string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// File is a workspace file the candidate edits during a session.
type File struct {
	ID             string
	SessionID      string
	Filename       string
	Language       string
	CreatedAt      time.Time
	InitialContent string
}

// Event is a single telemetry record in a session's audit trail.
type Event struct {
	ID        string
	SessionID string
	Timestamp time.Time
	Actor     string
	EventType string
	Content   string
	Metadata  map[string]any
}

// Event types recorded in the audit trail.
const (
	EventEdit       = "edit"
	EventExecute    = "execute"
	EventPanelFocus = "panel_focus"
	EventPrompt     = "prompt"
)

// Interaction phases, derived from the panel the candidate was in when
// the prompt was sent.
const (
	PhaseOrientation    = "orientation"
	PhaseImplementation = "implementation"
	PhaseVerification   = "verification"
)

// ValidPanels is the set of panel names accepted on panel_focus events.
var ValidPanels = map[string]bool{
	"editor":            true,
	"chat":              true,
	"filetree":          true,
	PhaseOrientation:    true,
	PhaseImplementation: true,
	PhaseVerification:   true,
}

// Interaction is one AI chat turn.
type Interaction struct {
	ID           string
	SessionID    string
	FileID       string
	Prompt       string
	Response     string
	Model        string
	PromptTokens int
	ShownAt      time.Time
	Phase        string
}

// Suggestion is one AI-proposed edit shown to the candidate. HunksCount
// is nil until the proposal has been decomposed. AllAccepted and
// AnyModified are derived on resolution and nil before it.
type Suggestion struct {
	ID              string
	InteractionID   string
	SessionID       string
	FileID          string
	OriginalContent string
	ProposedContent string
	HunksCount      *int
	ShownAt         time.Time
	ResolvedAt      *time.Time
	AllAccepted     *bool
	AnyModified     *bool
}

// Resolved reports whether the suggestion has reached its terminal state.
func (s *Suggestion) Resolved() bool { return s.ResolvedAt != nil }

// ChunkDecision is a write-once judgment on one hunk of one suggestion.
type ChunkDecision struct {
	ID                string
	SuggestionID      string
	SessionID         string
	FileID            string
	ChunkIndex        int
	OriginalCode      string
	ProposedCode      string
	FinalCode         string
	Decision          Decision
	ChunkStartLine    int
	ProposedCharCount int
	TimeOnChunkMS     int
	DecidedAt         time.Time
}

// Resolution captures the terminal state of a suggestion.
type Resolution struct {
	SuggestionID string
	ResolvedAt   time.Time
	AllAccepted  bool
	AnyModified  bool
}

// EditorSnapshot is a full-content capture of a file at a trigger point.
type EditorSnapshot struct {
	ID           string
	SessionID    string
	FileID       string
	Trigger      string
	Content      string
	EditDelta    string
	SuggestionID string
	Timestamp    time.Time
	CharCount    int
}

// SessionScore is the persisted result of the scoring pipeline.
type SessionScore struct {
	ID                 string
	SessionID          string
	ComputedAt         time.Time
	BehavioralScore    float64
	BehavioralLabel    string
	PromptScore        float64
	ReviewScore        float64
	WeightedScore      float64
	OverallLabel       string
	FallbackComponents []string
	Narrative          string
}

// Score labels in ascending order of assessed skill.
const (
	LabelOverReliant = "over_reliant"
	LabelBalanced    = "balanced"
	LabelStrategic   = "strategic"
)
