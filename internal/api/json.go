package api

import (
	"strconv"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
)

func parseIndex(raw string) (int, error) {
	return strconv.Atoi(raw)
}

// JSON views keep the wire shapes stable independently of the model
// structs.

type eventJSON struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	EventType string         `json:"event_type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func eventsJSON(events []model.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Actor:     e.Actor,
			EventType: e.EventType,
			Content:   e.Content,
			Metadata:  e.Metadata,
		})
	}
	return out
}

type interactionJSON struct {
	ID      string    `json:"id"`
	FileID  string    `json:"file_id"`
	Prompt  string    `json:"prompt"`
	Model   string    `json:"model,omitempty"`
	ShownAt time.Time `json:"shown_at"`
	Phase   string    `json:"phase"`
}

func interactionsJSON(interactions []model.Interaction) []interactionJSON {
	out := make([]interactionJSON, 0, len(interactions))
	for _, in := range interactions {
		out = append(out, interactionJSON{
			ID:      in.ID,
			FileID:  in.FileID,
			Prompt:  in.Prompt,
			Model:   in.Model,
			ShownAt: in.ShownAt,
			Phase:   in.Phase,
		})
	}
	return out
}

type decisionJSON struct {
	ID            string    `json:"id"`
	SuggestionID  string    `json:"suggestion_id"`
	ChunkIndex    int       `json:"chunk_index"`
	Decision      string    `json:"decision"`
	TimeOnChunkMS int       `json:"time_on_chunk_ms"`
	DecidedAt     time.Time `json:"decided_at"`
}

func decisionsJSON(decisions []model.ChunkDecision) []decisionJSON {
	out := make([]decisionJSON, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, decisionJSON{
			ID:            d.ID,
			SuggestionID:  d.SuggestionID,
			ChunkIndex:    d.ChunkIndex,
			Decision:      string(d.Decision),
			TimeOnChunkMS: d.TimeOnChunkMS,
			DecidedAt:     d.DecidedAt,
		})
	}
	return out
}

type suggestionView struct {
	ID            string     `json:"id"`
	InteractionID string     `json:"interaction_id"`
	FileID        string     `json:"file_id"`
	HunksCount    *int       `json:"hunks_count"`
	ShownAt       time.Time  `json:"shown_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	AllAccepted   *bool      `json:"all_accepted,omitempty"`
	AnyModified   *bool      `json:"any_modified,omitempty"`
}

func suggestionJSON(sg *model.Suggestion) suggestionView {
	return suggestionView{
		ID:            sg.ID,
		InteractionID: sg.InteractionID,
		FileID:        sg.FileID,
		HunksCount:    sg.HunksCount,
		ShownAt:       sg.ShownAt,
		ResolvedAt:    sg.ResolvedAt,
		AllAccepted:   sg.AllAccepted,
		AnyModified:   sg.AnyModified,
	}
}

// overviewEntry is one row of the analytics overview. Score and Label
// stay null until the session has been scored.
type overviewEntry struct {
	SessionID     string     `json:"session_id"`
	Username      string     `json:"username"`
	ProjectName   string     `json:"project_name"`
	Status        string     `json:"status"`
	Score         *float64   `json:"score"`
	Label         *string    `json:"label"`
	StartedAt     time.Time  `json:"started_at"`
	DateSubmitted *time.Time `json:"date_submitted"`
}

type scoreView struct {
	SessionID          string    `json:"session_id"`
	ComputedAt         time.Time `json:"computed_at"`
	BehavioralScore    float64   `json:"behavioral_score"`
	BehavioralLabel    string    `json:"behavioral_label"`
	PromptScore        float64   `json:"prompt_score"`
	ReviewScore        float64   `json:"review_score"`
	WeightedScore      float64   `json:"weighted_score"`
	OverallLabel       string    `json:"overall_label"`
	FallbackComponents []string  `json:"fallback_components,omitempty"`
	Narrative          string    `json:"narrative"`
}

func scoreJSON(sc *model.SessionScore) scoreView {
	return scoreView{
		SessionID:          sc.SessionID,
		ComputedAt:         sc.ComputedAt,
		BehavioralScore:    sc.BehavioralScore,
		BehavioralLabel:    sc.BehavioralLabel,
		PromptScore:        sc.PromptScore,
		ReviewScore:        sc.ReviewScore,
		WeightedScore:      sc.WeightedScore,
		OverallLabel:       sc.OverallLabel,
		FallbackComponents: sc.FallbackComponents,
		Narrative:          sc.Narrative,
	}
}
