// Package feature converts raw session telemetry into the fixed-length
// numeric vector consumed by the behavioral classifiers.
package feature

import (
	"math"
	"sort"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
)

// VectorLen is the length of the feature vector. It is part of the
// external contract with the trained classifiers; changing it or the
// order of Names requires a version bump.
const VectorLen = 16

// Names lists the features in their fixed contract order.
var Names = [VectorLen]string{
	"rate_acceptance",
	"duration_deliberation_avg",
	"rate_post_acceptance_edit",
	"freq_verification",
	"ratio_reprompt",
	"rate_chunk_acceptance",
	"rate_passive_acceptance",
	"duration_chunk_avg_ms",
	"pct_time_editor",
	"pct_time_chat",
	"duration_orientation_s",
	"depth_iteration",
	"count_prompt_orientation",
	"count_prompt_implementation",
	"count_prompt_verification",
	"deliberation_to_action_ratio",
}

// Positions of individual features within the vector.
const (
	IdxRateAcceptance = iota
	IdxDeliberationAvg
	IdxPostAcceptanceEdit
	IdxFreqVerification
	IdxRatioReprompt
	IdxChunkAcceptance
	IdxPassiveAcceptance
	IdxChunkAvgMS
	IdxPctTimeEditor
	IdxPctTimeChat
	IdxOrientationDuration
	IdxIterationDepth
	IdxPromptOrientation
	IdxPromptImplementation
	IdxPromptVerification
	IdxDeliberationToAction
)

// Vector is one extracted feature vector in contract order.
type Vector [VectorLen]float64

// Slice returns the vector as a float64 slice.
func (v Vector) Slice() []float64 { return v[:] }

// DecisionRecord is the slice of a chunk decision the extractor reads.
type DecisionRecord struct {
	Decision      model.Decision
	TimeOnChunkMS int
	ProposedCode  string
	FinalCode     string
}

// EventRecord is the slice of an audit event the extractor reads.
type EventRecord struct {
	EventType string
	Content   string
	Timestamp time.Time
}

// InteractionRecord is the slice of an AI chat turn the extractor reads.
type InteractionRecord struct {
	Phase   string
	ShownAt time.Time
}

// Telemetry is the read-only bundle a session's features are computed
// from. Events are expected in, and sorted into, timestamp order.
type Telemetry struct {
	Decisions    []DecisionRecord
	Events       []EventRecord
	Interactions []InteractionRecord
	SessionStart time.Time
}

// repromptWindow is the maximum gap between consecutive prompts for the
// pair to count as a re-prompt.
const repromptWindow = 60 * time.Second

// Extract computes the feature vector from telemetry. It is pure, total,
// and deterministic: missing or empty collections contribute 0.0, and the
// result never contains NaN or Inf.
func Extract(t Telemetry) Vector {
	var v Vector

	extractDecisionFeatures(&v, t.Decisions)
	extractEventFeatures(&v, t.Events, t.SessionStart)
	extractInteractionFeatures(&v, t.Interactions)

	// Literal duplicates by construction: the classifier contract carries
	// passive acceptance and average chunk time as separate slots.
	v[IdxPassiveAcceptance] = v[IdxRateAcceptance]
	v[IdxChunkAvgMS] = v[IdxDeliberationAvg]

	if v[IdxPostAcceptanceEdit] != 0 {
		v[IdxDeliberationToAction] = v[IdxDeliberationAvg] / v[IdxPostAcceptanceEdit]
	} else {
		v[IdxDeliberationToAction] = v[IdxDeliberationAvg]
	}

	return sanitize(v)
}

func extractDecisionFeatures(v *Vector, decisions []DecisionRecord) {
	if len(decisions) == 0 {
		return
	}

	var accepted, engaged int
	var timed, timeSum float64
	var modified int
	var editRateSum float64

	for _, d := range decisions {
		switch d.Decision {
		case model.DecisionAccepted:
			accepted++
			engaged++
		case model.DecisionModified:
			engaged++
			modified++
			denom := float64(len(d.ProposedCode))
			if denom < 1 {
				denom = 1
			}
			editRateSum += math.Abs(float64(len(d.FinalCode)-len(d.ProposedCode))) / denom
		}
		if d.TimeOnChunkMS > 0 {
			timed++
			timeSum += float64(d.TimeOnChunkMS)
		}
	}

	total := float64(len(decisions))
	v[IdxRateAcceptance] = float64(accepted) / total
	v[IdxChunkAcceptance] = float64(engaged) / total
	if timed > 0 {
		v[IdxDeliberationAvg] = timeSum / timed
	}
	if modified > 0 {
		v[IdxPostAcceptanceEdit] = editRateSum / float64(modified)
	}
}

func extractEventFeatures(v *Vector, events []EventRecord, sessionStart time.Time) {
	if len(events) == 0 {
		return
	}

	ordered := make([]EventRecord, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var executes, panels, editorPanels, chatPanels int
	var cycles int
	editLatch := false
	orientationSet := false

	for _, e := range ordered {
		switch e.EventType {
		case model.EventExecute:
			executes++
			if editLatch {
				cycles++
				editLatch = false
			}
		case model.EventEdit:
			editLatch = true
		case model.EventPanelFocus:
			panels++
			switch e.Content {
			case "editor":
				editorPanels++
			case "chat":
				chatPanels++
			}
		}

		if !orientationSet && !sessionStart.IsZero() &&
			(e.EventType == model.EventEdit || e.EventType == model.EventPrompt) {
			v[IdxOrientationDuration] = e.Timestamp.Sub(sessionStart).Seconds()
			orientationSet = true
		}
	}

	v[IdxFreqVerification] = float64(executes) / float64(len(ordered))
	v[IdxIterationDepth] = float64(cycles)
	if panels > 0 {
		v[IdxPctTimeEditor] = float64(editorPanels) / float64(panels)
		v[IdxPctTimeChat] = float64(chatPanels) / float64(panels)
	}
}

func extractInteractionFeatures(v *Vector, interactions []InteractionRecord) {
	if len(interactions) == 0 {
		return
	}

	total := float64(len(interactions))
	var orientation, implementation, verification int
	for _, in := range interactions {
		switch in.Phase {
		case model.PhaseOrientation:
			orientation++
		case model.PhaseImplementation:
			implementation++
		case model.PhaseVerification:
			verification++
		}
	}
	v[IdxPromptOrientation] = float64(orientation) / total
	v[IdxPromptImplementation] = float64(implementation) / total
	v[IdxPromptVerification] = float64(verification) / total

	if len(interactions) < 2 {
		return
	}

	ordered := make([]InteractionRecord, len(interactions))
	copy(ordered, interactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ShownAt.Before(ordered[j].ShownAt)
	})

	var reprompts int
	for i := 1; i < len(ordered); i++ {
		if ordered[i].ShownAt.Sub(ordered[i-1].ShownAt) < repromptWindow {
			reprompts++
		}
	}
	v[IdxRatioReprompt] = float64(reprompts) / float64(len(ordered)-1)
}

// sanitize replaces any NaN or Inf slot with 0.0. The extractor must
// always hand the classifiers finite numbers.
func sanitize(v Vector) Vector {
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v[i] = 0
		}
	}
	return v
}
