package feature

import (
	"math"

	"github.com/akshatvasisht/oversite/internal/model"
)

// Source is a tagged union over the two telemetry shapes the extractor
// accepts: a raw event bundle queried from storage, or a pre-aggregated
// row of named values (as produced by offline training corpora).
// Extraction dispatches on the variant; there is no duck typing on the
// input shape.
type Source struct {
	kind sourceKind
	raw  Telemetry
	pre  map[string]float64
}

type sourceKind int

const (
	sourceRaw sourceKind = iota
	sourcePrecomputed
)

// FromRaw wraps a raw telemetry bundle.
func FromRaw(t Telemetry) Source {
	return Source{kind: sourceRaw, raw: t}
}

// FromPrecomputed wraps a pre-aggregated feature row. Missing names are
// filled by ApplyDefaults at extraction time.
func FromPrecomputed(row map[string]float64) Source {
	return Source{kind: sourcePrecomputed, pre: row}
}

// Extract produces the feature vector for whichever variant the source
// holds.
func (s Source) Extract() Vector {
	switch s.kind {
	case sourcePrecomputed:
		return sanitize(ApplyDefaults(s.pre))
	default:
		return Extract(s.raw)
	}
}

// defaults holds the neutral value substituted for each feature missing
// from a pre-aggregated row. These are the medians the classifiers were
// calibrated against, not zeros: a sparse training row should read as an
// unremarkable session, not an inactive one.
var defaults = map[string]float64{
	"rate_acceptance":             0.5,
	"duration_deliberation_avg":   10.0,
	"rate_post_acceptance_edit":   0.1,
	"freq_verification":           0.0,
	"ratio_reprompt":              0.0,
	"rate_passive_acceptance":     0.2,
	"duration_chunk_avg_ms":       5000.0,
	"pct_time_editor":             0.6,
	"pct_time_chat":               0.4,
	"duration_orientation_s":      30.0,
	"depth_iteration":             1.0,
	"count_prompt_orientation":    1.0,
	"count_prompt_implementation": 3.0,
	"count_prompt_verification":   1.0,
}

// ApplyDefaults is the missing-field policy for pre-aggregated rows: it
// is applied exactly once, here at the ingestion boundary, and is the
// only place defaulting happens. Row values win; chunk acceptance falls
// back to the acceptance rate, and the deliberation-to-action ratio is
// derived from its operands when absent.
func ApplyDefaults(row map[string]float64) Vector {
	var v Vector

	get := func(name string) (float64, bool) {
		f, ok := row[name]
		if !ok || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}

	for i, name := range Names {
		if f, ok := get(name); ok {
			v[i] = f
			continue
		}
		v[i] = defaults[name]
	}

	if _, ok := get("rate_chunk_acceptance"); !ok {
		v[IdxChunkAcceptance] = v[IdxRateAcceptance]
	}
	if _, ok := get("deliberation_to_action_ratio"); !ok {
		if v[IdxPostAcceptanceEdit] != 0 {
			v[IdxDeliberationToAction] = v[IdxDeliberationAvg] / v[IdxPostAcceptanceEdit]
		} else {
			v[IdxDeliberationToAction] = v[IdxDeliberationAvg]
		}
	}

	return v
}

// TelemetryFromModels adapts stored records into the extractor's input
// shape. It is the assembly point persistence collaborators use.
func TelemetryFromModels(decisions []model.ChunkDecision, events []model.Event, interactions []model.Interaction, session *model.Session) Telemetry {
	t := Telemetry{}
	if session != nil {
		t.SessionStart = session.StartedAt
	}
	for _, d := range decisions {
		t.Decisions = append(t.Decisions, DecisionRecord{
			Decision:      d.Decision,
			TimeOnChunkMS: d.TimeOnChunkMS,
			ProposedCode:  d.ProposedCode,
			FinalCode:     d.FinalCode,
		})
	}
	for _, e := range events {
		t.Events = append(t.Events, EventRecord{
			EventType: e.EventType,
			Content:   e.Content,
			Timestamp: e.Timestamp,
		})
	}
	for _, in := range interactions {
		t.Interactions = append(t.Interactions, InteractionRecord{
			Phase:   in.Phase,
			ShownAt: in.ShownAt,
		})
	}
	return t
}
