package score

import (
	"testing"

	"github.com/akshatvasisht/oversite/internal/model"
)

func TestAggregateBaseline(t *testing.T) {
	tests := []struct {
		name                         string
		behavioral, prompt, critical float64
		wantScore                    float64
		wantLabel                    string
	}{
		{"all strategic", 4.5, 4.5, 4.5, 4.50, model.LabelStrategic},
		{"all over-reliant", 2.0, 2.0, 2.0, 2.00, model.LabelOverReliant},
		{"all balanced", 3.0, 3.0, 3.0, 3.00, model.LabelBalanced},
		{"mixed", 1.5, 4.0, 4.0, 3.15, model.LabelBalanced},
		{"clamped high", 5.0, 5.0, 5.0, 5.00, model.LabelStrategic},
		{"clamped low", 1.0, 1.0, 1.0, 1.00, model.LabelOverReliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, label := Aggregate(tt.behavioral, tt.prompt, tt.critical, nil)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
		})
	}
}

func TestSelectWeightsPromotesBehavioral(t *testing.T) {
	dominant := map[string]float64{
		"duration_deliberation_avg": 0.2,
		"freq_verification":         0.2,
		"pct_time_editor":           0.1,
		"rate_acceptance":           0.5,
	}
	if w := SelectWeights(dominant); w != behavioralDominantWeights {
		t.Errorf("structural sum 0.5 should promote behavioral, got %+v", w)
	}

	weak := map[string]float64{
		"duration_deliberation_avg": 0.1,
		"freq_verification":         0.1,
		"pct_time_editor":           0.1,
	}
	if w := SelectWeights(weak); w != baselineWeights {
		t.Errorf("structural sum 0.3 should keep baseline, got %+v", w)
	}

	if w := SelectWeights(nil); w != baselineWeights {
		t.Errorf("no importances should keep baseline, got %+v", w)
	}
}

func TestAggregateWithDominantWeights(t *testing.T) {
	imps := map[string]float64{
		"duration_deliberation_avg": 0.3,
		"freq_verification":         0.2,
	}
	score, label := Aggregate(5.0, 1.0, 1.0, imps)
	if score != 3.0 {
		t.Errorf("score = %v, want 3.0 under behavioral-dominant weights", score)
	}
	if label != model.LabelBalanced {
		t.Errorf("label = %q, want balanced", label)
	}
}

func TestAggregateLabelBoundaries(t *testing.T) {
	if _, label := Aggregate(3.5, 3.5, 3.5, nil); label != model.LabelStrategic {
		t.Errorf("3.5 should be strategic, got %q", label)
	}
	if _, label := Aggregate(2.5, 2.5, 2.5, nil); label != model.LabelBalanced {
		t.Errorf("2.5 should be balanced, got %q", label)
	}
	if _, label := Aggregate(2.49, 2.49, 2.49, nil); label != model.LabelOverReliant {
		t.Errorf("2.49 should be over_reliant, got %q", label)
	}
}
