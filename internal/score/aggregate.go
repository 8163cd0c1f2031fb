// Package score turns session telemetry into component scores and the
// final weighted assessment.
package score

import (
	"math"

	"github.com/akshatvasisht/oversite/internal/model"
)

// Weights is the blend applied to the three component scores.
type Weights struct {
	Behavioral float64
	Prompt     float64
	Critical   float64
}

var (
	baselineWeights           = Weights{Behavioral: 0.34, Prompt: 0.33, Critical: 0.33}
	behavioralDominantWeights = Weights{Behavioral: 0.50, Prompt: 0.25, Critical: 0.25}
)

// structuralFeatures are the behavioral-model features whose combined
// importance decides whether the behavioral component dominates.
var structuralFeatures = []string{
	"duration_deliberation_avg",
	"freq_verification",
	"pct_time_editor",
}

// importanceThreshold is the structural-importance sum above which the
// behavioral-dominant weights apply.
const importanceThreshold = 0.4

// SelectWeights picks the component weights. With no importances the
// baseline split applies; when the structural features carry more than
// the threshold of total importance, the behavioral component is
// promoted.
func SelectWeights(importances map[string]float64) Weights {
	if len(importances) == 0 {
		return baselineWeights
	}

	var structural float64
	for _, name := range structuralFeatures {
		structural += importances[name]
	}
	if structural > importanceThreshold {
		return behavioralDominantWeights
	}
	return baselineWeights
}

// Aggregate combines the three component scores into the final weighted
// score and categorical label. Pure and total: the result is clamped to
// [1.0, 5.0] and rounded to two decimals.
func Aggregate(behavioral, prompt, critical float64, importances map[string]float64) (float64, string) {
	w := SelectWeights(importances)

	weighted := behavioral*w.Behavioral + prompt*w.Prompt + critical*w.Critical
	weighted = math.Max(1.0, math.Min(5.0, weighted))

	label := model.LabelOverReliant
	switch {
	case weighted >= 3.5:
		label = model.LabelStrategic
	case weighted >= 2.5:
		label = model.LabelBalanced
	}

	return math.Round(weighted*100) / 100, label
}
