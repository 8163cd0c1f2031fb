package score

import (
	"strings"
	"unicode"

	"github.com/akshatvasisht/oversite/internal/feature"
	"github.com/akshatvasisht/oversite/internal/model"
)

// neutralScore is used whenever a component has nothing to judge.
const neutralScore = 3.0

// ComponentResult is the outcome of one evaluation dimension.
type ComponentResult struct {
	Score     float64
	Label     string
	Fallback  bool
	Features  feature.Vector
	PerPrompt []float64
}

// labelScores maps a predicted behavioral label to its numeric score for
// aggregation.
var labelScores = map[string]float64{
	model.LabelOverReliant: 1.5,
	model.LabelBalanced:    3.0,
	model.LabelStrategic:   4.5,
}

// EvaluateBehavioral extracts features and predicts the behavioral label.
// Without a loaded classifier it degrades to the neutral balanced result
// with the fallback flag set, so scoring always yields a number.
func EvaluateBehavioral(tel feature.Telemetry, reg *Registry) ComponentResult {
	vec := feature.Extract(tel)

	clf := reg.Behavioral()
	if clf == nil {
		return ComponentResult{
			Score:    neutralScore,
			Label:    model.LabelBalanced,
			Fallback: true,
			Features: vec,
		}
	}

	label := clf.Predict(vec)
	s, ok := labelScores[label]
	if !ok {
		s = neutralScore
		label = model.LabelBalanced
	}

	return ComponentResult{Score: s, Label: label, Features: vec}
}

// EvaluatePrompts scores prompt engineering quality with a per-prompt
// heuristic: substance (length), grounding in code (backticks), and
// identifier references (camelCase or snake_case), capped at 5.0.
func EvaluatePrompts(prompts []string) ComponentResult {
	if len(prompts) == 0 {
		return ComponentResult{Score: neutralScore}
	}

	perPrompt := make([]float64, 0, len(prompts))
	var sum float64
	for _, p := range prompts {
		s := scorePrompt(p)
		perPrompt = append(perPrompt, s)
		sum += s
	}

	return ComponentResult{
		Score:     sum / float64(len(perPrompt)),
		PerPrompt: perPrompt,
	}
}

func scorePrompt(text string) float64 {
	s := 1.0
	if len(text) > 20 {
		s += 1.0
	}
	if len(text) > 50 {
		s += 0.5
	}
	if strings.Contains(text, "`") {
		s += 1.0
	}
	if strings.ContainsFunc(text, unicode.IsUpper) || strings.Contains(text, "_") {
		s += 0.5
	}
	if s > 5.0 {
		s = 5.0
	}
	return s
}

// EvaluateCriticalReview measures engagement with AI suggestions: passive
// acceptance scores low, substantive modification highest, critical
// rejection nearly as high.
func EvaluateCriticalReview(decisions []feature.DecisionRecord) ComponentResult {
	if len(decisions) == 0 {
		return ComponentResult{Score: neutralScore}
	}

	var sum float64
	var scored int
	for _, d := range decisions {
		switch d.Decision {
		case model.DecisionAccepted:
			sum += 2.0
			scored++
		case model.DecisionModified:
			sum += 4.5
			scored++
		case model.DecisionRejected:
			sum += 4.0
			scored++
		}
	}
	if scored == 0 {
		return ComponentResult{Score: neutralScore}
	}

	return ComponentResult{Score: sum / float64(scored)}
}
