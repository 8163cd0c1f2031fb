package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/akshatvasisht/oversite/internal/model"
)

// ErrEmptyResponse is returned when the model answers with no usable text.
var ErrEmptyResponse = errors.New("judge: empty response from model")

// Narrator turns a session excerpt and its computed score into a short
// prose assessment.
type Narrator interface {
	Narrate(ctx context.Context, ex Excerpt, score *model.SessionScore) (string, error)
}

// Gemini is a Narrator backed by the Gemini API.
type Gemini struct {
	cli   *genai.Client
	model string
}

// NewGemini builds a Gemini narrator. The API key may be empty, in which
// case the client reads it from the environment.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{cli: cli, model: modelName}, nil
}

const narratePrompt = `You are assessing how a developer used an AI coding assistant
during a timed exercise. Write a 3-4 sentence assessment of their working style.
Base it only on the evidence below. Mention concrete behaviors, not scores.
Do not address the developer directly.`

// Narrate asks the model for the assessment, retrying transient failures
// with exponential backoff.
func (g *Gemini) Narrate(ctx context.Context, ex Excerpt, score *model.SessionScore) (string, error) {
	full := fmt.Sprintf("%s\n\nOverall judgment: %s\n\n%s", narratePrompt, score.OverallLabel, ex.Render())

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
			nil,
		)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = ErrEmptyResponse
			continue
		}
		text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
		if text == "" {
			lastErr = ErrEmptyResponse
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// fallbackNarratives keys a canned assessment by overall label, used when
// no narrator is configured or the model call fails.
var fallbackNarratives = map[string]string{
	model.LabelStrategic: "The candidate directed the assistant deliberately, reviewing proposals " +
		"before acting on them and verifying changes by running the code.",
	model.LabelBalanced: "The candidate mixed assistant output with their own edits, showing " +
		"reasonable oversight of what was accepted into the file.",
	model.LabelOverReliant: "The candidate leaned heavily on assistant output, accepting most " +
		"proposals with little review or verification between changes.",
}

// FallbackNarrative returns the canned assessment for a score.
func FallbackNarrative(score *model.SessionScore) string {
	if n, ok := fallbackNarratives[score.OverallLabel]; ok {
		return n
	}
	return fallbackNarratives[model.LabelBalanced]
}
