// Package advisory calls the remote advisory model to produce richer
// natural-language phrasing for an insight bundle. The call is an
// enhancement, never a dependency: every failure mode maps to
// ErrEnhancementUnavailable and the caller keeps its local analysis.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"

	"github.com/dvloznov/finsight/internal/insights"
)

// ErrEnhancementUnavailable is returned for any advisory failure: timeout,
// transport error, open circuit, or a response that fails shape validation.
var ErrEnhancementUnavailable = errors.New("advisory: enhancement unavailable")

// Client implements insights.Advisor against the Gemini API. A circuit
// breaker keeps a flapping remote from delaying every pipeline run.
type Client struct {
	model   string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates an advisory client for the given model. timeout bounds a
// single call end to end.
func NewClient(model string, timeout time.Duration, log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "advisory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Advisory circuit breaker state changed")
		},
	}

	return &Client{
		model:   model,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Enhance implements insights.Advisor.
func (c *Client) Enhance(ctx context.Context, req insights.AdvisoryRequest) (*insights.Enhancement, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.call(callCtx, req)
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("Advisory call failed")
		return nil, fmt.Errorf("%w: %v", ErrEnhancementUnavailable, err)
	}
	return result.(*insights.Enhancement), nil
}

func (c *Client) call(ctx context.Context, req insights.AdvisoryRequest) (*insights.Enhancement, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("advisory.call: marshal request: %w", err)
	}

	prompt :=
		"You are a personal finance advisor.\n\n" +
			"Task:\n" +
			"- Read the aggregate and health score JSON below.\n" +
			"- Write a short, friendly summary of the period and up to three practical tips.\n" +
			"- Output STRICT JSON only (no comments, no extra text).\n\n" +
			"Output object shape:\n" +
			"- \"summary\": string, two sentences at most\n" +
			"- \"tips\": array of strings, at most three\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n\n" +
			"Data:\n" + string(payload) + "\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("advisory.call: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("advisory.call: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("advisory.call: empty response from model")
	}

	return ParseEnhancement(rawText)
}

// ParseEnhancement validates and decodes the raw model response. Anything
// that does not match the contract shape is discarded with an error rather
// than passed through to users.
func ParseEnhancement(raw string) (*insights.Enhancement, error) {
	clean := cleanModelJSON(raw)

	var decoded struct {
		Summary string   `json:"summary"`
		Tips    []string `json:"tips"`
	}
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return nil, fmt.Errorf("advisory.ParseEnhancement: unmarshal JSON: %w", err)
	}

	summary := strings.TrimSpace(decoded.Summary)
	if summary == "" {
		return nil, fmt.Errorf("advisory.ParseEnhancement: response has no summary")
	}

	tips := make([]string, 0, len(decoded.Tips))
	for _, tip := range decoded.Tips {
		if t := strings.TrimSpace(tip); t != "" {
			tips = append(tips, t)
		}
	}

	return &insights.Enhancement{Summary: summary, Tips: tips}, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
