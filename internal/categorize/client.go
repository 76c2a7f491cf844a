// Package categorize assigns spending categories to transactions whose source
// record carried none. Like the advisory tier it is an enhancement, never a
// dependency: every failure mode maps to ErrCategorizationUnavailable and the
// caller keeps the default category.
package categorize

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
)

// ErrCategorizationUnavailable is returned for any categorization failure:
// timeout, transport error, open circuit, or a response that fails shape
// validation.
var ErrCategorizationUnavailable = errors.New("categorize: categorization unavailable")

// Categories offered to the model. The model may still answer outside the
// list; any non-empty answer is accepted.
var knownCategories = []string{
	"Food & Dining",
	"Transport",
	"Shopping",
	"Entertainment",
	"Health",
	"Utilities",
	"Travel",
	"Other",
}

// Client categorizes transaction titles in batches against the Gemini API. A
// circuit breaker keeps a flapping remote from delaying every pipeline run.
type Client struct {
	model   string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient creates a categorization client for the given model. timeout
// bounds a single batch call end to end.
func NewClient(model string, timeout time.Duration, log zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "categorize",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Categorization circuit breaker state changed")
		},
	}

	return &Client{
		model:   model,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Categorize assigns one category per title, preserving order.
func (c *Client) Categorize(ctx context.Context, titles []string) ([]string, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	result, err := c.cb.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.call(callCtx, titles)
	})
	if err != nil {
		c.log.Debug().Err(err).Int("titles", len(titles)).Msg("Categorization call failed")
		return nil, fmt.Errorf("%w: %v", ErrCategorizationUnavailable, err)
	}
	return result.([]string), nil
}

func (c *Client) call(ctx context.Context, titles []string) ([]string, error) {
	payload, err := json.Marshal(titles)
	if err != nil {
		return nil, fmt.Errorf("categorize.call: marshal titles: %w", err)
	}

	prompt :=
		"You are a personal finance transaction categorizer.\n\n" +
			"Task:\n" +
			"- Read the JSON array of transaction titles below.\n" +
			"- Assign each title exactly one category, preferring: " + strings.Join(knownCategories, ", ") + ".\n" +
			"- Output STRICT JSON only (no comments, no extra text).\n\n" +
			"Output object shape:\n" +
			"- \"categories\": array of strings, same length and order as the input\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n\n" +
			"Data:\n" + string(payload) + "\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("categorize.call: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("categorize.call: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("categorize.call: empty response from model")
	}

	return ParseCategories(rawText, len(titles))
}

// ParseCategories validates and decodes the raw model response. The answer
// must carry exactly want non-empty categories; anything else is discarded
// with an error rather than misassigned.
func ParseCategories(raw string, want int) ([]string, error) {
	clean := cleanModelJSON(raw)

	var decoded struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(clean), &decoded); err != nil {
		return nil, fmt.Errorf("categorize.ParseCategories: unmarshal JSON: %w", err)
	}

	if len(decoded.Categories) != want {
		return nil, fmt.Errorf("categorize.ParseCategories: got %d categories for %d titles", len(decoded.Categories), want)
	}

	out := make([]string, want)
	for i, category := range decoded.Categories {
		trimmed := strings.TrimSpace(category)
		if trimmed == "" {
			return nil, fmt.Errorf("categorize.ParseCategories: empty category at index %d", i)
		}
		out[i] = trimmed
	}
	return out, nil
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
