package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/ports"
)

const promptTemplate = `You are an expert in Civil Engineering and Artificial Intelligence. Analyze the following article and determine:

1. Is this article specifically about AI/ML/Deep Learning applied to Civil Engineering or Construction?
   - Must contain ACTUAL AI/ML technology (not just digitalization, software, or IoT without AI)
   - Answer: YES or NO

2. If YES, classify the article:

TITLE: %s

CONTENT: %s

Respond in this exact JSON format (nothing else):
{
    "is_relevant": true/false,
    "rejection_reason": "reason if not relevant, empty string if relevant",
    "category": "one of: %s",
    "civil_engineering_area": "one of: %s",
    "ai_technique": "one of: %s",
    "application_stage": "one of: %s",
    "keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"],
    "summary": "2-3 sentence summary in English"
}

If not relevant (is_relevant: false), still provide rejection_reason but other fields can be empty strings or empty arrays.`

const maxErrorDetail = 200

// Classifier implements ports.Classifier against an OpenAI-compatible
// chat-completions endpoint.
type Classifier struct {
	endpoint   string
	model      string
	apiKey     string
	maxContent int
	retries    int
	retryWait  time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a client from configuration.
func NewClassifier(cfg config.ClassifierConfig, log *slog.Logger) *Classifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Classifier{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxContent: cfg.MaxContent,
		retries:    retries,
		retryWait:  cfg.RetryWait,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		now:        time.Now,
		sleep:      collector.Sleep,
	}
}

// Classify asks the model for a verdict. Model failures become rejections
// with a reason; only cancellation and a misconfigured client are errors.
func (c *Classifier) Classify(ctx context.Context, title, content string) (domain.Classification, error) {
	if c == nil {
		return domain.Classification{}, fmt.Errorf("classifier is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Classification{}, fmt.Errorf("classifier misconfigured")
	}

	prompt := BuildPrompt(title, collector.Truncate(content, c.maxContent))

	for attempt := range c.retries {
		text, err := c.complete(ctx, prompt)
		if err == nil {
			return c.parse(text), nil
		}
		if ctx.Err() != nil {
			return domain.Classification{}, ctx.Err()
		}

		var status *statusError
		if errors.As(err, &status) && !status.transient() {
			return domain.Rejected("API error: "+collector.Truncate(err.Error(), maxErrorDetail), c.stamp()), nil
		}

		if attempt == c.retries-1 {
			break
		}
		wait := time.Duration(attempt+1) * c.retryWait
		c.logger.Warn("classifier request failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		if err := c.sleep(ctx, wait); err != nil {
			return domain.Classification{}, err
		}
	}

	return domain.Rejected("Max retries exceeded", c.stamp()), nil
}

// BuildPrompt renders the classification prompt with the fixed taxonomy.
func BuildPrompt(title, content string) string {
	return fmt.Sprintf(promptTemplate, title, content,
		strings.Join(domain.Categories, ", "),
		strings.Join(domain.CivilEngineeringAreas, ", "),
		strings.Join(domain.AITechniques, ", "),
		strings.Join(domain.ApplicationStages, ", "),
	)
}

func (c *Classifier) parse(text string) domain.Classification {
	var verdict domain.Classification
	if err := json.Unmarshal([]byte(stripFences(text)), &verdict); err != nil {
		return domain.Rejected("JSON parse error: "+err.Error(), c.stamp())
	}
	verdict.ProcessedAt = c.stamp()
	return verdict
}

func (c *Classifier) stamp() string {
	return domain.Timestamp(c.now())
}

// stripFences removes a markdown code block wrapper around the model output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if parts := strings.Split(text, "```"); len(parts) > 1 {
			text = parts[1]
		}
		text = strings.TrimPrefix(text, "json")
	}
	return strings.TrimSpace(text)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", &statusError{code: resp.StatusCode, body: "response has no choices"}
	}
	return decoded.Choices[0].Message.Content, nil
}
