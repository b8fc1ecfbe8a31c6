package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3

	retryBaseDelay = 2 * time.Second
	// Quota errors asking to wait longer than this are returned immediately.
	maxQuotaDelay = 20 * time.Second
)

var (
	// newTimer is replaced in tests.
	newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		t := time.NewTimer(d)
		return t.C, t.Stop
	}

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator sends one-shot requests to Gemini and retries temporary failures.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// GenerateContent sends message under the given system instruction and
// returns the textual response. The answer is requested as JSON.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		output, err := g.send(ctx, config, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == g.maxRetries {
			break
		}

		g.logger.Debug("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay reports whether err is temporary and how long to wait before
// the next attempt.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	backoff := retryBaseDelay * time.Duration(attempt)

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		requested, ok := requestedDelay(apiErr.Message)
		if !ok {
			return backoff, true
		}
		if requested > maxQuotaDelay {
			return 0, false
		}
		return requested, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func requestedDelay(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	fired, stop := newTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}
