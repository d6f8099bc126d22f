package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"reelcraft-server/modules/common/logger"
)

var log = logger.For("gemini")

const maxRetriesPerKey = 3

// Client - JSON-mode text generation over a rotating key list
type Client struct {
	apiKeys    []string
	model      string
	retryDelay time.Duration
	call       func(ctx context.Context, apiKey, prompt string) (string, error)
}

// NewClient - Gemini 클라이언트 생성
func NewClient(apiKeys []string, model string) *Client {
	c := &Client{
		apiKeys:    apiKeys,
		model:      model,
		retryDelay: 2 * time.Second,
	}
	c.call = c.generate
	return c
}

// GenerateJSON - prompt in, JSON text out
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, c.apiKeys, c.retryDelay, func(ctx context.Context, apiKey string) (string, error) {
		return c.call(ctx, apiKey, prompt)
	})
}

func (c *Client) generate(ctx context.Context, apiKey, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text")
	}
	return sb.String(), nil
}

// withRetry - 429 에러 시 여러 API 키로 재시도 (키당 최대 3번)
func withRetry(ctx context.Context, apiKeys []string, delay time.Duration, fn func(ctx context.Context, apiKey string) (string, error)) (string, error) {
	if len(apiKeys) == 0 {
		return "", fmt.Errorf("no API keys provided")
	}

	var lastErr error
	for keyIndex, apiKey := range apiKeys {
		log.Debugf("🔑 Trying API key #%d/%d", keyIndex+1, len(apiKeys))

		for attempt := 1; attempt <= maxRetriesPerKey; attempt++ {
			result, err := fn(ctx, apiKey)
			if err == nil {
				log.Infof("✅ Success with API key #%d (attempt %d/%d)", keyIndex+1, attempt, maxRetriesPerKey)
				return result, nil
			}
			lastErr = err

			if !is429Error(err) {
				log.Errorf("❌ Key #%d failed with non-429 error: %v", keyIndex+1, err)
				return "", err
			}

			log.Warnf("⚠️ Key #%d hit rate limit (429) on attempt %d/%d", keyIndex+1, attempt, maxRetriesPerKey)
			if attempt < maxRetriesPerKey {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(delay):
				}
			}
		}
	}

	return "", fmt.Errorf("all %d API keys exhausted (%d attempts each), last error: %w", len(apiKeys), maxRetriesPerKey, lastErr)
}

// is429Error - 429 Rate Limit 에러인지 확인
func is429Error(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "resource exhausted") ||
		strings.Contains(errStr, "quota")
}
