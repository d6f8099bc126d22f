package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// KieClient - KIE.ai Veo3 API client
type KieClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewKieClient - KIE 클라이언트 생성
func NewKieClient(baseURL, apiKey string) *KieClient {
	return &KieClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate - submit the first segment
func (c *KieClient) Generate(ctx context.Context, req GenerateTaskRequest) (string, error) {
	log.Infof("🚀 Creating %s task (aspect: %s, seed: %d)", req.GenerationType, req.AspectRatio, req.Seeds)
	return c.post(ctx, "/api/v1/veo/generate", req)
}

// Extend - continue a finished task with the next segment
func (c *KieClient) Extend(ctx context.Context, req ExtendTaskRequest) (string, error) {
	log.Infof("➕ Extending task %s (seed: %d)", req.TaskID, req.Seeds)
	return c.post(ctx, "/api/v1/veo/extend", req)
}

func (c *KieClient) post(ctx context.Context, path string, payload interface{}) (string, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("failed to reach provider: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read provider response: %v", err)}
	}

	log.Debugf("📥 Provider %s response status: %d", path, resp.StatusCode)

	var result taskResponse
	jsonErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if jsonErr == nil && result.Msg != "" {
			msg = result.Msg
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Code: result.Code, Message: msg}
	}
	if jsonErr != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("invalid provider response: %s", string(body))}
	}
	if result.Code != providerSuccessCode {
		return "", &ProviderError{StatusCode: resp.StatusCode, Code: result.Code, Message: result.Msg}
	}
	if result.Data == nil || result.Data.TaskID == "" {
		return "", &ProviderError{StatusCode: resp.StatusCode, Code: result.Code, Message: "provider response carried no taskId"}
	}

	log.Infof("✅ Provider task created: %s", result.Data.TaskID)
	return result.Data.TaskID, nil
}
