package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	chat "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/domain"
)

const defaultTimeout = 20 * time.Second

// HTTPTextService talks to the assistant service over plain JSON HTTP.
type HTTPTextService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTextService builds a client for the given base URL.
func NewHTTPTextService(baseURL string) *HTTPTextService {
	return &HTTPTextService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// NewHTTPTextServiceFromEnv reads AI_SERVICE_URL.
func NewHTTPTextServiceFromEnv() (*HTTPTextService, error) {
	baseURL := os.Getenv("AI_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("AI_SERVICE_URL is not set")
	}
	return NewHTTPTextService(baseURL), nil
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type summarizeRequest struct {
	Messages []historyEntry `json:"messages"`
}

type historyEntry struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type textResponse struct {
	Text string `json:"text"`
}

func (s *HTTPTextService) Generate(ctx context.Context, prompt string) (string, error) {
	return s.post(ctx, "/v1/generate", generateRequest{Prompt: prompt})
}

func (s *HTTPTextService) Summarize(ctx context.Context, history []chat.Message) (string, error) {
	req := summarizeRequest{Messages: make([]historyEntry, 0, len(history))}
	for _, msg := range history {
		req.Messages = append(req.Messages, historyEntry{
			Sender:  string(msg.SenderRole),
			Content: msg.Content,
		})
	}
	return s.post(ctx, "/v1/summarize", req)
}

func (s *HTTPTextService) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode assistant request: %v", chat.ErrDependency, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build assistant request: %v", chat.ErrDependency, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: call assistant service: %v", chat.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: assistant service returned %d: %s", chat.ErrDependency, resp.StatusCode, snippet)
	}

	var out textResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode assistant response: %v", chat.ErrDependency, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("%w: assistant service returned empty text", chat.ErrDependency)
	}
	return out.Text, nil
}
