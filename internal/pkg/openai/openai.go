package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/matiasinsaurralde/relatorio/pkg/config"
)

var (
	errNoTokenSet        = errors.New("no token set")
	errTooManyRequests   = errors.New("too many requests")
	errNoChoicesReturned = errors.New("no choices returned from completion API")
)

// OAIClient wraps OpenAI API calls:
type OAIClient struct {
	cfg        *config.Config
	httpClient *http.Client
}

// Completion calls the chat completion endpoint: https://platform.openai.com/docs/guides/text-generation/chat-completions-api
func (c *OAIClient) Completion(ctx context.Context, completionRequest *CompletionRequest) (*CompletionResponse, error) {
	if c.cfg.OpenAIConfig.Token == "" {
		return nil, errNoTokenSet
	}

	if completionRequest.Model == "" {
		completionRequest.Model = c.cfg.OpenAIConfig.Model
	}
	if completionRequest.Model == "" {
		completionRequest.Model = defaultModel
	}
	if completionRequest.MaxTokens == 0 {
		completionRequest.MaxTokens = defaultMaxTokens
	}

	reqJSON, err := completionRequest.ToJSON()
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.OpenAIConfig.Endpoint
	if endpoint == "" {
		endpoint = completionEndPoint
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewReader(reqJSON),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIConfig.Token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", errTooManyRequests, res.Status)
	}
	rawBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	var completionResponse CompletionResponse
	if err := completionResponse.FromJSON(rawBody); err != nil {
		return nil, fmt.Errorf("decoding response (%s): %w", res.Status, err)
	}
	if res.StatusCode != http.StatusOK {
		if completionResponse.Error != nil {
			return nil, fmt.Errorf("completion API: %s: %s", res.Status, completionResponse.Error.Message)
		}
		return nil, fmt.Errorf("completion API: %s", res.Status)
	}
	return &completionResponse, nil
}

// Complete sends a system and a user message and returns the first choice:
func (c *OAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	res, err := c.Completion(ctx, &CompletionRequest{
		Temperature: 0.2,
		Messages: []Message{
			TextMessage("system", systemPrompt),
			TextMessage("user", userPrompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errNoChoicesReturned
	}
	return res.Choices[0].Message.Content, nil
}

// New initializes a new OpenAI API client:
func New(cfg *config.Config) *OAIClient {
	return &OAIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.CleanerConfig.Timeout,
		},
	}
}
