package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/matiasinsaurralde/relatorio/pkg/config"
	"google.golang.org/genai"
)

// defaultModel sets the default Gemini model to use:
const defaultModel = "gemini-2.0-flash"

var (
	errNoAPIKey   = errors.New("no Gemini API key set")
	errEmptyReply = errors.New("empty reply from Gemini")
)

// Client wraps Gemini API calls:
type Client struct {
	client *genai.Client
	model  string
}

// New initializes a Gemini client with the configured key:
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GeminiConfig.APIKey == "" {
		return nil, errNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	model := cfg.GeminiConfig.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{client: client, model: model}, nil
}

// Complete sends userPrompt with systemPrompt as system instruction and returns the text reply:
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	res, err := c.client.Models.GenerateContent(ctx,
		c.model,
		genai.Text(userPrompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return "", err
	}
	text := res.Text()
	if text == "" {
		return "", errEmptyReply
	}
	return text, nil
}
