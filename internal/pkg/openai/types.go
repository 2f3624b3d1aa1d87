package openai

import "encoding/json"

type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

func (c *CompletionRequest) ToJSON() ([]byte, error) {
	jsonObject, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return jsonObject, nil
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentItem `json:"content"`
}

// TextMessage builds a single text part message:
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentItem{{Type: "text", Text: text}}}
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type CompletionResponse struct {
	ID      string                     `json:"id"`
	Choices []CompletionResponseChoice `json:"choices"`
	Error   *APIError                  `json:"error,omitempty"`
}

func (c *CompletionResponse) FromJSON(rawJSON []byte) error {
	return json.Unmarshal(rawJSON, c)
}

type CompletionResponseChoice struct {
	Message CompletionResponseChoiceMessage `json:"message"`
}

type CompletionResponseChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// APIError is the error object returned with non 2xx responses:
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
