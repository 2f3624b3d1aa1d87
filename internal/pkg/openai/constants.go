package openai

const (
	// completionEndpoint is the endpoint described in: https://platform.openai.com/docs/guides/text-generation/chat-completions-api
	completionEndPoint = "https://api.openai.com/v1/chat/completions"

	// defaultModel sets the default OpenAI model to use:
	defaultModel = "gpt-4o-mini"

	// defaultMaxTokens bounds the rewritten narrative:
	defaultMaxTokens = 4096
)
