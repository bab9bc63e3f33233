package llm

import (
	"net/http"
	"time"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens caps the length of the generated answer. If 0, no cap is sent.
	MaxTokens int

	// Temperature controls the randomness of the output. Keep it low for
	// extractive answers.
	Temperature float32
}

// Network calls to the embedding and chat backends are bounded so a hung
// backend surfaces as the normal backend-error path instead of a stuck
// request.
const (
	embeddingsTimeout = 30 * time.Second
	chatTimeout       = 90 * time.Second
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
