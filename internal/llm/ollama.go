package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// OllamaClient handles communication with the Ollama API for local LLM
// inference and embeddings. All HTTP calls are wrapped with circuit breaker
// protection and rate limited.
type OllamaClient struct {
	baseURL        string
	client         *http.Client
	circuitBreaker *CircuitBreaker
	limiter        *rate.Limiter
	model          string
	timeout        time.Duration
}

// OllamaConfig holds Ollama client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the model name to use (default: qwen2.5:7b for completion,
	// callers pass nomic-embed-text for embeddings)
	Model string

	// Timeout is the request timeout duration (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond limits outbound requests (default: 5)
	RequestsPerSecond float64
}

// generateRequest is the request body for /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the response from /api/generate. Ollama reports token
// counts for the prompt and the evaluation separately.
type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// embedRequest is the request body for /api/embed. Input accepts a list, so
// batch embedding is a single round trip.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response from /api/embed.
type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewOllamaClient creates a new Ollama client with the given configuration.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "qwen2.5:7b"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultProviderRPS
	}

	return &OllamaClient{
		baseURL:        config.BaseURL,
		client:         &http.Client{Timeout: config.Timeout},
		circuitBreaker: NewCircuitBreaker("ollama"),
		limiter:        rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		model:          config.Model,
		timeout:        config.Timeout,
	}
}

// Complete sends a completion request to Ollama and returns the response text
// with token usage.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.(*Completion), nil
}

func (c *OllamaClient) complete(ctx context.Context, prompt string) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Op: "complete", Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusToProviderError("ollama", "complete", resp.StatusCode, body)
	}

	var respData generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, &ProviderError{Provider: "ollama", Op: "complete", Retryable: true,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return &Completion{
		Text:       respData.Response,
		TokensUsed: respData.PromptEvalCount + respData.EvalCount,
	}, nil
}

// Embed generates an embedding vector for a single text.
func (c *OllamaClient) Embed(ctx context.Context, text string, mode EmbeddingMode) ([]float32, error) {
	result, err := c.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return nil, err
	}
	return result.Vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one round trip.
// Nomic-style embedding models distinguish stored documents from search
// queries via task prefixes, so the mode is mapped to the corresponding
// prefix before the texts are sent.
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string, mode EmbeddingMode) (*EmbeddingResult, error) {
	if len(texts) == 0 {
		return &EmbeddingResult{}, nil
	}

	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embedBatch(ctx, texts, mode)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama embedding circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.(*EmbeddingResult), nil
}

func (c *OllamaClient) embedBatch(ctx context.Context, texts []string, mode EmbeddingMode) (*EmbeddingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = embedTaskPrefix(mode) + t
	}

	reqBody := embedRequest{
		Model: c.model,
		Input: prefixed,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "ollama", Op: "embed", Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, statusToProviderError("ollama", "embed", resp.StatusCode, body)
	}

	var respData embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, &ProviderError{Provider: "ollama", Op: "embed", Retryable: true,
			Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(respData.Embeddings) != len(texts) {
		return nil, &ProviderError{Provider: "ollama", Op: "embed", Retryable: true,
			Err: fmt.Errorf("expected %d embeddings, got %d", len(texts), len(respData.Embeddings))}
	}
	for _, vec := range respData.Embeddings {
		if len(vec) == 0 {
			return nil, &ProviderError{Provider: "ollama", Op: "embed", Retryable: true,
				Err: errors.New("empty embedding vector in response")}
		}
	}

	return &EmbeddingResult{
		Vectors:    respData.Embeddings,
		TokensUsed: respData.PromptEvalCount,
	}, nil
}

// embedTaskPrefix maps an embedding mode to the nomic-style task prefix.
func embedTaskPrefix(mode EmbeddingMode) string {
	switch mode {
	case ModeQuery:
		return "search_query: "
	default:
		return "search_document: "
	}
}

// HealthCheck verifies that Ollama is reachable via the /api/version endpoint.
// It bypasses the circuit breaker since it is itself a health probe.
func (c *OllamaClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.model
}

// Compile-time assertions that OllamaClient satisfies both provider interfaces.
var (
	_ TextGenerator      = (*OllamaClient)(nil)
	_ EmbeddingGenerator = (*OllamaClient)(nil)
)
