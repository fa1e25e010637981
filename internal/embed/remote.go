package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultRemoteEndpoint is used when RemoteConfig.Endpoint is empty.
const DefaultRemoteEndpoint = "https://api.openai.com/v1/embeddings"

// DefaultRemoteModel is used when RemoteConfig.Model is empty.
const DefaultRemoteModel = "text-embedding-3-small"

// RemotePoolSize bounds the embedder's HTTP connection pool.
const RemotePoolSize = 8

// APIKeyEnvVar is the environment variable holding the remote embedding
// provider's credential. A remote embedder refuses to start without it.
const APIKeyEnvVar = "AGENT_SESSIONS_EMBED_API_KEY"

// RemoteConfig configures a credential-gated HTTP embedding provider.
type RemoteConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
	PoolSize   int
}

// DefaultRemoteConfig returns the default remote provider configuration.
// APIKey is read from APIKeyEnvVar; callers may override it before use.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Endpoint:   DefaultRemoteEndpoint,
		APIKey:     os.Getenv(APIKeyEnvVar),
		Model:      DefaultRemoteModel,
		BatchSize:  DefaultBatchSize,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		PoolSize:   RemotePoolSize,
	}
}

// remoteRequest is the OpenAI-compatible embeddings request body.
type remoteRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type remoteResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// RemoteEmbedder generates embeddings via a remote, credential-gated HTTP
// API. It never falls back silently: construction fails if no API key is
// configured, so a missing credential surfaces immediately.
type RemoteEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    RemoteConfig
	dims      int

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*RemoteEmbedder)(nil)

// NewRemoteEmbedder creates a RemoteEmbedder. It returns an error if no API
// key is present in cfg.APIKey or the environment.
func NewRemoteEmbedder(cfg RemoteConfig) (*RemoteEmbedder, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultRemoteEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultRemoteModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = RemotePoolSize
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnvVar)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote embedder requires %s to be set", APIKeyEnvVar)
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	return &RemoteEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("embedder is closed")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	embeddings, err := e.embedWithRetry(ctx, []string{truncateItem(text)})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the input
// into sub-batches that respect CountBatchLimit and TokenBatchLimit.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("embedder is closed")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var nonEmptyIdx []int
	var nonEmptyTexts []string
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i] = make([]float32, e.dims)
			continue
		}
		nonEmptyIdx = append(nonEmptyIdx, i)
		nonEmptyTexts = append(nonEmptyTexts, truncateItem(t))
	}

	for _, batch := range shapeBatches(nonEmptyIdx, nonEmptyTexts, e.config.BatchSize) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		embeddings, err := e.embedWithRetry(ctx, batch.texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		for i, emb := range embeddings {
			results[batch.indices[i]] = emb
		}
	}

	return results, nil
}

type shapedBatch struct {
	indices []int
	texts   []string
}

// shapeBatches greedily groups items so no batch exceeds CountBatchLimit
// items or TokenBatchLimit estimated tokens, and never exceeds the
// caller-supplied count preference either.
func shapeBatches(indices []int, texts []string, countPref int) []shapedBatch {
	limit := countPref
	if limit <= 0 || limit > CountBatchLimit {
		limit = CountBatchLimit
	}

	var batches []shapedBatch
	var curIdx []int
	var curTexts []string
	curTokens := 0

	flush := func() {
		if len(curTexts) == 0 {
			return
		}
		batches = append(batches, shapedBatch{indices: curIdx, texts: curTexts})
		curIdx, curTexts, curTokens = nil, nil, 0
	}

	for i, text := range texts {
		tokens := estimateTokens(text)
		if len(curTexts) > 0 && (len(curTexts) >= limit || curTokens+tokens > TokenBatchLimit) {
			flush()
		}
		curIdx = append(curIdx, indices[i])
		curTexts = append(curTexts, text)
		curTokens += tokens
	}
	flush()

	return batches
}

func truncateItem(s string) string {
	if len(s) <= MaxCharsPerItem {
		return s
	}
	return s[:MaxCharsPerItem]
}

func (e *RemoteEmbedder) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func (e *RemoteEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	retryCfg := RetryConfig{
		MaxRetries:   maxInt(e.config.MaxRetries-1, 0),
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	var embeddings [][]float32
	err := DownloadWithRetry(ctx, retryCfg, func() error {
		timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		result, err := e.doEmbed(timeoutCtx, texts)
		if err != nil {
			return err
		}
		embeddings = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embeddings, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (e *RemoteEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	body, err := json.Marshal(remoteRequest{Model: e.config.Model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach embedding endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embeddings := make([][]float32, len(result.Data))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[d.Index] = normalizeVector(vec)
	}

	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *RemoteEmbedder) ModelName() string {
	return e.config.Model
}

// Available checks whether an API key is configured and the embedder is
// not closed. It does not perform a network round trip.
func (e *RemoteEmbedder) Available(_ context.Context) bool {
	return !e.isClosed() && e.config.APIKey != ""
}

// Close releases resources.
func (e *RemoteEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	return nil
}
