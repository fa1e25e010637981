package embed

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ProviderType identifies which Embedder implementation to construct.
type ProviderType string

const (
	// ProviderRemote uses a credential-gated HTTP API for embeddings.
	ProviderRemote ProviderType = "remote"

	// ProviderStatic uses hash-based embeddings (no network, no credential).
	ProviderStatic ProviderType = "static"
)

// NewEmbedder creates an embedder for the given provider and model.
// AGENT_SESSIONS_EMBEDDER overrides the provider selection. The static,
// hash-based embedder is only ever used when "static" is requested
// explicitly, by argument or by AGENT_SESSIONS_EMBEDDER=static: when the
// default (remote) provider has no credential configured, NewEmbedder
// returns a NullEmbedder instead of silently degrading to hash-based
// vectors, so callers can tell "semantic search unavailable" apart from
// "semantic search running on low-quality vectors".
//
// Query-embedding caching is enabled by default; set
// AGENT_SESSIONS_EMBED_CACHE=false to disable it.
func NewEmbedder(ctx context.Context, provider ProviderType, model string) (Embedder, error) {
	if envProvider := os.Getenv("AGENT_SESSIONS_EMBEDDER"); envProvider != "" {
		provider = ParseProvider(envProvider)
	}

	var embedder Embedder
	switch provider {
	case ProviderStatic:
		embedder = NewStaticEmbedder768()
	default:
		cfg := DefaultRemoteConfig()
		if model != "" {
			cfg.Model = model
		}
		if endpoint := os.Getenv("AGENT_SESSIONS_EMBED_ENDPOINT"); endpoint != "" {
			cfg.Endpoint = endpoint
		}
		remote, err := NewRemoteEmbedder(cfg)
		if err != nil {
			embedder = NewNullEmbedder(cfg.Dimensions)
		} else {
			embedder = remote
		}
	}

	if !isCacheDisabled() {
		embedder = NewCachedEmbedderWithDefaults(embedder)
	}
	return embedder, nil
}

func isCacheDisabled() bool {
	v := strings.ToLower(os.Getenv("AGENT_SESSIONS_EMBED_CACHE"))
	return v == "false" || v == "0" || v == "off" || v == "disabled"
}

// ParseProvider converts a string to ProviderType, defaulting to remote.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(s) {
	case "static":
		return ProviderStatic
	default:
		return ProviderRemote
	}
}

// String returns the string representation of ProviderType.
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names.
func ValidProviders() []string {
	return []string{string(ProviderRemote), string(ProviderStatic)}
}

// IsValidProvider checks if a provider name is valid.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// EmbedderInfo describes a constructed embedder.
type EmbedderInfo struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	Available  bool
}

// GetInfo returns information about an embedder, unwrapping a CachedEmbedder
// to report on the underlying provider.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.inner
	}

	switch inner.(type) {
	case *RemoteEmbedder, *NullEmbedder:
		info.Provider = ProviderRemote
	default:
		info.Provider = ProviderStatic
	}
	return info
}

// MustNewEmbedder creates an embedder and panics on failure.
// Use only in tests or initialization code where failure is fatal.
func MustNewEmbedder(ctx context.Context, provider ProviderType, model string) Embedder {
	embedder, err := NewEmbedder(ctx, provider, model)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedder: %v", err))
	}
	return embedder
}
