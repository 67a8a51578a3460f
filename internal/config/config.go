package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultProviderBaseURL    = "https://openrouter.ai/api/v1"
	defaultModel              = "anthropic/claude-sonnet-4"
	defaultSoundnessModel     = "anthropic/claude-opus-4"
	defaultMaxOutputTokens    = 8192
	defaultCallTimeoutSecs    = 120
	defaultHeartbeatSecs      = 10
	defaultChunkMaxChars      = 200_000
	defaultEmbedChunkMaxChars = 8_000
	defaultVerifyTimeoutSecs  = 12
	defaultVerifyConcurrency  = 4
	defaultAuditDir           = "/tmp/counsel-audit"
)

const maxVerifySources = 3

type Config struct {
	ProviderAPIKey      string
	ProviderBaseURL     string
	DefaultModel        string
	SoundnessModel      string
	NoTokenLimits       bool
	MaxOutputTokens     int
	CallTimeout         time.Duration
	HeartbeatInterval   time.Duration
	ChunkMaxChars       int
	EmbedChunkMaxChars  int
	VerifySourceURLs    []string
	VerifyAPIKey        string
	VerifyTier          string
	VerifyTimeout       time.Duration
	VerifyMaxConcurrent int
	CacheDatabaseURL    string
	CacheAuthToken      string
	AuditDir            string
	AuditEncoding       string
}

func Load() (Config, error) {
	cfg := Config{
		ProviderAPIKey:      strings.TrimSpace(os.Getenv("COUNSEL_PROVIDER_API_KEY")),
		ProviderBaseURL:     envOrDefault("COUNSEL_PROVIDER_BASE_URL", defaultProviderBaseURL),
		DefaultModel:        envOrDefault("COUNSEL_DEFAULT_MODEL", defaultModel),
		SoundnessModel:      envOrDefault("COUNSEL_SOUNDNESS_MODEL", defaultSoundnessModel),
		NoTokenLimits:       boolOrDefault("COUNSEL_NO_TOKEN_LIMITS", false),
		MaxOutputTokens:     intOrDefault("COUNSEL_MAX_OUTPUT_TOKENS", defaultMaxOutputTokens),
		CallTimeout:         secondsOrDefault("COUNSEL_CALL_TIMEOUT_SECONDS", defaultCallTimeoutSecs),
		HeartbeatInterval:   secondsOrDefault("COUNSEL_HEARTBEAT_SECONDS", defaultHeartbeatSecs),
		ChunkMaxChars:       intOrDefault("COUNSEL_CHUNK_MAX_CHARS", defaultChunkMaxChars),
		EmbedChunkMaxChars:  intOrDefault("COUNSEL_EMBED_CHUNK_MAX_CHARS", defaultEmbedChunkMaxChars),
		VerifySourceURLs:    parseList(os.Getenv("COUNSEL_VERIFY_SOURCE_URLS")),
		VerifyAPIKey:        strings.TrimSpace(os.Getenv("COUNSEL_VERIFY_API_KEY")),
		VerifyTier:          envOrDefault("COUNSEL_VERIFY_TIER", "standard"),
		VerifyTimeout:       secondsOrDefault("COUNSEL_VERIFY_TIMEOUT_SECONDS", defaultVerifyTimeoutSecs),
		VerifyMaxConcurrent: intOrDefault("COUNSEL_VERIFY_MAX_CONCURRENT", defaultVerifyConcurrency),
		CacheDatabaseURL:    strings.TrimSpace(os.Getenv("COUNSEL_CACHE_DATABASE_URL")),
		CacheAuthToken:      strings.TrimSpace(os.Getenv("COUNSEL_CACHE_AUTH_TOKEN")),
		AuditDir:            envOrDefault("COUNSEL_AUDIT_DIR", defaultAuditDir),
		AuditEncoding:       envOrDefault("COUNSEL_AUDIT_ENCODING", "jsonl"),
	}

	if cfg.ChunkMaxChars <= 0 {
		return Config{}, errors.New("COUNSEL_CHUNK_MAX_CHARS must be > 0")
	}
	if cfg.EmbedChunkMaxChars <= 0 {
		return Config{}, errors.New("COUNSEL_EMBED_CHUNK_MAX_CHARS must be > 0")
	}
	if len(cfg.VerifySourceURLs) > maxVerifySources {
		return Config{}, fmt.Errorf("COUNSEL_VERIFY_SOURCE_URLS supports at most %d endpoints, got %d", maxVerifySources, len(cfg.VerifySourceURLs))
	}
	if cfg.VerifyTier != "standard" && cfg.VerifyTier != "comprehensive" {
		return Config{}, fmt.Errorf("COUNSEL_VERIFY_TIER must be standard or comprehensive, got %q", cfg.VerifyTier)
	}
	if cfg.AuditEncoding != "jsonl" && cfg.AuditEncoding != "narrative" {
		return Config{}, fmt.Errorf("COUNSEL_AUDIT_ENCODING must be jsonl or narrative, got %q", cfg.AuditEncoding)
	}
	if strings.HasPrefix(cfg.CacheDatabaseURL, "libsql://") && cfg.CacheAuthToken == "" {
		return Config{}, errors.New("COUNSEL_CACHE_AUTH_TOKEN is required for libsql:// URLs")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func boolOrDefault(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func secondsOrDefault(key string, fallbackSecs int) time.Duration {
	return time.Duration(intOrDefault(key, fallbackSecs)) * time.Second
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
