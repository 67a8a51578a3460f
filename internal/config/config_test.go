package config

import (
	"testing"
	"time"
)

func clearCounselEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"COUNSEL_PROVIDER_API_KEY", "COUNSEL_PROVIDER_BASE_URL",
		"COUNSEL_DEFAULT_MODEL", "COUNSEL_SOUNDNESS_MODEL",
		"COUNSEL_NO_TOKEN_LIMITS", "COUNSEL_MAX_OUTPUT_TOKENS",
		"COUNSEL_CALL_TIMEOUT_SECONDS", "COUNSEL_HEARTBEAT_SECONDS",
		"COUNSEL_CHUNK_MAX_CHARS", "COUNSEL_EMBED_CHUNK_MAX_CHARS",
		"COUNSEL_VERIFY_SOURCE_URLS", "COUNSEL_VERIFY_API_KEY",
		"COUNSEL_VERIFY_TIER", "COUNSEL_VERIFY_TIMEOUT_SECONDS",
		"COUNSEL_VERIFY_MAX_CONCURRENT", "COUNSEL_CACHE_DATABASE_URL",
		"COUNSEL_CACHE_AUTH_TOKEN", "COUNSEL_AUDIT_DIR", "COUNSEL_AUDIT_ENCODING",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearCounselEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ProviderBaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.ProviderBaseURL)
	}
	if cfg.DefaultModel != "anthropic/claude-sonnet-4" {
		t.Fatalf("unexpected default model %q", cfg.DefaultModel)
	}
	if cfg.SoundnessModel != "anthropic/claude-opus-4" {
		t.Fatalf("unexpected soundness model %q", cfg.SoundnessModel)
	}
	if cfg.ChunkMaxChars != 200_000 {
		t.Fatalf("unexpected chunk limit %d", cfg.ChunkMaxChars)
	}
	if cfg.EmbedChunkMaxChars != 8_000 {
		t.Fatalf("unexpected embed chunk limit %d", cfg.EmbedChunkMaxChars)
	}
	if cfg.CallTimeout != 120*time.Second {
		t.Fatalf("unexpected call timeout %v", cfg.CallTimeout)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Fatalf("unexpected heartbeat interval %v", cfg.HeartbeatInterval)
	}
	if cfg.VerifyTier != "standard" {
		t.Fatalf("unexpected verify tier %q", cfg.VerifyTier)
	}
	if cfg.AuditEncoding != "jsonl" {
		t.Fatalf("unexpected audit encoding %q", cfg.AuditEncoding)
	}
	if len(cfg.VerifySourceURLs) != 0 {
		t.Fatalf("expected no verify sources by default, got %v", cfg.VerifySourceURLs)
	}
	if cfg.NoTokenLimits {
		t.Fatal("token limits must be on by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearCounselEnv(t)
	t.Setenv("COUNSEL_PROVIDER_API_KEY", "sk-or-test")
	t.Setenv("COUNSEL_DEFAULT_MODEL", "test/model")
	t.Setenv("COUNSEL_NO_TOKEN_LIMITS", "true")
	t.Setenv("COUNSEL_CHUNK_MAX_CHARS", "50000")
	t.Setenv("COUNSEL_VERIFY_SOURCE_URLS", "https://a.test, https://b.test")
	t.Setenv("COUNSEL_VERIFY_TIER", "comprehensive")
	t.Setenv("COUNSEL_AUDIT_ENCODING", "narrative")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ProviderAPIKey != "sk-or-test" || cfg.DefaultModel != "test/model" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.NoTokenLimits {
		t.Fatal("expected no-token-limits override")
	}
	if cfg.ChunkMaxChars != 50000 {
		t.Fatalf("chunk limit = %d, want 50000", cfg.ChunkMaxChars)
	}
	if len(cfg.VerifySourceURLs) != 2 || cfg.VerifySourceURLs[1] != "https://b.test" {
		t.Fatalf("unexpected verify sources %v", cfg.VerifySourceURLs)
	}
	if cfg.VerifyTier != "comprehensive" || cfg.AuditEncoding != "narrative" {
		t.Fatalf("unexpected tier/encoding: %q %q", cfg.VerifyTier, cfg.AuditEncoding)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero chunk limit", "COUNSEL_CHUNK_MAX_CHARS", "0"},
		{"zero embed chunk limit", "COUNSEL_EMBED_CHUNK_MAX_CHARS", "-1"},
		{"too many sources", "COUNSEL_VERIFY_SOURCE_URLS", "a,b,c,d"},
		{"unknown tier", "COUNSEL_VERIFY_TIER", "premium"},
		{"unknown encoding", "COUNSEL_AUDIT_ENCODING", "xml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearCounselEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadRequiresTokenForRemoteCache(t *testing.T) {
	clearCounselEnv(t)
	t.Setenv("COUNSEL_CACHE_DATABASE_URL", "libsql://cache.example.turso.io")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when libsql url has no auth token")
	}

	t.Setenv("COUNSEL_CACHE_AUTH_TOKEN", "token-123")
	if _, err := Load(); err != nil {
		t.Fatalf("load with token: %v", err)
	}
}
