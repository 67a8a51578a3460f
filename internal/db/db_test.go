package db

import "testing"

func TestBuildDSNForLibsqlAddsToken(t *testing.T) {
	dsn, err := buildDSN("libsql://counsel-cache.example.turso.io", "abc123")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if dsn != "libsql://counsel-cache.example.turso.io?authToken=abc123" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestBuildDSNForFileURL(t *testing.T) {
	dsn, err := buildDSN("file:cache.db", "ignored")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if dsn != "file:cache.db" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestBuildDSNRejectsEmptyURL(t *testing.T) {
	if _, err := buildDSN("", ""); err == nil {
		t.Fatal("expected error for empty cache database url")
	}
}
