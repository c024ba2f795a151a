package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestBootstrapLoggerReadsEnvFile(t *testing.T) {
	for _, k := range []string{"ENV", "LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ENV=production\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}

	log, err := bootstrapLogger(path)
	if err != nil {
		t.Fatalf("bootstrapLogger returned error: %v", err)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level from .env, got %s", log.GetLevel())
	}
}

func TestBootstrapLoggerWithoutEnvFile(t *testing.T) {
	// main logs a warning and carries on with process env.
	if _, err := bootstrapLogger(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
