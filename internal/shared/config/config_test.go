package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"intake-backend/internal/shared/telemetry"
)

func TestLoadWithFileEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intake.yaml")
	yaml := []byte("port: \"9090\"\nllmProvider: openai\nsignedUrlTtl: 5m\nstorageFolder: profiles\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_PROVIDER", "")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env port 7070, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected yaml provider openai, got %q", cfg.LLMProvider)
	}
	if cfg.SignedURLTTL != 5*time.Minute {
		t.Fatalf("expected ttl 5m, got %s", cfg.SignedURLTTL)
	}
	if cfg.StorageFolder != "profiles" {
		t.Fatalf("expected folder profiles, got %q", cfg.StorageFolder)
	}
}

func TestLoadWithFileMissing(t *testing.T) {
	if _, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultsLimits(t *testing.T) {
	cfg := Defaults()
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MiB upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxPayloadBytes != 1<<20 {
		t.Fatalf("expected 1MiB payload cap, got %d", cfg.MaxPayloadBytes)
	}
}

func TestNormalizers(t *testing.T) {
	if got := normalizeEnv("PROD"); got != "production" {
		t.Fatalf("normalizeEnv(PROD) = %q", got)
	}
	if got := normalizeStoreType("S3"); got != "s3" {
		t.Fatalf("normalizeStoreType(S3) = %q", got)
	}
	if got := normalizeProvider("none"); got != "none" {
		t.Fatalf("normalizeProvider(none) = %q", got)
	}
	if got := normalizeProvider("Gemini"); got != "gemini" {
		t.Fatalf("normalizeProvider(Gemini) = %q", got)
	}
	if !(Config{Env: "local"}).IsDevLike() {
		t.Fatal("expected local to be dev-like")
	}
}

func TestInvalidEnvValuesLogWarnings(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := telemetry.L()
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(prev) })

	t.Setenv("INTAKE_TEST_TTL", "soon")
	t.Setenv("INTAKE_TEST_FLAG", "maybe")
	if got := getEnvDuration("INTAKE_TEST_TTL", time.Minute); got != time.Minute {
		t.Fatalf("expected default duration, got %s", got)
	}
	if got := getEnvBool("INTAKE_TEST_FLAG", true); !got {
		t.Fatal("expected default bool")
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(entries))
	}
	if entries[0].Message != "config.invalid_duration" || entries[0].ContextMap()["key"] != "INTAKE_TEST_TTL" {
		t.Fatalf("unexpected first warning %+v", entries[0])
	}
	if entries[1].Message != "config.invalid_bool" || entries[1].ContextMap()["value"] != "maybe" {
		t.Fatalf("unexpected second warning %+v", entries[1])
	}
}
