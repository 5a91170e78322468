package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.MatchThreshold != 0.6 || cfg.ComparisonMethod != "ensemble" {
		t.Errorf("Unexpected pipeline defaults %v %s", cfg.MatchThreshold, cfg.ComparisonMethod)
	}
	if cfg.FacePadding != 0.2 || cfg.CanonicalFaceSize != 600 {
		t.Errorf("Unexpected extraction defaults %v %d", cfg.FacePadding, cfg.CanonicalFaceSize)
	}
	if !cfg.SSIMEnabled || !cfg.PreprocessEnabled {
		t.Error("Expected SSIM and preprocessing enabled by default")
	}
	if cfg.FaceSink != SinkNone || cfg.MaxRequestBodySize != 10*1024*1024 {
		t.Errorf("Unexpected sink/body defaults %s %d", cfg.FaceSink, cfg.MaxRequestBodySize)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("SSIM_ENABLED", "false")
	t.Setenv("FACE_SINK", "LOCAL")
	t.Setenv("BATCH_WORKERS", "8")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.MatchThreshold != 0.75 || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.SSIMEnabled || cfg.FaceSink != SinkLocal || cfg.BatchWorkers != 8 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
}

func TestLoadFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"SERVER_PORT", "99999", "SERVER_PORT"},
		{"MATCH_THRESHOLD", "1.5", "MATCH_THRESHOLD"},
		{"MATCH_THRESHOLD", "high", "MATCH_THRESHOLD"},
		{"DNN_CONFIDENCE", "0", "DNN_CONFIDENCE"},
		{"FACE_PADDING", "-0.1", "FACE_PADDING"},
		{"CANONICAL_FACE_SIZE", "0", "CANONICAL_FACE_SIZE"},
		{"BATCH_WORKERS", "0", "BATCH_WORKERS"},
		{"FACE_SINK", "s3", "FACE_SINK"},
		{"FACE_SINK", "azure", "AZURE_STORAGE_ACCOUNT_NAME"},
		{"MAX_REQUEST_BODY_SIZE", "-1", "MAX_REQUEST_BODY_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("Expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
