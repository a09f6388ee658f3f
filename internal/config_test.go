package internal

import (
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	cfg := HTTPConfig{Port: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should fail validation")
	}

	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("port 70000 should fail validation")
	}

	cfg.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Errorf("port 8080 should pass: %v", err)
	}
	if got := cfg.Address(); got != ":8080" {
		t.Errorf("Address() = %q, want :8080", got)
	}
}

func TestVaultConfig_PathRequired(t *testing.T) {
	cfg := VaultConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("empty vault path should fail validation")
	}
}

func TestOutputConfig_PathRequired(t *testing.T) {
	cfg := OutputConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("empty output path should fail validation")
	}
}

func TestQualityConfig_ScoreBounds(t *testing.T) {
	cfg := QualityConfig{MinScore: 11}
	if err := cfg.Validate(); err == nil {
		t.Error("min_score above 10 should fail validation")
	}

	cfg.MinScore = 6
	if err := cfg.Validate(); err != nil {
		t.Errorf("min_score 6 should pass: %v", err)
	}
}

func TestReviewConfig_ThresholdBounds(t *testing.T) {
	cfg := ReviewConfig{Threshold: 11}
	if err := cfg.Validate(); err == nil {
		t.Error("threshold above 10 should fail validation")
	}

	cfg.Threshold = 7
	if err := cfg.Validate(); err != nil {
		t.Errorf("threshold 7 should pass: %v", err)
	}
}

func TestFullConfig_NestedValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Quality.MinScore = 99
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch quality error")
	}
}
