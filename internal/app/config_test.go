package app

import (
	"reflect"
	"testing"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

func TestLoadConfig_SOSKeywordsFromEnv(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SOS_KEYWORDS", "giving up, worthless ,, no way out")

	cfg := LoadConfig(log)
	want := []string{"giving up", "worthless", "no way out"}
	if !reflect.DeepEqual(cfg.SOSKeywords, want) {
		t.Fatalf("expected %v, got %v", want, cfg.SOSKeywords)
	}
}

func TestLoadConfig_SOSKeywordsDefaultToNil(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SOS_KEYWORDS", "")

	cfg := LoadConfig(log)
	if cfg.SOSKeywords != nil {
		t.Fatalf("expected nil keyword override, got %v", cfg.SOSKeywords)
	}
}
