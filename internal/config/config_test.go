package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opsdesk/fncall/internal/config"
	"github.com/opsdesk/fncall/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FNCALL_CONFIG", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxIterations != config.DefaultMaxIterations || cfg.Port != config.DefaultPort {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.ModelConfig().Provider != model.ProviderDashScope {
		t.Errorf("provider = %s", cfg.ModelConfig().Provider)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fncall.json")
	body := `{"port": 9001, "model_provider": "openai", "max_iterations": 3, "model_timeout": 10}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FNCALL_CONFIG", path)
	t.Setenv("FNCALL_MAX_ITERATIONS", "7")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9001 {
		t.Errorf("port = %d, want value from file", cfg.Port)
	}
	if cfg.MaxIterations != 7 {
		t.Errorf("max_iterations = %d, env should win over file", cfg.MaxIterations)
	}
	mc := cfg.ModelConfig()
	if mc.Provider != model.ProviderOpenAI || mc.APIKey != "sk-test" || mc.Timeout != 10*time.Second {
		t.Errorf("model config = %+v", mc)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("FNCALL_CONFIG", filepath.Join(t.TempDir(), "absent.json"))
	if _, err := config.Load(); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad port", func(c *config.Config) { c.Port = 0 }, "port"},
		{"zero budget", func(c *config.Config) { c.MaxIterations = 0 }, "max_iterations"},
		{"unknown provider", func(c *config.Config) { c.ModelProvider = "bedrock" }, "bedrock"},
		{"auth without keys", func(c *config.Config) { c.EnableAuth = true }, "api_keys"},
		{"es without host", func(c *config.Config) { c.ElasticsearchEnabled = true }, "elasticsearch_host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
	if err := config.Default().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
