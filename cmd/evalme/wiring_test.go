package main

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addProviderFlags(f)
	addStorageFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	v := viper.New()
	if err := v.BindPFlags(f); err != nil {
		t.Fatalf("bind flags: %v", err)
	}
	return v
}

func TestStorageConfigFromFlags(t *testing.T) {
	v := newTestViper(t, "--storage-backend", "s3", "--s3-bucket", "sheets", "--s3-prefix", "2024/")
	cfg, err := storageConfig(v)
	if err != nil {
		t.Fatalf("storageConfig: %v", err)
	}
	if cfg.Backend != "s3" || cfg.Bucket != "sheets" || cfg.Prefix != "2024/" || cfg.Root != "." {
		t.Errorf("storageConfig = %+v", cfg)
	}
}

func TestStorageConfigFromEnv(t *testing.T) {
	t.Setenv("EVALME_S3_REGION", "eu-west-1")
	v := newTestViper(t)
	v.SetEnvPrefix("EVALME")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	cfg, err := storageConfig(v)
	if err != nil {
		t.Fatalf("storageConfig: %v", err)
	}
	if cfg.Region != "eu-west-1" || cfg.Backend != "local" {
		t.Errorf("storageConfig = %+v", cfg)
	}
}

func TestLLMConfig(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantProvider string
		wantKey      string
	}{
		{"defaults", nil, "none", "ollama"},
		{"openai", []string{"--embedding-provider", " OpenAI ", "--llm-key", "sk-1"}, "openai", "sk-1"},
		{"gemini key", []string{"--embedding-provider", "gemini", "--gemini-key", "g-1"}, "gemini", "g-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := llmConfig(newTestViper(t, tt.args...))
			if err != nil {
				t.Fatalf("llmConfig: %v", err)
			}
			if cfg.Provider != tt.wantProvider || cfg.APIKey != tt.wantKey {
				t.Errorf("llmConfig = %+v, want provider %q key %q", cfg, tt.wantProvider, tt.wantKey)
			}
		})
	}
}

func TestEmbeddingProviderHelpMentionsSemantic(t *testing.T) {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addProviderFlags(f)
	fl := f.Lookup("embedding-provider")
	if fl.DefValue != "none" || !strings.Contains(fl.Usage, "semantic") {
		t.Errorf("embedding-provider default %q usage %q", fl.DefValue, fl.Usage)
	}
}
