package config

import (
	"slices"
	"testing"
)

// mapBackend is an in-memory Backend for testing loadWith.
type mapBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mapBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *mapBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *mapBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func emptyBackend() *mapBackend {
	return &mapBackend{strings: make(map[string]string), ints: make(map[string]int)}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "http://127.0.0.1:11434/v1" {
		t.Errorf("base url = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "qwen2.5" || cfg.LLM.EmbedModel != "nomic-embed-text" {
		t.Errorf("models = %q / %q", cfg.LLM.Model, cfg.LLM.EmbedModel)
	}
	if cfg.Analysis.Location != "UK" {
		t.Errorf("location = %q", cfg.Analysis.Location)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Server.Token != "" {
		t.Errorf("token should default empty, got %q", cfg.Server.Token)
	}
}

func TestLoadFromBackend(t *testing.T) {
	b := emptyBackend()
	b.strings["llm.model"] = "llama3"
	b.strings["analysis.location"] = "US"
	b.ints["server.port"] = 9000

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.LLM.Model != "llama3" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Analysis.Location != "US" {
		t.Errorf("location = %q", cfg.Analysis.Location)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.LLM.EmbedModel != "nomic-embed-text" {
		t.Errorf("embed model = %q", cfg.LLM.EmbedModel)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := emptyBackend()
	b.strings["llm.model"] = "llama3"
	b.ints["server.port"] = 9000

	t.Setenv("CAREERSCOPE_LLM_MODEL", "mistral")
	t.Setenv("CAREERSCOPE_SERVER_PORT", "4300")
	t.Setenv("CAREERSCOPE_API_TOKEN", "secret-token")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.LLM.Model != "mistral" {
		t.Errorf("model = %q, env should win over the file", cfg.LLM.Model)
	}
	if cfg.Server.Port != 4300 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Server.Token)
	}
}

func TestEnvBadIntegerKeepsDefault(t *testing.T) {
	t.Setenv("CAREERSCOPE_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("port = %d, unparseable env value should keep the default", cfg.Server.Port)
	}
}

func TestSecretsNotReadFromBackend(t *testing.T) {
	b := emptyBackend()
	b.strings["server.token"] = "leaked"
	b.strings["llm.api_key"] = "leaked"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Token != "" || cfg.LLM.APIKey != "" {
		t.Errorf("secrets must be environment-only, got token=%q apiKey=%q", cfg.Server.Token, cfg.LLM.APIKey)
	}
}

func TestShowAllExcludesSecrets(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	infos := ShowAll(cfg)
	for _, info := range infos {
		if info.Key == "server.token" || info.Key == "llm.api_key" {
			t.Errorf("secret key %q should not be listed", info.Key)
		}
	}
	keys := make([]string, len(infos))
	for i, info := range infos {
		keys[i] = info.Key
	}
	if !slices.Contains(keys, "llm.model") || !slices.Contains(keys, "server.port") {
		t.Errorf("keys = %v", keys)
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	if slices.Contains(keys, "server.token") {
		t.Error("secret keys are not settable")
	}
	if !slices.Contains(keys, "analysis.location") {
		t.Errorf("keys = %v", keys)
	}
}
