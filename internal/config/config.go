package config

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type LLMConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
	APIKey     string
}

type StorageConfig struct {
	DataDir string
}

type AnalysisConfig struct {
	Location string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		LLM: LLMConfig{
			BaseURL:    "http://127.0.0.1:11434/v1",
			Model:      "qwen2.5",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Analysis: AnalysisConfig{
			Location: "UK",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/careerscope/config.json, then applies CAREERSCOPE_*
// environment variable overrides. Secrets (the API bearer token and the LLM
// API key) are environment-only and never written to the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	return cfg, nil
}
