package config

import "time"

const (
	appName         = "careerpath"
	keychainAccount = "gemini_api_key"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	Roadmap RoadmapConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	// DataDir holds the SQLite database. ":memory:" keeps nothing on disk.
	DataDir string
}

type GeminiConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

type RoadmapConfig struct {
	SchemaValidation bool
	MaxConcurrent    int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: ":memory:",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Roadmap: RoadmapConfig{
			SchemaValidation: true,
			MaxConcurrent:    3,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.careerpath.app) and the
// Gemini key falls back to macOS Keychain.
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/careerpath/config.json
// and the key falls back to $XDG_DATA_HOME/careerpath/secrets.json.
//
// Environment variables (CAREERPATH_*) override backend values on all platforms.
// A missing Gemini key is not an error: roadmaps then come from templates.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), platformSecrets{})
}

// secrets reads values from a secret store by account name.
type secrets interface {
	Secret(account string) (string, error)
}

type platformSecrets struct{}

func (platformSecrets) Secret(account string) (string, error) { return secretGet(account) }

func loadWith(b Backend, sec secrets) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		if key, err := sec.Secret(keychainAccount); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	return cfg, nil
}

// MissingKeyHint tells the user where the Gemini key is looked up.
func MissingKeyHint() string {
	return "no Gemini API key configured; roadmaps will be generated from templates. " +
		"Set CAREERPATH_GEMINI_API_KEY" + apiKeyHint()
}
