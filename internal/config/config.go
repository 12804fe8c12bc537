package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrMissingConfig indicates a required credential or model selection is
// absent. Startup must abort; nothing is attempted against the backends.
var ErrMissingConfig = errors.New("missing required config")

type Config struct {
	Server    ServerConfig
	Gemini    GeminiConfig
	Weaviate  WeaviateConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

// GeminiConfig selects the answer-generation model. The key and model name
// are required; Load fails with ErrMissingConfig when either is absent.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type WeaviateConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// OllamaConfig is only consulted when the local SQLite vector store backend
// is selected (DOCQUERY_STORE_BACKEND=sqlite).
type OllamaConfig struct {
	BaseURL    string
	EmbedModel string
}

type StorageConfig struct {
	// Backend selects the vector store: "weaviate" (default) or "sqlite".
	Backend string
	DataDir string
	// DocsDir is the directory scanned for PDF files during ingestion.
	DocsDir string
}

type RetrievalConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
		},
		Weaviate: WeaviateConfig{
			Collection: "Documents",
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			Backend: "weaviate",
			DataDir: defaultDataDir(),
			DocsDir: "data",
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "docquery-data"
		}
	}
	return filepath.Join(dir, "docquery")
}

// Load reads configuration from defaults, an optional .env file in the
// working directory, and DOCQUERY_* environment variables (which win).
//
// The Gemini API key and model name are required. The Weaviate URL and API
// key are required unless the SQLite backend is selected.
func Load() (Config, error) {
	// A missing .env is fine; explicit env vars are the primary channel.
	_ = godotenv.Load()

	cfg := defaults()
	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("%w: Gemini API key (set DOCQUERY_GEMINI_API_KEY)", ErrMissingConfig)
	}
	if cfg.Gemini.Model == "" {
		return Config{}, fmt.Errorf("%w: Gemini model name (set DOCQUERY_GEMINI_MODEL)", ErrMissingConfig)
	}
	if cfg.Storage.Backend == "weaviate" {
		if cfg.Weaviate.URL == "" {
			return Config{}, fmt.Errorf("%w: Weaviate URL (set DOCQUERY_WEAVIATE_URL)", ErrMissingConfig)
		}
		if cfg.Weaviate.APIKey == "" {
			return Config{}, fmt.Errorf("%w: Weaviate API key (set DOCQUERY_WEAVIATE_API_KEY)", ErrMissingConfig)
		}
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}

	setInt(&cfg.Server.Port, "DOCQUERY_PORT")
	setString(&cfg.Gemini.APIKey, "DOCQUERY_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "DOCQUERY_GEMINI_MODEL")
	setString(&cfg.Gemini.BaseURL, "DOCQUERY_GEMINI_BASE_URL")
	setString(&cfg.Weaviate.URL, "DOCQUERY_WEAVIATE_URL")
	setString(&cfg.Weaviate.APIKey, "DOCQUERY_WEAVIATE_API_KEY")
	setString(&cfg.Weaviate.Collection, "DOCQUERY_WEAVIATE_COLLECTION")
	setString(&cfg.Ollama.BaseURL, "DOCQUERY_OLLAMA_BASE_URL")
	setString(&cfg.Ollama.EmbedModel, "DOCQUERY_OLLAMA_EMBED_MODEL")
	setString(&cfg.Storage.Backend, "DOCQUERY_STORE_BACKEND")
	setString(&cfg.Storage.DataDir, "DOCQUERY_DATA_DIR")
	setString(&cfg.Storage.DocsDir, "DOCQUERY_DOCS_DIR")
	setInt(&cfg.Retrieval.TopK, "DOCQUERY_TOP_K")
	setString(&cfg.Log.Level, "DOCQUERY_LOG_LEVEL")
}
