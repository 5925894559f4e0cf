package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	contracts "github.com/vivaneiona/genkit-contracts"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Prompts    PromptConfig
	LogLevel   slog.Level
}

// ServerConfig holds HTTP front end configuration
type ServerConfig struct {
	Addr         string
	MaxUploadMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LLMConfig holds model access configuration
type LLMConfig struct {
	APIKey      string
	Model       string
	CallTimeout time.Duration
	MaxRetries  int
	Backoff     time.Duration
}

// ExtractionConfig holds pipeline tuning
type ExtractionConfig struct {
	ChunkChars         int
	OverlapChars       int
	Concurrency        int
	RequestTimeout     time.Duration
	GroundingThreshold float64
	HeaderThreshold    float64
	Recheck            bool
}

// PromptConfig points at prompt overrides. Inline prompts win over files
// found in Dir.
type PromptConfig struct {
	Dir        string
	Extraction string
	Recheck    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":" + getEnv("PORT", "8080"),
			MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 16),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Minute),
		},
		LLM: LLMConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("CONTRACTS_MODEL", contracts.DefaultModel),
			CallTimeout: getEnvAsDuration("CALL_TIMEOUT", 60*time.Second),
			MaxRetries:  getEnvAsInt("MAX_RETRIES", 1),
			Backoff:     getEnvAsDuration("RETRY_BACKOFF", 2*time.Second),
		},
		Extraction: ExtractionConfig{
			ChunkChars:         getEnvAsInt("CHUNK_CHARS", contracts.DefaultMaxChunkChars),
			OverlapChars:       getEnvAsInt("OVERLAP_CHARS", contracts.DefaultOverlapChars),
			Concurrency:        getEnvAsInt("CONCURRENCY", 4),
			RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Minute),
			GroundingThreshold: getEnvAsFloat64("GROUNDING_THRESHOLD", contracts.DefaultGroundingThreshold),
			HeaderThreshold:    getEnvAsFloat64("HEADER_THRESHOLD", contracts.DefaultHeaderThreshold),
			Recheck:            getEnvAsBool("RECHECK", false),
		},
		Prompts: PromptConfig{
			Dir:        getEnv("PROMPT_DIR", ""),
			Extraction: getEnv("EXTRACTION_PROMPT", ""),
			Recheck:    getEnv("RECHECK_PROMPT", ""),
		},
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks the settings every command needs. The API key is
// checked separately by commands that call the model.
func (c *Config) Validate() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("CONTRACTS_MODEL is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Extraction.ChunkChars <= 0 {
		return fmt.Errorf("CHUNK_CHARS must be positive, got %d", c.Extraction.ChunkChars)
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 { return int64(c.Server.MaxUploadMB) << 20 }

// Options turns the configuration into extraction options.
func (c *Config) Options() []func(*contracts.Options) {
	opts := []func(*contracts.Options){
		contracts.WithModel(c.LLM.Model),
		contracts.WithCallTimeout(c.LLM.CallTimeout),
		contracts.WithRetry(c.LLM.MaxRetries, c.LLM.Backoff),
		contracts.WithChunking(c.Extraction.ChunkChars, c.Extraction.OverlapChars),
		contracts.WithConcurrency(c.Extraction.Concurrency),
		contracts.WithTimeout(c.Extraction.RequestTimeout),
		contracts.WithGroundingThreshold(c.Extraction.GroundingThreshold),
		contracts.WithHeaderThreshold(c.Extraction.HeaderThreshold),
	}
	if c.Extraction.Recheck {
		opts = append(opts, contracts.WithRecheck())
	}
	return opts
}

// PromptProvider builds the stick provider with any configured overrides.
func (c *Config) PromptProvider() (*contracts.StickPromptProvider, error) {
	var opts []contracts.Option
	if c.Prompts.Dir != "" {
		opts = append(opts, contracts.WithFS(os.DirFS(c.Prompts.Dir), "."))
	}
	inline := map[string]string{}
	if c.Prompts.Extraction != "" {
		inline[contracts.PromptExtract] = c.Prompts.Extraction
	}
	if c.Prompts.Recheck != "" {
		inline[contracts.PromptRecheck] = c.Prompts.Recheck
	}
	opts = append(opts, contracts.WithTemplates(inline))
	return contracts.NewStickPromptProvider(opts...)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
