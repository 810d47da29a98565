package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Email EmailConfig
	LLM   LLMConfig
	Agent AgentConfig
	Log   LogConfig
}

// EmailConfig holds IMAP/SMTP connection settings
type EmailConfig struct {
	IMAPServer string
	IMAPPort   int
	SMTPServer string
	SMTPPort   int
	Address    string
	Password   string
	UseSSL     bool
}

// LLMConfig holds completion endpoint settings
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
}

// AgentConfig holds triage behavior settings
type AgentConfig struct {
	MaxEmailsToFetch int
	SummaryMaxWords  int
	Categories       []string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
	File  string
}

// Default configuration values
const (
	DefaultIMAPPort        = 993
	DefaultSMTPPort        = 587
	DefaultLLMBaseURL      = "http://localhost:11434"
	DefaultLLMModel        = "qwen2.5:7b"
	DefaultLLMAPIKey       = "ollama"
	DefaultTemperature     = 0.7
	DefaultMaxEmails       = 10
	DefaultSummaryMaxWords = 100
	DefaultLogLevel        = "info"
)

// DefaultCategories is the closed category set used when none is configured.
var DefaultCategories = []string{"Important", "Work", "Personal", "Newsletter", "Spam", "Other"}

// Load loads configuration from a .env file (if present) and environment
// variables. Environment variables take priority over .env entries.
func Load() (*Config, error) {
	// .env is optional; environment variables alone are fine
	_ = godotenv.Load()

	cfg := &Config{
		Email: EmailConfig{
			IMAPPort: DefaultIMAPPort,
			SMTPPort: DefaultSMTPPort,
			UseSSL:   true,
		},
		LLM: LLMConfig{
			BaseURL:     DefaultLLMBaseURL,
			Model:       DefaultLLMModel,
			APIKey:      DefaultLLMAPIKey,
			Temperature: DefaultTemperature,
		},
		Agent: AgentConfig{
			MaxEmailsToFetch: DefaultMaxEmails,
			SummaryMaxWords:  DefaultSummaryMaxWords,
			Categories:       DefaultCategories,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}

	cfg.loadFromEnv()
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("IMAP_SERVER"); val != "" {
		c.Email.IMAPServer = val
	}
	if val := os.Getenv("IMAP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Email.IMAPPort = port
		}
	}
	if val := os.Getenv("SMTP_SERVER"); val != "" {
		c.Email.SMTPServer = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Email.SMTPPort = port
		}
	}
	if val := os.Getenv("EMAIL_ADDRESS"); val != "" {
		c.Email.Address = val
	}
	if val := os.Getenv("EMAIL_PASSWORD"); val != "" {
		c.Email.Password = val
	}
	if val := os.Getenv("IMAP_NO_SSL"); val == "1" || strings.EqualFold(val, "true") {
		c.Email.UseSSL = false
	}
	if val := os.Getenv("OLLAMA_URL"); val != "" {
		c.LLM.BaseURL = strings.TrimSuffix(val, "/")
	}
	if val := os.Getenv("OLLAMA_MODEL"); val != "" {
		c.LLM.Model = val
	}
	if val := os.Getenv("LLM_API_KEY"); val != "" {
		c.LLM.APIKey = val
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		if t, err := strconv.ParseFloat(val, 64); err == nil {
			c.LLM.Temperature = t
		}
	}
	if val := os.Getenv("MAX_EMAILS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Agent.MaxEmailsToFetch = n
		}
	}
	if val := os.Getenv("SUMMARY_MAX_WORDS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			c.Agent.SummaryMaxWords = n
		}
	}
	if val := os.Getenv("EMAIL_CATEGORIES"); val != "" {
		var cats []string
		for _, cat := range strings.Split(val, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				cats = append(cats, cat)
			}
		}
		if len(cats) > 0 {
			c.Agent.Categories = cats
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		c.Log.File = val
	}
}
