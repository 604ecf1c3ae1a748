package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores runtime configuration loaded from the environment and an
// optional YAML file.
type Config struct {
	Port string

	OpenAIAPIKey string
	OpenAIModel  string
	LLMTimeout   time.Duration

	EmailAddress  string
	EmailPassword string
	IMAPServer    string
	IMAPPort      int
	IMAPTLS       bool
	IMAPFolder    string
	SMTPServer    string
	SMTPPort      int
	SMTPTLS       bool

	MaxEmails     int
	SummaryLength int

	DatabaseURL string
	SQLitePath  string

	DigestSchedule       string
	DigestEmail          string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	DigestWhatsAppTo     string
	TwilioWebhookURL     string

	LocalTimezone *time.Location
}

// ConfigFileEnv names the variable pointing at an optional YAML config file.
const ConfigFileEnv = "INBOXPILOT_CONFIG"

// Load reads configuration values and prepares defaults where applicable.
// Environment variables (including a .env file) override the YAML file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	timezoneName := v.GetString("local_timezone")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	return &Config{
		Port:                 v.GetString("port"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai_model"),
		LLMTimeout:           v.GetDuration("llm_timeout"),
		EmailAddress:         v.GetString("email_address"),
		EmailPassword:        v.GetString("email_password"),
		IMAPServer:           v.GetString("imap_server"),
		IMAPPort:             v.GetInt("imap_port"),
		IMAPTLS:              v.GetBool("imap_tls"),
		IMAPFolder:           v.GetString("imap_folder"),
		SMTPServer:           v.GetString("smtp_server"),
		SMTPPort:             v.GetInt("smtp_port"),
		SMTPTLS:              v.GetBool("smtp_tls"),
		MaxEmails:            positive(v.GetInt("max_emails"), 10),
		SummaryLength:        positive(v.GetInt("summary_length"), 100),
		DatabaseURL:          v.GetString("database_url"),
		SQLitePath:           v.GetString("sqlite_path"),
		DigestSchedule:       v.GetString("digest_schedule"),
		DigestEmail:          v.GetString("digest_email"),
		TwilioAccountSID:     v.GetString("twilio_account_sid"),
		TwilioAuthToken:      v.GetString("twilio_auth_token"),
		TwilioWhatsAppNumber: v.GetString("twilio_whatsapp_number"),
		DigestWhatsAppTo:     v.GetString("digest_whatsapp_to"),
		TwilioWebhookURL:     v.GetString("twilio_webhook_url"),
		LocalTimezone:        location,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("llm_timeout", "60s")
	v.SetDefault("email_address", "")
	v.SetDefault("email_password", "")
	v.SetDefault("imap_server", "imap.gmail.com")
	v.SetDefault("imap_port", 993)
	v.SetDefault("imap_tls", true)
	v.SetDefault("imap_folder", "INBOX")
	v.SetDefault("smtp_server", "smtp.gmail.com")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_tls", false)
	v.SetDefault("max_emails", 10)
	v.SetDefault("summary_length", 100)
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_path", "reminders.db")
	v.SetDefault("digest_schedule", "0 8 * * *")
	v.SetDefault("digest_email", "")
	v.SetDefault("twilio_account_sid", "")
	v.SetDefault("twilio_auth_token", "")
	v.SetDefault("twilio_whatsapp_number", "")
	v.SetDefault("digest_whatsapp_to", "")
	v.SetDefault("twilio_webhook_url", "")
	v.SetDefault("local_timezone", "Local")
}

// Validate logs a warning for every missing credential. A partially
// configured assistant still starts; the affected agents fall back.
func (c *Config) Validate(logger *log.Logger) []string {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.EmailAddress == "" {
		missing = append(missing, "EMAIL_ADDRESS")
	}
	if c.EmailPassword == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	for _, key := range missing {
		logger.Printf("config: %s not set", key)
	}
	return missing
}

// WhatsAppDigestEnabled reports whether the Twilio digest channel is usable.
func (c *Config) WhatsAppDigestEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioWhatsAppNumber != "" && strings.TrimSpace(c.DigestWhatsAppTo) != ""
}

func positive(value, def int) int {
	if value <= 0 {
		return def
	}
	return value
}
