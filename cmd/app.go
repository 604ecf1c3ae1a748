package cmd

import (
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/pathakanu/inboxpilot/internal/assistant"
	"github.com/pathakanu/inboxpilot/internal/config"
	"github.com/pathakanu/inboxpilot/internal/database"
	"github.com/pathakanu/inboxpilot/internal/llm"
	"github.com/pathakanu/inboxpilot/internal/mailbox"
	"github.com/pathakanu/inboxpilot/internal/twilio"
)

// app holds the process-wide wiring shared by every command.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	db        *gorm.DB
	assistant *assistant.Assistant
}

func newApp() (*app, error) {
	logger := log.New(os.Stdout, "[inboxpilot] ", log.LstdFlags|log.Lshortfile)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Validate(logger)

	backend := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	deps := assistant.Deps{
		Generator: llm.New(backend, logger),
		Logger:    logger,
	}

	if cfg.EmailAddress != "" && cfg.EmailPassword != "" {
		deps.Mailbox = mailbox.NewReader(cfg.IMAPServer, cfg.IMAPPort, cfg.EmailAddress, cfg.EmailPassword, cfg.IMAPTLS, cfg.IMAPFolder)
		sender := mailbox.NewSender(cfg.SMTPServer, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword, cfg.SMTPTLS)
		deps.Sender = sender
		if cfg.DigestEmail != "" {
			deps.Notifiers = append(deps.Notifiers, assistant.NewEmailNotifier(sender, cfg.DigestEmail))
		}
	}

	if cfg.WhatsAppDigestEnabled() {
		deps.Notifiers = append(deps.Notifiers, twilio.New(
			cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, cfg.DigestWhatsAppTo, logger,
		))
	}

	a := &app{cfg: cfg, logger: logger}
	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath, logger)
	if err != nil {
		logger.Printf("database: archive disabled: %v", err)
	} else {
		a.db = db
		deps.Archive = database.NewArchive(db)
	}

	a.assistant = assistant.New(cfg, deps)
	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
