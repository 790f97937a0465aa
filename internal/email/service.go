// Package email sends transactional mail through Resend.
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/iliyamo/crusade-registration/internal/config"
	"github.com/iliyamo/crusade-registration/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender is the subset of Service the rest of the server depends on.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, name, link string) error
	SendTicketConfirmation(ctx context.Context, to string, data TicketData) error
}

// TicketData fills the ticket confirmation template.
type TicketData struct {
	Name       string
	EventTitle string
	QRCode     string
}

// Service renders templates and delivers them.  When disabled it only logs.
type Service struct {
	config    config.EmailConfig
	templates *template.Template
	client    *resend.Client
	logger    zerolog.Logger
}

// NewService builds a Service.  A Resend client is created only when
// email is enabled.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("email enabled but RESEND_API_KEY is empty")
		}
		if _, err := mail.ParseAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	s := &Service{
		config:    cfg,
		templates: tpl,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return s, nil
}

// SendPasswordReset mails a reset link.  The link must be http(s).
func (s *Service) SendPasswordReset(ctx context.Context, to, name, link string) error {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid reset link %q", link)
	}
	return s.deliver(ctx, "password_reset", to, "Reset your Rhapsody Crusades password", "password_reset.html",
		map[string]any{"Name": name, "Link": link, "Year": time.Now().Year()})
}

// SendTicketConfirmation mails the registrant their ticket code.
func (s *Service) SendTicketConfirmation(ctx context.Context, to string, d TicketData) error {
	return s.deliver(ctx, "ticket_confirmation", to, "Registration confirmed: "+d.EventTitle, "ticket_confirmation.html",
		map[string]any{"Name": d.Name, "EventTitle": d.EventTitle, "QRCode": d.QRCode, "Year": time.Now().Year()})
}

func (s *Service) deliver(ctx context.Context, kind, to, subject, tpl string, data any) error {
	addr, err := mail.ParseAddress(to)
	if err != nil || strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid recipient email %q", to)
	}

	if !s.config.Enabled {
		metrics.EmailsTotal.WithLabelValues(kind, "skipped").Inc()
		s.logger.Info().Str("to", to).Str("template", kind).Msg("email disabled, skipping")
		return nil
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, tpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tpl, err)
	}

	if err := s.sendViaResend(ctx, addr.Address, subject, buf.String()); err != nil {
		metrics.EmailsTotal.WithLabelValues(kind, "error").Inc()
		return err
	}
	metrics.EmailsTotal.WithLabelValues(kind, "sent").Inc()
	return nil
}

func (s *Service) sendViaResend(ctx context.Context, to, subject, html string) error {
	if s.client == nil {
		return errors.New("resend client not initialized")
	}
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		var rl *resend.RateLimitError
		if errors.As(err, &rl) {
			s.logger.Warn().Str("limit", rl.Limit).Str("reset", rl.Reset).Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded: %w", err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}
	s.logger.Info().Str("email_id", sent.Id).Str("to", to).Msg("email sent")
	return nil
}
