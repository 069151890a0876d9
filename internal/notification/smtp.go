package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// SMTPConfig configures the mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type emailTemplate struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// SMTPSender sends templated emails through an SMTP relay. Template ids are
// the base names of the embedded templates.
type SMTPSender struct {
	cfg       SMTPConfig
	client    *mail.Client
	templates map[string]emailTemplate
	logger    *zap.Logger
}

// NewSMTPSender creates a sender and parses every embedded template.
func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	templates, err := loadTemplates(templateFS)
	if err != nil {
		return nil, err
	}
	logger.Info("smtp sender ready", zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.Int("templates", len(templates)))
	return &SMTPSender{cfg: cfg, client: client, templates: templates, logger: logger}, nil
}

// loadTemplates pairs <id>.txt (defining "subject" and "body") with an
// optional <id>.html.
func loadTemplates(fsys fs.FS) (map[string]emailTemplate, error) {
	texts, err := fs.Glob(fsys, "templates/*.txt")
	if err != nil {
		return nil, err
	}
	out := make(map[string]emailTemplate, len(texts))
	for _, name := range texts {
		id := strings.TrimSuffix(path.Base(name), ".txt")
		text, err := texttemplate.New(id).Option("missingkey=zero").ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t := emailTemplate{text: text}
		htmlName := "templates/" + id + ".html"
		if _, err := fs.Stat(fsys, htmlName); err == nil {
			t.html, err = htmltemplate.New(id + ".html").Option("missingkey=zero").ParseFS(fsys, htmlName)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", htmlName, err)
			}
		}
		out[id] = t
	}
	return out, nil
}

// Send renders templateID with personalisation and mails it to recipient.
func (s *SMTPSender) Send(ctx context.Context, templateID string, personalisation map[string]string, recipient string) error {
	subject, text, html, err := s.render(templateID, personalisation)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	if html != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, html)
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", templateID, err)
	}
	s.logger.Debug("email sent", zap.String("template", templateID))
	return nil
}

func (s *SMTPSender) render(templateID string, data map[string]string) (subject, text, html string, err error) {
	t, ok := s.templates[templateID]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", templateID)
	}
	var buf bytes.Buffer
	if err := t.text.ExecuteTemplate(&buf, "subject", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", templateID, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := t.text.ExecuteTemplate(&buf, "body", data); err != nil {
		return "", "", "", fmt.Errorf("render %s body: %w", templateID, err)
	}
	text = buf.String()

	if t.html != nil {
		buf.Reset()
		if err := t.html.Execute(&buf, data); err != nil {
			return "", "", "", fmt.Errorf("render %s html: %w", templateID, err)
		}
		html = buf.String()
	}
	return subject, text, html, nil
}
