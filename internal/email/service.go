// Package email delivers transactional mail over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Config holds SMTP configuration
type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

// Service handles email sending operations
type Service struct {
	config Config
	logger zerolog.Logger
}

// NewService creates a new email service
func NewService(config Config, logger zerolog.Logger) *Service {
	if config.FromName == "" {
		config.FromName = "Profit Bliss"
	}
	return &Service{
		config: config,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// IsConfigured reports whether the required SMTP settings are present
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendEmail sends a single HTML email
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	from := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	message := []byte(
		"From: " + from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body + "\r\n",
	)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	addr := s.config.Host + ":" + s.config.Port

	s.logger.Debug().Str("to", to).Str("host", s.config.Host).Msg("sending email")

	var err error
	// Port 465 speaks TLS from the first byte; 587 and 25 use STARTTLS
	// inside smtp.SendMail.
	if s.config.Port == "465" {
		err = s.sendTLS(addr, auth, []string{to}, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.From, []string{to}, message)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("to", to).Msg("email delivery failed")
		return fmt.Errorf("SMTP error: %w", err)
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (s *Service) sendTLS(addr string, auth smtp.Auth, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// SendVerificationEmail sends the signup verification email with a 6-digit
// code
func (s *Service) SendVerificationEmail(ctx context.Context, to, name, code string) error {
	subject := "Verify Your Email Address"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #16A34A; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 5px 5px; }
        .code { font-size: 32px; font-weight: bold; letter-spacing: 8px; color: #16A34A; text-align: center; margin: 30px 0; padding: 20px; background-color: white; border-radius: 5px; border: 2px dashed #16A34A; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Email Verification</h1>
        </div>
        <div class="content">
            <p>Hi %s, welcome to Profit Bliss!</p>
            <p>Please enter the following verification code to complete your registration:</p>
            <div class="code">%s</div>
            <p>This code will expire in 10 minutes.</p>
            <p>If you didn't request this verification, please ignore this email.</p>
        </div>
        <div class="footer">
            <p>&copy; 2026 Profit Bliss. All rights reserved.</p>
        </div>
    </div>
</body>
</html>
`, name, code)

	return s.SendEmail(ctx, to, subject, body)
}
