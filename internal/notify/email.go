package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"polymarket-trader/internal/config"
)

// EmailNotifier sends each notification as a plain-text email.
type EmailNotifier struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
	enabled  bool
}

// NewEmailNotifier builds the email channel. Host and both addresses
// are required.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		enabled:  cfg.Enabled && cfg.SMTPHost != "" && cfg.From != "" && cfg.To != "",
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) IsEnabled() bool { return e.enabled }

// Send delivers the notification over SMTP. Port 465 speaks implicit
// TLS; every other port goes through net/smtp's STARTTLS path.
func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if !e.enabled {
		return nil
	}

	body := n.Message
	if len(n.Data) > 0 {
		if dataJSON, err := json.MarshalIndent(n.Data, "", "  "); err == nil {
			body += "\n\n---\nData:\n" + string(dataJSON)
		}
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", e.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Title)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(e.smtpHost, strconv.Itoa(e.smtpPort))
	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	if e.smtpPort == 465 {
		return e.sendImplicitTLS(addr, auth, msg.String())
	}
	return smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(msg.String()))
}

// sendImplicitTLS runs the SMTP dialogue over an already-encrypted
// connection.
func (e *EmailNotifier) sendImplicitTLS(addr string, auth smtp.Auth, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: e.smtpHost})
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(e.to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp body: %w", err)
	}
	return client.Quit()
}
