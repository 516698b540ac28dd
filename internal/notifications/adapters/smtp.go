package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"user-lifecycle/internal/notifications/domain"
	pkgtls "user-lifecycle/pkg/tls"
)

// Default SMTP ports
const (
	DefaultSMTPPort         = 25
	DefaultSMTPSSLPort      = 465
	DefaultSMTPSTARTTLSPort = 587
	defaultDialTimeout      = 30 * time.Second
)

// SMTPConfig describes the relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseSSL   bool
	UseTLS   bool
	CAFile   string
	Timeout  time.Duration
}

// SMTPMailer implements Mailer over an SMTP relay. One connection per message.
type SMTPMailer struct {
	cfg       SMTPConfig
	tlsConfig *tls.Config
}

// NewSMTPMailer creates a mailer. The TLS config is built up front so a bad
// CA file fails at startup.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host cannot be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultDialTimeout
	}

	m := &SMTPMailer{cfg: cfg}
	if cfg.UseSSL || cfg.UseTLS {
		tlsConfig, err := pkgtls.MailConfig(cfg.Host, cfg.CAFile)
		if err != nil {
			return nil, err
		}
		m.tlsConfig = tlsConfig
	}
	return m, nil
}

func (m *SMTPMailer) port() int {
	if m.cfg.Port > 0 {
		return m.cfg.Port
	}
	if m.cfg.UseSSL {
		return DefaultSMTPSSLPort
	}
	if m.cfg.UseTLS {
		return DefaultSMTPSTARTTLSPort
	}
	return DefaultSMTPPort
}

// Send delivers msg to its recipient
func (m *SMTPMailer) Send(ctx context.Context, msg domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	client, closeFn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("MAIL FROM command failed: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO command failed for %s: %w", msg.To, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := w.Write(buildMessage(m.cfg.From, msg)); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message body: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, func(), error) {
	address := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.port()))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial smtp server %s: %w", address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if m.cfg.UseSSL {
		tlsConn := tls.Client(conn, m.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("ssl handshake failed: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	if m.cfg.UseTLS && !m.cfg.UseSSL {
		if err := client.StartTLS(m.tlsConfig); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("starttls upgrade failed: %w", err)
		}
	}

	closeFn := func() {
		_ = client.Quit()
		_ = conn.Close()
	}
	return client, closeFn, nil
}

func buildMessage(from string, msg domain.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return b.Bytes()
}
