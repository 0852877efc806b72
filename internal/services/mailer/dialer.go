package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Session is one authenticated SMTP conversation
type Session interface {
	Send(from, to string, msg []byte) error
	Quit() error
	Close() error
}

// Dialer opens authenticated sessions
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// SMTPDialer connects with implicit TLS on port 465 and STARTTLS on any other port
type SMTPDialer struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Dial connects, negotiates TLS and authenticates with PLAIN auth
func (d *SMTPDialer) Dial(ctx context.Context) (Session, error) {
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	tlsConfig := &tls.Config{ServerName: d.Host}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	netDialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if d.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: netDialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if d.Port != 465 {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if err := client.Auth(smtp.PlainAuth("", d.Username, d.Password, d.Host)); err != nil {
		client.Close()
		return nil, fmt.Errorf("SMTP authentication failed: %w", err)
	}

	return &smtpSession{client: client}, nil
}

type smtpSession struct {
	client *smtp.Client
}

func (s *smtpSession) Send(from, to string, msg []byte) error {
	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := s.client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

func (s *smtpSession) Quit() error {
	return s.client.Quit()
}

func (s *smtpSession) Close() error {
	return s.client.Close()
}
