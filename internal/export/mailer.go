package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"adsreport/internal/config"
)

var (
	ErrAuth        = errors.New("smtp authentication failed")
	ErrNoEndpoints = errors.New("no smtp endpoints configured")
)

// Endpoint is one way of reaching the SMTP server.
type Endpoint struct {
	Host        string
	Port        int
	ImplicitTLS bool
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, fmt.Sprint(e.Port))
}

func (e Endpoint) String() string {
	if e.ImplicitTLS {
		return e.Addr() + " (ssl)"
	}
	return e.Addr() + " (starttls)"
}

// DefaultEndpoints is STARTTLS on 587, then implicit TLS on 465.
func DefaultEndpoints(host string) []Endpoint {
	return []Endpoint{
		{Host: host, Port: 587},
		{Host: host, Port: 465, ImplicitTLS: true},
	}
}

// SMTPClient is the part of *smtp.Client the mailer uses.
type SMTPClient interface {
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens a ready-to-authenticate session to an endpoint. Any error it
// returns counts as a connection failure.
type Dialer func(ctx context.Context, e Endpoint) (SMTPClient, error)

// Message is one report email.
type Message struct {
	Subject  string
	Text     string
	HTML     string
	ChartPNG []byte
}

type Mailer struct {
	endpoints []Endpoint
	username  string
	password  string
	from      string
	to        []string
	dial      Dialer
	logger    *logrus.Logger
}

func NewMailer(cfg *config.Config, logger *logrus.Logger) *Mailer {
	return &Mailer{
		endpoints: DefaultEndpoints(cfg.SMTPHost),
		username:  cfg.EmailUser,
		password:  cfg.EmailPassword,
		from:      cfg.EmailUser,
		to:        cfg.EmailTo,
		dial:      dialSMTP,
		logger:    logger,
	}
}

func (m *Mailer) SetDialer(d Dialer) {
	m.dial = d
}

func (m *Mailer) SetEndpoints(endpoints []Endpoint) {
	m.endpoints = endpoints
}

// Enabled reports whether there is anyone to send to.
func (m *Mailer) Enabled() bool {
	return len(m.to) > 0 && m.from != ""
}

// Send delivers msg through the first endpoint that accepts a connection.
// Authentication failures stop immediately with ErrAuth.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(m.endpoints) == 0 {
		return ErrNoEndpoints
	}
	body, err := m.build(msg)
	if err != nil {
		return err
	}

	var lastErr error
	for _, endpoint := range m.endpoints {
		c, err := m.dial(ctx, endpoint)
		if err != nil {
			m.logger.WithError(err).WithField("endpoint", endpoint.String()).Warn("SMTP connection failed, trying next endpoint")
			lastErr = err
			continue
		}

		err = m.deliver(c, endpoint, body)
		c.Close()
		if err != nil {
			return err
		}

		m.logger.WithFields(logrus.Fields{
			"endpoint":   endpoint.String(),
			"recipients": len(m.to),
			"subject":    msg.Subject,
		}).Info("Report email sent")
		return nil
	}
	return fmt.Errorf("all smtp endpoints failed, last error: %w", lastErr)
}

func (m *Mailer) deliver(c SMTPClient, endpoint Endpoint, body io.WriterTo) error {
	if m.username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, endpoint.Host)); err != nil {
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}
	if err := c.Mail(m.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM rejected: %w", err)
	}
	for _, to := range m.to {
		if err := c.Rcpt(to); err != nil {
			return fmt.Errorf("smtp RCPT TO %s rejected: %w", to, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA rejected: %w", err)
	}
	if _, err := body.WriteTo(w); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message not accepted: %w", err)
	}
	return c.Quit()
}

// build composes msg as multipart/related: a text/html alternative plus the
// chart as an inline image referenced by ChartCID.
func (m *Mailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := out.To(m.to...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDate()
	out.SetMessageID()
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if len(msg.ChartPNG) > 0 {
		err := out.EmbedReader(ChartFile, bytes.NewReader(msg.ChartPNG),
			mail.WithFileContentID(ChartCID), mail.WithFileContentType(mail.ContentType("image/png")))
		if err != nil {
			return nil, fmt.Errorf("failed to embed chart: %w", err)
		}
	}
	return out, nil
}

func dialSMTP(ctx context.Context, e Endpoint) (SMTPClient, error) {
	tlsConfig := &tls.Config{ServerName: e.Host}
	dialer := &net.Dialer{Timeout: 30 * time.Second}

	if e.ImplicitTLS {
		conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", e.Addr())
		if err != nil {
			return nil, err
		}
		c, err := smtp.NewClient(conn, e.Host)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return c, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", e.Addr())
	if err != nil {
		return nil, err
	}
	c, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.StartTLS(tlsConfig); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}
