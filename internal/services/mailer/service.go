// -----------------------------------------------------------------------
// Mailer Service - delivers the daily report over one SMTP session
// -----------------------------------------------------------------------

package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/common"
	"github.com/ternarybob/marketbrief/internal/models"
	"golang.org/x/time/rate"
)

// TextConverter derives the plain-text alternative of an HTML body
type TextConverter interface {
	HTMLToText(html string) string
}

// Options controls message headers and pacing
type Options struct {
	From          string
	FromName      string
	SubjectPrefix string
	SendDelay     time.Duration  // Minimum gap between consecutive sends
	Location      *time.Location // Zone used for the subject date
}

// Service sends the report to each recipient individually
type Service struct {
	dialer  Dialer
	text    TextConverter
	options Options
	logger  arbor.ILogger
}

// NewService creates a new mailer service
func NewService(dialer Dialer, text TextConverter, options Options, logger arbor.ILogger) *Service {
	if options.Location == nil {
		options.Location = time.UTC
	}
	return &Service{
		dialer:  dialer,
		text:    text,
		options: options,
		logger:  logger,
	}
}

// Subject returns the date-stamped subject line, e.g. "<prefix> (03-14)"
func (s *Service) Subject(date time.Time) string {
	return fmt.Sprintf("%s (%s)", s.options.SubjectPrefix, date.In(s.options.Location).Format("01-02"))
}

// SendReport mails html to every recipient over a single session.
// The first failure abandons the remaining recipients. Failures are logged and
// reported in the summary rather than returned.
func (s *Service) SendReport(ctx context.Context, html string, recipients []string, date time.Time) models.SendSummary {
	summary := models.SendSummary{Recipients: len(recipients)}

	if len(recipients) == 0 {
		s.logger.Info().Msg("Recipient list is empty, skipping send")
		return summary
	}

	subject := s.Subject(date)
	textBody := ""
	if s.text != nil {
		textBody = s.text.HTMLToText(html)
	}

	s.logger.Info().Int("recipients", len(recipients)).Str("subject", subject).Msg("Connecting to SMTP server")

	session, err := s.dialer.Dial(ctx)
	if err != nil {
		summary.Failed = err
		s.logger.Error().Err(err).Msg("Mail delivery failed")
		return summary
	}
	defer session.Close()

	var limiter *rate.Limiter
	if s.options.SendDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.options.SendDelay), 1)
	}

	for _, to := range recipients {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Failed = fmt.Errorf("send throttle interrupted: %w", err)
				break
			}
		}

		msg, err := s.buildMessage(to, subject, html, textBody, date)
		if err != nil {
			summary.Failed = fmt.Errorf("failed to build message for %s: %w", to, err)
			break
		}

		if err := session.Send(s.options.From, to, msg); err != nil {
			summary.Failed = fmt.Errorf("failed to send to %s: %w", to, err)
			break
		}

		summary.Sent++
		s.logger.Info().Str("to", to).Msg("Report sent")
	}

	if summary.Failed != nil {
		s.logger.Error().
			Err(summary.Failed).
			Int("sent", summary.Sent).
			Int("abandoned", summary.Recipients-summary.Sent).
			Msg("Mail delivery failed")
		return summary
	}

	if err := session.Quit(); err != nil {
		s.logger.Warn().Err(err).Msg("SMTP QUIT failed after delivery")
	}

	s.logger.Info().Int("sent", summary.Sent).Msg("All reports sent")
	return summary
}

// buildMessage renders one multipart/alternative message with text and HTML parts
func (s *Service) buildMessage(to, subject, html, text string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: s.options.FromName, Address: s.options.From}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetMessageID(common.NewMessageID(domainOf(s.options.From)))

	var buf bytes.Buffer
	mw, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	if text != "" {
		if err := writePart(mw, "text/plain", text); err != nil {
			return nil, err
		}
	}
	if err := writePart(mw, "text/html", html); err != nil {
		return nil, err
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish message: %w", err)
	}

	return buf.Bytes(), nil
}

// writePart adds a base64-encoded UTF-8 part; base64 keeps long HTML lines within RFC 5322 limits
func writePart(mw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "base64")

	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return w.Close()
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return ""
}
