// Package transform derives the plain-text alternative of the HTML report.
package transform

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// Service converts report HTML into readable plain text
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// HTMLToText converts HTML to markdown-flavoured plain text suitable for a
// text/plain mail part. Links keep their targets. Never fails: when conversion
// fails or yields nothing, the document text is returned instead.
func (s *Service) HTMLToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	converter.Remove("head", "style", "script")

	converted, err := converter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to text conversion failed, using fallback")
		return stripHTML(html)
	}

	if strings.TrimSpace(converted) == "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to text conversion produced empty output, applying fallback")
		return stripHTML(html)
	}

	s.logger.Debug().
		Int("text_length", len(converted)).
		Int("html_length", len(html)).
		Msg("HTML to text conversion successful")

	return strings.TrimSpace(converted)
}

// stripHTML returns the visible text of an HTML document with whitespace collapsed
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("head, style, script").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
