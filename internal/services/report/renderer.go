// Package report renders the analysis result as a self-contained HTML email body.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/interfaces"
	"github.com/ternarybob/marketbrief/internal/models"
	"github.com/ternarybob/marketbrief/internal/services/citations"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed report.html
var reportTemplate string

// Options controls report rendering
type Options struct {
	Edition  string         // Footer label
	Markdown bool           // Treat analysis prose as markdown instead of newline-separated text
	Sanitize bool           // Strip unsafe markup from analysis prose
	Location *time.Location // Zone used for the report date
}

// Renderer builds report HTML. It holds no per-run state and is safe to reuse across runs.
type Renderer struct {
	options  Options
	tmpl     *template.Template
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

type reportView struct {
	Color    template.CSS
	Score    string
	Label    string
	Reason   string
	Analysis template.HTML
	Picks    []pickView
	Date     string
	Edition  string
}

type pickView struct {
	TagColor template.CSS
	Tag      string
	Link     string
	Title    string
	Source   string
	Reason   string
}

// NewRenderer creates a renderer; the embedded template is parsed once here
func NewRenderer(options Options, logger arbor.ILogger) (*Renderer, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	if options.Location == nil {
		options.Location = time.UTC
	}

	return &Renderer{
		options: options,
		tmpl:    tmpl,
		policy:  bluemonday.UGCPolicy(),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithUnsafe(),
			),
		),
		logger: logger,
	}, nil
}

// Render produces the report for one run. Citation markers in the analysis are
// linked through catalog; top picks with unknown ids are left out.
// Missing fields degrade to empty sections; only a template failure is an error.
func (r *Renderer) Render(result *models.AnalysisResult, catalog interfaces.NewsCatalog, date time.Time) (string, error) {
	if result == nil {
		result = &models.AnalysisResult{
			SentimentLabel:  models.DefaultSentimentLabel,
			SentimentReason: models.DefaultSentimentReason,
		}
	}

	resolver := citations.NewResolver(catalog)

	view := reportView{
		Color:    template.CSS(SentimentColor(result.SentimentScore)),
		Score:    result.SentimentScore.String(),
		Label:    result.SentimentLabel,
		Reason:   result.SentimentReason,
		Analysis: template.HTML(resolver.ResolveHTML(r.formatProse(result.AnalysisHTML))),
		Picks:    r.buildPicks(result.TopPicks, catalog),
		Date:     date.In(r.options.Location).Format("2006-01-02"),
		Edition:  r.options.Edition,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	r.logger.Debug().
		Int("picks", len(view.Picks)).
		Int("citations", len(resolver.Citations(result.AnalysisHTML))).
		Int("bytes", buf.Len()).
		Msg("Report rendered")

	return buf.String(), nil
}

// formatProse turns model prose into HTML: markdown or line breaks, then sanitized
func (r *Renderer) formatProse(prose string) string {
	if prose == "" {
		return ""
	}

	var out string
	if r.options.Markdown {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(prose), &buf); err != nil {
			r.logger.Warn().Err(err).Msg("Markdown conversion failed, using line breaks")
			out = strings.ReplaceAll(prose, "\n", "<br>")
		} else {
			out = buf.String()
		}
	} else {
		out = strings.ReplaceAll(prose, "\n", "<br>")
	}

	if r.options.Sanitize {
		out = r.policy.Sanitize(out)
	}

	return out
}

func (r *Renderer) buildPicks(picks []models.TopPick, catalog interfaces.NewsCatalog) []pickView {
	views := make([]pickView, 0, len(picks))
	for _, pick := range picks {
		item, ok := catalog.Item(pick.ID)
		if !ok {
			r.logger.Warn().Int("id", pick.ID).Msg("Top pick references unknown item, skipping")
			continue
		}

		tag := pick.Tag
		if tag == "" {
			tag = models.DefaultPickTag
		}

		views = append(views, pickView{
			TagColor: template.CSS(TagColor(tag)),
			Tag:      tag,
			Link:     item.Link,
			Title:    item.Title,
			Source:   item.Source,
			Reason:   pick.Reason,
		})
	}
	return views
}
