// Package citations turns citation markers in model prose into links to the cited articles.
//
// Two marker spellings are recognised, case-insensitively:
//
//	[7]        plain
//	[ID:7]     labelled, with optional colon and spaces: [id: 7], [ID 7], [Id:7]
//
// Matching is a heuristic over free-form text. Incidental bracketed numbers such
// as "[2024]" cannot be told apart from citations and are linked as well.
package citations

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/marketbrief/internal/interfaces"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var markerPattern = regexp.MustCompile(`(?i)\[(?:ID\s*:?\s*)?(\d+)\]`)

// LinkStyle is the inline style applied to citation anchors (email clients ignore stylesheets)
const LinkStyle = "color:#0056b3; text-decoration:none; font-weight:bold;"

// Resolver rewrites citation markers using a link lookup
type Resolver struct {
	links interfaces.LinkResolver
}

// NewResolver creates a resolver backed by links
func NewResolver(links interfaces.LinkResolver) *Resolver {
	return &Resolver{links: links}
}

// Resolve replaces every marker in text with an anchor to the cited item.
// Unknown ids still render, pointing at the store placeholder. Text without
// markers is returned unchanged.
func (r *Resolver) Resolve(text string) string {
	return markerPattern.ReplaceAllStringFunc(text, func(marker string) string {
		digits := markerPattern.FindStringSubmatch(marker)[1]
		id := parseID(digits)
		label := digits
		if id >= 0 {
			label = strconv.Itoa(id)
		}
		link := r.links.LookupLink(id)
		return fmt.Sprintf(` <a href="%s" style="%s">[%s]</a>`, html.EscapeString(link), LinkStyle, label)
	})
}

// ResolveHTML is Resolve applied to the text nodes of an HTML fragment only.
// Tags and attribute values pass through byte for byte, and text already inside
// an anchor, script or style element is left alone so anchors never nest.
func (r *Resolver) ResolveHTML(fragment string) string {
	if !markerPattern.MatchString(fragment) {
		return fragment
	}

	var out strings.Builder
	out.Grow(len(fragment))

	skipDepth := 0
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF; the tokenizer consumes malformed input as text
			break
		}

		raw := string(z.Raw())
		switch tt {
		case html.TextToken:
			if skipDepth == 0 {
				raw = r.Resolve(raw)
			}
		case html.StartTagToken:
			if skipsCitations(z) {
				skipDepth++
			}
		case html.EndTagToken:
			if skipsCitations(z) && skipDepth > 0 {
				skipDepth--
			}
		}
		out.WriteString(raw)
	}

	return out.String()
}

func skipsCitations(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.A, atom.Script, atom.Style:
		return true
	}
	return false
}

// Citations returns the ids referenced in text in order of appearance, repeats included
func (r *Resolver) Citations(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, parseID(m[1]))
	}
	return ids
}

// parseID returns -1 for numbers that overflow int so they resolve to the placeholder
func parseID(digits string) int {
	id, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return id
}
