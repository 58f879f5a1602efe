package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// quotedSelectors mark the part of a reply that repeats earlier mail.
var quotedSelectors = strings.Join([]string{
	"blockquote",
	".gmail_quote",
	".gmail_attr",
	"#appendonsend",
	"#divRplyFwdMsg",
	".yahoo_quoted",
	"div[type=cite]",
}, ", ")

var (
	// "On Mon, Mar 2, 2026 at 9:14 AM Dana <dana@example.com> wrote:"
	attributionExpr = regexp.MustCompile(`(?m)^\s*On .+wrote:\s*$`)
	spaceExpr       = regexp.MustCompile(`[ \t]+`)
	blankLinesExpr  = regexp.MustCompile(`\n{3,}`)
)

// ReplyExtractor reduces inbound mail bodies to the newly written text.
type ReplyExtractor struct{}

var _ ports.ReplyExtractor = ReplyExtractor{}

// NewReplyExtractor returns a stateless extractor.
func NewReplyExtractor() ReplyExtractor {
	return ReplyExtractor{}
}

// ExtractReply strips quoted history from an HTML or plain-text body.
func (ReplyExtractor) ExtractReply(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", nil
	}
	if !looksLikeHTML(body) {
		return trimPlainQuote(body), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse reply html: %w", err)
	}

	doc.Find("script, style, head").Remove()
	doc.Find(quotedSelectors).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return trimPlainQuote(doc.Find("body").Text()), nil
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<div") ||
		strings.Contains(lower, "<p") ||
		strings.Contains(lower, "<br") ||
		strings.Contains(lower, "<blockquote")
}

// trimPlainQuote drops "> " lines and everything after an attribution line.
func trimPlainQuote(text string) string {
	if loc := attributionExpr.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, strings.TrimSpace(spaceExpr.ReplaceAllString(line, " ")))
	}

	out := strings.Join(kept, "\n")
	out = blankLinesExpr.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
