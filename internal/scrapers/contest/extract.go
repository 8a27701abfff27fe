package contest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	votesRegex = regexp.MustCompile(`(?i)([\d,.]+)\s*Votes`)
	viewsRegex = regexp.MustCompile(`(?i)([\d,.]+)\s*Views`)
)

// Counts are the numbers extracted from one submission page, nil when not found.
type Counts struct {
	Votes *int64
	Views *int64
}

// ExtractCounts finds the vote and view counts in a submission page. Each count is looked
// for in the raw markup first and then in the rendered document text, which catches counts
// split from their label by tags.
func ExtractCounts(body string) Counts {
	counts := Counts{
		Votes: findCount(votesRegex, body),
		Views: findCount(viewsRegex, body),
	}
	if counts.Votes != nil && counts.Views != nil {
		return counts
	}

	text, ok := documentText(body)
	if !ok {
		return counts
	}
	if counts.Votes == nil {
		counts.Votes = findCount(votesRegex, text)
	}
	if counts.Views == nil {
		counts.Views = findCount(viewsRegex, text)
	}
	return counts
}

func findCount(pattern *regexp.Regexp, text string) *int64 {
	groups := pattern.FindStringSubmatch(text)
	if len(groups) < 2 {
		return nil
	}
	return parseCount(groups[1])
}

// parseCount strips thousands separators, both "," and "." are used upstream.
func parseCount(token string) *int64 {
	digits := strings.NewReplacer(",", "", ".", "").Replace(token)
	if digits == "" {
		return nil
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

func documentText(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), true
}
