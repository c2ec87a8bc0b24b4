// Package cleaner strips markup noise from HTML before it is embedded in
// an extraction prompt.
package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelector matches elements that never carry record data.
const noiseSelector = "script, style, noscript, iframe, svg, nav, footer, form"

// Clean removes non-content elements and collapses whitespace, returning
// text suitable for prompting. On unparseable input the original string is
// returned; the model sees raw markup rather than nothing.
func Clean(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find(noiseSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	var parts []string
	body.Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	cleaned := strings.Join(parts, "\n")
	if cleaned == "" {
		return html
	}
	return cleaned
}

// Title returns the document title, if any.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// collapseWhitespace normalizes runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
