package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ErrNoBillText is returned when a congress.gov page does not contain
// the expected bill or amendment text container.
var ErrNoBillText = errors.New("no bill text found on page")

var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

// ExtractText pulls the comparable plain text out of a fetched HTML
// page. Congress.gov pages carry the text in a well-known container div
// depending on whether the page is a bill or an amendment; other pages
// go through readability-style main-content extraction.
func ExtractText(body []byte, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if strings.Contains(u.Host, "congress.gov") {
		return extractCongressText(body, u)
	}
	return extractGenericText(body, u)
}

// extractCongressText targets the text container congress.gov uses:
// div.amendment-text on amendment pages, div.bill-text on bill pages.
func extractCongressText(body []byte, u *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	selector := "div.bill-text"
	if strings.Contains(u.Path, "amendment") {
		selector = "div.amendment-text"
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s has no %s container (page structure may have changed)", ErrNoBillText, u.Host, selector)
	}

	text := nodesText(sel.Nodes)
	return collapseBlankLines(text), nil
}

// extractGenericText extracts the main readable content of an arbitrary
// page, falling back to the whole document's text when the page does
// not look like an article.
func extractGenericText(body []byte, u *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return collapseBlankLines(article.TextContent), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	return collapseBlankLines(nodesText(doc.Selection.Nodes)), nil
}

// nodesText walks the nodes and joins their trimmed text fragments with
// newlines, so distinct elements become distinct lines.
func nodesText(nodes []*html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func collapseBlankLines(text string) string {
	text = strings.TrimSpace(text)
	return blankLinesRe.ReplaceAllString(text, "\n\n")
}
