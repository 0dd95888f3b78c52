package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFileSize caps local input files; matches the fetch body cap.
const maxFileSize = 20 << 20

// Content is a resolved comparison input: plain text plus a short
// human-readable label for the UI.
type Content struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// IsURL reports whether the argument names a web page rather than a
// local file.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FromText wraps pasted text as a Content.
func FromText(text, label string) *Content {
	if label == "" {
		label = "pasted text"
	}
	return &Content{Label: label, Text: text}
}

// FromFile reads a local text file.
func FromFile(path string) (*Content, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return &Content{Label: filepath.Base(path), Text: string(data)}, nil
}

// FromURL fetches a page and extracts its bill text.
func (f *Fetcher) FromURL(ctx context.Context, urlStr string) (*Content, error) {
	body, err := f.FetchPage(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(body, urlStr)
	if err != nil {
		return nil, err
	}
	return &Content{Label: urlLabel(urlStr), Text: text}, nil
}

// urlLabel shortens a URL for display: host plus the last meaningful
// path segment.
func urlLabel(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	return u.Host + "/…/" + segments[len(segments)-1]
}
