// Package redline tokenizes bill text and computes token-level diffs
// between an original bill and its amended version.
package redline

import (
	"fmt"
	"strings"
	"unicode"
)

// Token is the atomic unit of comparison. In word mode a token is a
// word, a single punctuation mark, or "\n"; in line mode it is a line.
type Token = string

// Granularity selects how raw text is cut into tokens.
type Granularity string

const (
	// Word splits on whitespace and punctuation boundaries. Legislative
	// redlines conventionally operate at word granularity.
	Word Granularity = "word"
	// Line splits on newlines, like a classic unified diff.
	Line Granularity = "line"
)

// ParseGranularity converts a user-supplied string into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Word:
		return Word, nil
	case Line:
		return Line, nil
	}
	return "", fmt.Errorf("%w: granularity %q (must be word or line)", ErrInvalidInput, s)
}

// Document is an immutable ordered token sequence. Construct one with
// Tokenize; the zero value is not a valid Document.
type Document struct {
	Granularity Granularity
	Tokens      []Token
}

// Len returns the number of tokens in the document.
func (d *Document) Len() int { return len(d.Tokens) }

// Tokenize cuts text into a Document at the given granularity.
// Empty text yields an empty (but valid) Document.
func Tokenize(text string, g Granularity) (*Document, error) {
	switch g {
	case Word:
		return &Document{Granularity: Word, Tokens: splitWords(text)}, nil
	case Line:
		return &Document{Granularity: Line, Tokens: splitLines(text)}, nil
	}
	return nil, fmt.Errorf("%w: granularity %q", ErrInvalidInput, g)
}

// splitLines splits on "\n". A single trailing newline does not produce
// a trailing empty token, matching how diff tools treat final newlines.
func splitLines(text string) []Token {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// splitWords splits on whitespace and punctuation boundaries. Newlines
// are kept as their own tokens so paragraph breaks survive alignment and
// rendering; other whitespace only separates tokens. Punctuation marks
// become single-rune tokens, so "Sec. 2(a)" yields
// ["Sec", ".", "2", "(", "a", ")"].
func splitWords(text string) []Token {
	var tokens []Token
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r == '\n':
			flush()
			tokens = append(tokens, "\n")
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return tokens
}
