package redline

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInput is returned when an argument is not a well-formed
// Document. Empty documents are valid and never produce this error.
var ErrInvalidInput = errors.New("invalid input")

// OpKind classifies an edit operation.
type OpKind string

const (
	// OpCopy marks tokens present in both documents.
	OpCopy OpKind = "copy"
	// OpDelete marks tokens present only in the original.
	OpDelete OpKind = "delete"
	// OpInsert marks tokens present only in the amended document.
	OpInsert OpKind = "insert"
)

// Op is one edit operation over a contiguous token span. Copy spans
// belong to both documents, Delete spans to the original only and
// Insert spans to the amended document only.
type Op struct {
	Kind   OpKind  `json:"kind"`
	Tokens []Token `json:"tokens"`
}

// Stats summarizes a DiffResult for display.
type Stats struct {
	Copied   int `json:"copied"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
	// Similarity is 2*copied/(len(original)+len(amended)), in [0,1].
	// Two empty documents are fully similar.
	Similarity float64 `json:"similarity"`
}

// DiffResult is an ordered edit script. Replaying the original-side
// tokens (Copy+Delete) reproduces the original document exactly, and
// the amended-side tokens (Copy+Insert) the amended document.
type DiffResult struct {
	Granularity Granularity `json:"granularity"`
	Ops         []Op        `json:"ops"`
	Stats       Stats       `json:"stats"`
}

// OriginalTokens replays the original-side tokens of the edit script.
func (r *DiffResult) OriginalTokens() []Token {
	var out []Token
	for _, op := range r.Ops {
		if op.Kind != OpInsert {
			out = append(out, op.Tokens...)
		}
	}
	return out
}

// AmendedTokens replays the amended-side tokens of the edit script.
func (r *DiffResult) AmendedTokens() []Token {
	var out []Token
	for _, op := range r.Ops {
		if op.Kind != OpDelete {
			out = append(out, op.Tokens...)
		}
	}
	return out
}

// Diff aligns two documents and returns a minimal edit script. It is a
// pure function: deterministic, side-effect free and total for any two
// finite documents. Adjacent operations never share a kind, and within
// a changed region deletions always precede insertions.
func Diff(original, amended *Document) (*DiffResult, error) {
	if original == nil || amended == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidInput)
	}
	if original.Granularity != amended.Granularity {
		return nil, fmt.Errorf("%w: granularity mismatch (%s vs %s)",
			ErrInvalidInput, original.Granularity, amended.Granularity)
	}

	a, b := original.Tokens, amended.Tokens

	// Strip the common prefix and suffix before running the search.
	// Bill amendments typically touch a small region of a large text,
	// so this collapses most of the input up front and implements the
	// longest-common-prefix-first tie-break.
	prefix := commonPrefix(a, b)
	a, b = a[prefix:], b[prefix:]
	suffix := commonSuffix(a, b)
	head := a[:len(a)-suffix]
	tail := a[len(a)-suffix:]

	var ops []Op
	if prefix > 0 {
		ops = append(ops, Op{Kind: OpCopy, Tokens: slices.Clone(original.Tokens[:prefix])})
	}
	ops = append(ops, myers(head, b[:len(b)-suffix])...)
	if suffix > 0 {
		ops = append(ops, Op{Kind: OpCopy, Tokens: slices.Clone(tail)})
	}
	ops = normalize(ops)

	result := &DiffResult{
		Granularity: original.Granularity,
		Ops:         ops,
	}
	result.Stats = computeStats(ops, original.Len(), amended.Len())
	return result, nil
}

func commonPrefix(a, b []Token) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b []Token) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// myers runs the greedy O(ND) shortest-edit-script search over a and b
// and backtracks the recorded furthest-reaching frontiers into
// single-token operations. Callers are expected to normalize the
// result.
func myers(a, b []Token) []Op {
	n, m := len(a), len(b)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		return []Op{{Kind: OpInsert, Tokens: slices.Clone(b)}}
	case m == 0:
		return []Op{{Kind: OpDelete, Tokens: slices.Clone(a)}}
	}

	limit := n + m
	// v[limit+k] holds the furthest x reached on diagonal k.
	v := make([]int, 2*limit+2)
	var trace [][]int

search:
	for d := 0; d <= limit; d++ {
		trace = append(trace, slices.Clone(v))
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[limit+k-1] < v[limit+k+1]) {
				x = v[limit+k+1] // step down: insert b[y]
			} else {
				x = v[limit+k-1] + 1 // step right: delete a[x]
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[limit+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	// Backtrack from (n, m) through the frontier snapshots, emitting
	// moves in reverse.
	var rev []Op
	x, y := n, m
	for d := len(trace) - 1; d >= 0 && (x > 0 || y > 0); d-- {
		frontier := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && frontier[limit+k-1] < frontier[limit+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := frontier[limit+prevK]
		prevY := prevX - prevK

		// Walk back through the snake of matching tokens.
		for x > prevX && y > prevY {
			rev = append(rev, Op{Kind: OpCopy, Tokens: []Token{a[x-1]}})
			x--
			y--
		}

		if d > 0 {
			if x == prevX {
				rev = append(rev, Op{Kind: OpInsert, Tokens: []Token{b[prevY]}})
			} else {
				rev = append(rev, Op{Kind: OpDelete, Tokens: []Token{a[prevX]}})
			}
			x, y = prevX, prevY
		}
	}

	slices.Reverse(rev)
	return rev
}

// normalize canonicalizes an edit script: within each changed region
// between copies, deletions are emitted before insertions, and adjacent
// same-kind operations are merged. The result never contains an empty
// operation or two neighbours of the same kind.
func normalize(ops []Op) []Op {
	var out []Op
	var deletes, inserts []Token

	flush := func() {
		if len(deletes) > 0 {
			out = append(out, Op{Kind: OpDelete, Tokens: deletes})
			deletes = nil
		}
		if len(inserts) > 0 {
			out = append(out, Op{Kind: OpInsert, Tokens: inserts})
			inserts = nil
		}
	}

	for _, op := range ops {
		if len(op.Tokens) == 0 {
			continue
		}
		switch op.Kind {
		case OpDelete:
			deletes = append(deletes, op.Tokens...)
		case OpInsert:
			inserts = append(inserts, op.Tokens...)
		case OpCopy:
			flush()
			if n := len(out); n > 0 && out[n-1].Kind == OpCopy {
				out[n-1].Tokens = append(out[n-1].Tokens, op.Tokens...)
			} else {
				out = append(out, Op{Kind: OpCopy, Tokens: slices.Clone(op.Tokens)})
			}
		}
	}
	flush()
	return out
}

func computeStats(ops []Op, originalLen, amendedLen int) Stats {
	s := Stats{Similarity: 1}
	for _, op := range ops {
		switch op.Kind {
		case OpCopy:
			s.Copied += len(op.Tokens)
		case OpDelete:
			s.Deleted += len(op.Tokens)
		case OpInsert:
			s.Inserted += len(op.Tokens)
		}
	}
	if total := originalLen + amendedLen; total > 0 {
		s.Similarity = float64(2*s.Copied) / float64(total)
	}
	return s
}
