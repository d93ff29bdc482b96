package validate

import (
	"fmt"
	"strings"
	"unicode"
)

// MutatingKeywords are rejected outside of a leading safe verb. Order matters:
// the first keyword found is the one named in the rejection.
var MutatingKeywords = []string{
	"DROP",
	"DELETE",
	"TRUNCATE",
	"ALTER",
	"CREATE",
	"INSERT",
	"UPDATE",
	"GRANT",
	"REVOKE",
}

// SafeVerbs are the statement openers admitted without a keyword scan.
var SafeVerbs = []string{"SELECT", "WITH", "EXPLAIN", "SHOW"}

const terminator = ';'

// Query is caller-supplied text plus the normalized copy used for scanning.
// Raw is what gets executed; Scan is trimmed and upper-cased.
type Query struct {
	Raw  string
	Scan string
}

// Normalize builds the scanning copy of text.
func Normalize(text string) Query {
	return Query{Raw: text, Scan: strings.ToUpper(strings.TrimSpace(text))}
}

// Verdict is the outcome of query admission. Reason is set only on rejection.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Err returns nil for an accepted verdict and an *Error otherwise.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	return &Error{Kind: KindQuery, Reason: v.Reason}
}

func accept() Verdict { return Verdict{Accepted: true} }

func reject(reason string) Verdict { return Verdict{Reason: reason} }

// ValidateQuery classifies free-form SQL text as admissible or not.
//
// This is lexical screening, not parsing. Keywords are matched as
// case-insensitive substrings, so "CREATED_AT" trips CREATE in a statement
// that does not open with a safe verb, while keywords hidden in comments or
// odd whitespace are not seen at all. A tokenizer-backed implementation can
// replace this behind the same signature.
//
// Empty or whitespace-only text is accepted; execution reports it instead.
func ValidateQuery(text string) Verdict {
	scan := Normalize(text).Scan
	if scan == "" {
		return accept()
	}

	// Stacked statements: "SELECT 1; DROP TABLE x;"
	if i := strings.IndexByte(scan, terminator); i >= 0 {
		rest := strings.TrimSpace(scan[i+1:])
		if rest != "" {
			if kw := firstMutating(rest); kw != "" {
				return reject(fmt.Sprintf("multi-statement query with dangerous operation: %s", kw))
			}
			if !startsSafe(rest) && !onlyTerminators(rest) {
				return reject("multi-statement queries not allowed")
			}
		}
	}

	if !startsSafe(scan) {
		if kw := firstMutating(scan); kw != "" {
			return reject(fmt.Sprintf("dangerous operation detected: %s", kw))
		}
	}
	return accept()
}

func startsSafe(s string) bool {
	for _, verb := range SafeVerbs {
		if strings.HasPrefix(s, verb) {
			return true
		}
	}
	return false
}

func firstMutating(s string) string {
	for _, kw := range MutatingKeywords {
		if strings.Contains(s, kw) {
			return kw
		}
	}
	return ""
}

func onlyTerminators(s string) bool {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == terminator || unicode.IsSpace(r)
	}) == ""
}
