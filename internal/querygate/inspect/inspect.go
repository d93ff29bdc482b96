// Package inspect pulls referenced objects and the statement verb out of SQL
// text with simple regex heuristics. It is not a parser; results describe
// audit events and never gate execution.
package inspect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Refs describes what a query touches.
type Refs struct {
	Verb   string   `json:"verb"`
	Tables []string `json:"tables"`
	// IsBulk marks COPY / LOAD DATA / multi-row INSERT / unfiltered SELECT *.
	IsBulk   bool   `json:"is_bulk"`
	BulkType string `json:"bulk_type,omitempty"`
}

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	spaces       = regexp.MustCompile(`\s+`)

	tablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z_][a-zA-Z0-9_.]*)`),
		regexp.MustCompile(`(?i)\bJOIN\s+([a-zA-Z_][a-zA-Z0-9_.]*)`),
		regexp.MustCompile(`(?i)\bINTO\s+([a-zA-Z_][a-zA-Z0-9_.]*)`),
		regexp.MustCompile(`(?i)\bUPDATE\s+([a-zA-Z_][a-zA-Z0-9_.]*)`),
		regexp.MustCompile(`(?i)\bTABLE\s+(?:IF\s+(?:NOT\s+)?EXISTS\s+)?([a-zA-Z_][a-zA-Z0-9_.]*)`),
	}
	leadingWord = regexp.MustCompile(`^([A-Za-z]+)`)
)

// StripComments removes /* block */ and -- line comments and collapses
// whitespace.
func StripComments(query string) string {
	cleaned := blockComment.ReplaceAllString(query, " ")
	cleaned = lineComment.ReplaceAllString(cleaned, " ")
	cleaned = spaces.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Inspect extracts the verb, referenced tables and bulk classification.
func Inspect(query string) Refs {
	clean := StripComments(query)
	refs := Refs{Verb: classify(clean), Tables: tables(clean)}
	refs.IsBulk, refs.BulkType = detectBulk(clean)

	logger.L().Debugw("inspect: query refs",
		"verb", refs.Verb,
		"tables", strings.Join(refs.Tables, ","),
		"is_bulk", refs.IsBulk,
		"bulk_type", refs.BulkType)
	return refs
}

// Tables returns referenced table names (schema qualifier dropped) in
// first-seen order.
func Tables(query string) []string { return tables(StripComments(query)) }

// Classify returns the upper-cased leading keyword, or "" when there is none.
func Classify(query string) string { return classify(StripComments(query)) }

func classify(clean string) string {
	m := leadingWord.FindStringSubmatch(clean)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

type match struct {
	pos  int
	name string
}

func tables(clean string) []string {
	var found []match
	for _, p := range tablePatterns {
		for _, idx := range p.FindAllStringSubmatchIndex(clean, -1) {
			name := clean[idx[2]:idx[3]]
			if isReservedWord(name) {
				continue
			}
			if dot := strings.LastIndex(name, "."); dot >= 0 {
				name = name[dot+1:]
			}
			if name == "" {
				continue
			}
			found = append(found, match{pos: idx[2], name: name})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]string, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, m := range found {
		key := strings.ToLower(m.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m.name)
	}
	return out
}

func detectBulk(clean string) (bool, string) {
	upper := strings.ToUpper(clean)

	if strings.HasPrefix(upper, "COPY ") {
		if strings.Contains(upper, " TO ") {
			return true, "export"
		}
		return true, "import"
	}
	if strings.Contains(upper, "LOAD DATA") {
		return true, "import"
	}
	if strings.Contains(upper, "SELECT ") && strings.Contains(upper, " INTO OUTFILE") {
		return true, "export"
	}
	if strings.Contains(upper, "INSERT ") {
		if strings.Count(upper, "),") > 0 || strings.Contains(upper, " SELECT ") {
			return true, "insert"
		}
	}
	if strings.Contains(upper, "SELECT *") && !strings.Contains(upper, " WHERE ") {
		return true, "select"
	}
	return false, ""
}

var reserved = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true, "ON": true,
	"AS": true, "AND": true, "OR": true, "NOT": true, "IN": true,
	"SET": true, "VALUES": true, "LATERAL": true, "ONLY": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true,
	"IF": true, "EXISTS": true, "TABLE": true, "OUTFILE": true, "DUMPFILE": true,
	"UNNEST": true, "GENERATE_SERIES": true,
}

func isReservedWord(word string) bool {
	return reserved[strings.ToUpper(word)]
}
