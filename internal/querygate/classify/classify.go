// Package classify tags query results with sensitivity categories and a
// risk level, driven by a YAML dictionary of column-name rules.
package classify

import (
	"sort"
	"strings"
)

// Result is the classification of one result set.
type Result struct {
	// Sensitivity lists "Category:column" tags in column order.
	Sensitivity []string
	// Categories is the sorted set of categories seen.
	Categories []string
	Risk       string
}

// Classify matches each column against the dictionary. types is aligned to
// columns; a missing or empty type only satisfies rules without
// expected_types.
func (d *Dictionary) Classify(columns, types []string) Result {
	seen := map[string]bool{}
	var res Result
	for i, col := range columns {
		var typ string
		if i < len(types) {
			typ = types[i]
		}
		for _, cat := range d.FindMatches(col, typ) {
			res.Sensitivity = append(res.Sensitivity, cat+":"+col)
			if !seen[cat] {
				seen[cat] = true
				res.Categories = append(res.Categories, cat)
			}
		}
	}
	sort.Strings(res.Categories)
	res.Risk = d.Risk.Score(res.Categories)
	return res
}

// String renders the result for an audit event's details, e.g.
// "sensitivity=PII:email,PHI:diagnosis risk=critical".
func (r Result) String() string {
	if len(r.Sensitivity) == 0 {
		return "risk=" + r.Risk
	}
	return "sensitivity=" + strings.Join(r.Sensitivity, ",") + " risk=" + r.Risk
}
