package classify

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Rule tags a column as belonging to a category when its name matches Regex
// and its type is one of ExpectedTypes. An empty ExpectedTypes matches any
// type.
type Rule struct {
	Regex         string   `yaml:"regex"`
	ExpectedTypes []string `yaml:"expected_types"`

	re *regexp.Regexp
}

// NegativeRule excludes matching columns from every category.
type NegativeRule struct {
	Regex  string `yaml:"regex"`
	Reason string `yaml:"reason"`

	re *regexp.Regexp
}

// RiskScoring maps categories to risk levels. Combinations are keyed by the
// sorted category names joined with "+", e.g. "Financial+PII".
type RiskScoring struct {
	Base         map[string]string `yaml:"base"`
	Combinations map[string]string `yaml:"combinations"`
	Default      string            `yaml:"default"`
}

// Dictionary is a validated sensitivity dictionary with compiled rules.
type Dictionary struct {
	Categories map[string][]Rule `yaml:"categories"`
	Negative   []NegativeRule    `yaml:"negative"`
	Risk       RiskScoring       `yaml:"risk"`

	names []string
}

// Load reads and validates the dictionary at path.
func Load(path string) (*Dictionary, error) {
	logger.L().Debugw("classify: loading dictionary", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sensitivity dictionary %s: %w", path, err)
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("sensitivity dictionary %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML dictionary, compiles its regexes and cross-checks the
// risk scoring against the categories.
func Parse(r io.Reader) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dictionary YAML: %w", err)
	}
	if len(d.Categories) == 0 {
		return nil, fmt.Errorf("no sensitivity categories found")
	}

	for name, rules := range d.Categories {
		if len(rules) == 0 {
			return nil, fmt.Errorf("category %q must not be empty", name)
		}
		for i := range rules {
			if rules[i].Regex == "" {
				return nil, fmt.Errorf("rule %d in %q missing regex", i, name)
			}
			re, err := regexp.Compile(rules[i].Regex)
			if err != nil {
				return nil, fmt.Errorf("rule %d in %q invalid regex: %w", i, name, err)
			}
			rules[i].re = re
			for j, t := range rules[i].ExpectedTypes {
				rules[i].ExpectedTypes[j] = normalizeType(t)
			}
		}
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)

	for i := range d.Negative {
		n := &d.Negative[i]
		if n.Regex == "" {
			return nil, fmt.Errorf("negative rule %d missing regex", i)
		}
		if n.Reason == "" {
			return nil, fmt.Errorf("negative rule %d missing reason", i)
		}
		re, err := regexp.Compile(n.Regex)
		if err != nil {
			return nil, fmt.Errorf("negative rule %d invalid regex: %w", i, err)
		}
		n.re = re
	}

	if err := d.Risk.validate(d.names); err != nil {
		return nil, err
	}

	logger.L().Debugw("classify: dictionary loaded",
		"categories", strings.Join(d.names, ","),
		"negative_rules", len(d.Negative),
		"default_risk", d.Risk.Default)
	return &d, nil
}

// CategoryNames returns the categories in sorted order.
func (d *Dictionary) CategoryNames() []string { return d.names }

// excluded reports whether a negative rule matches column.
func (d *Dictionary) excluded(column string) (bool, string) {
	for _, n := range d.Negative {
		if n.re.MatchString(column) {
			return true, n.Reason
		}
	}
	return false, ""
}

// FindMatches returns the sorted categories column belongs to. A negative
// match returns none.
func (d *Dictionary) FindMatches(column, columnType string) []string {
	if ok, reason := d.excluded(column); ok {
		logger.L().Debugw("classify: column excluded", "column", column, "reason", reason)
		return nil
	}

	typ := normalizeType(columnType)
	var out []string
	for _, name := range d.names {
		for _, rule := range d.Categories[name] {
			if rule.re.MatchString(column) && rule.acceptsType(typ) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func (r Rule) acceptsType(typ string) bool {
	if len(r.ExpectedTypes) == 0 {
		return true
	}
	for _, t := range r.ExpectedTypes {
		if t == typ {
			return true
		}
	}
	return false
}

// normalizeType upper-cases a driver type name and drops any length or
// precision, so "varchar(255)" compares equal to "VARCHAR".
func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}
