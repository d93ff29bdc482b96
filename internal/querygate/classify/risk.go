package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Risk levels, lowest first.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

var riskRank = map[string]int{
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// ValidRisk reports whether level is a known risk level.
func ValidRisk(level string) bool {
	_, ok := riskRank[level]
	return ok
}

func (rs RiskScoring) validate(categories []string) error {
	if rs.Default == "" {
		return fmt.Errorf("risk scoring must define a default risk level")
	}
	check := func(level, where string) error {
		if !ValidRisk(level) {
			return fmt.Errorf("invalid risk level %q in %s", level, where)
		}
		return nil
	}
	if err := check(rs.Default, "default"); err != nil {
		return err
	}
	for cat, level := range rs.Base {
		if err := check(level, fmt.Sprintf("base[%s]", cat)); err != nil {
			return err
		}
	}
	for combo, level := range rs.Combinations {
		if err := check(level, fmt.Sprintf("combinations[%s]", combo)); err != nil {
			return err
		}
	}
	for _, cat := range categories {
		if _, ok := rs.Base[cat]; !ok {
			return fmt.Errorf("risk scoring missing category %q", cat)
		}
	}
	return nil
}

// Score computes the risk level for a set of categories.
//
// No categories scores the default. One category scores its base level. For
// several, an explicit combination wins; otherwise the highest base level.
func (rs RiskScoring) Score(categories []string) string {
	switch len(categories) {
	case 0:
		return rs.Default
	case 1:
		if level, ok := rs.Base[categories[0]]; ok {
			return level
		}
		logger.L().Warnw("classify: category has no base risk", "category", categories[0])
		return rs.Default
	}

	key := combinationKey(categories)
	if level, ok := rs.Combinations[key]; ok {
		return level
	}

	best, rank := rs.Default, 0
	for _, cat := range categories {
		level, ok := rs.Base[cat]
		if !ok {
			continue
		}
		if r := riskRank[level]; r > rank {
			best, rank = level, r
		}
	}
	return best
}

// combinationKey: ["PII", "Financial"] -> "Financial+PII".
func combinationKey(categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}
