package api

import (
	"strings"

	"github.com/agrimatch/agrimatch/internal/types"
)

// validateRuleSet enforces the boundary limits the engine itself degrades
// on silently: rule count and field path depth. Rejecting here gives the
// caller a diagnosable 400 instead of a rule that can never pass.
func (a *API) validateRuleSet(rs types.RuleSet) error {
	if len(rs.All) > a.cfg.MaxRuleCount {
		return types.ErrTooManyRules
	}
	for _, rule := range rs.All {
		segments := strings.Split(strings.TrimSpace(rule.Field), ".")
		if len(segments)-1 > types.MaxFieldPathDepth {
			return types.ErrFieldPathTooDeep
		}
	}
	return nil
}
