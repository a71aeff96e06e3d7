// Package sanctions screens supplier names against the loaded sanctions list
// using token-set fuzzy matching, so word order and exact punctuation do not
// hide a listed entity.
package sanctions

import (
	"context"
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/store"
)

// MatchThreshold is the minimum token-set ratio treated as a hit.
const MatchThreshold = 85

// Matcher screens names against the persisted sanctions list.
type Matcher struct {
	store store.Storage
}

// NewMatcher creates a sanctions matcher on top of the given storage.
func NewMatcher(s store.Storage) *Matcher {
	return &Matcher{store: s}
}

// normalizeName prepares a name for comparison: lowercase, periods and
// commas stripped, surrounding whitespace trimmed. Lighter than entity
// resolution normalization on purpose; the fuzzy ratio absorbs the rest.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, ",", "")
	return strings.TrimSpace(name)
}

// Screen compares the supplier name against every sanctions list entry and
// reports all entries scoring at or above the threshold. Any hit means FAIL
// with risk score 100; otherwise PASS with 0. An empty list passes.
func (m *Matcher) Screen(ctx context.Context, supplierName string) (common.SanctionsResult, error) {
	list, err := m.store.ListSanctionedEntities(ctx)
	if err != nil {
		return common.SanctionsResult{}, fmt.Errorf("failed to load sanctions list: %w", err)
	}

	subject := normalizeName(supplierName)
	matches := make([]common.SanctionMatch, 0)
	for _, entry := range list {
		score := fuzzy.TokenSetRatio(subject, normalizeName(entry.Name))
		if score >= MatchThreshold {
			matches = append(matches, common.SanctionMatch{
				SanctionedName: entry.Name,
				Source:         entry.Source,
				MatchScore:     score,
			})
		}
	}

	result := common.SanctionsResult{
		Supplier:      supplierName,
		OverallStatus: common.StatusPass,
		RiskScore:     0,
		Reason:        "No sanctions list match",
		Matches:       matches,
	}
	if len(matches) > 0 {
		result.OverallStatus = common.StatusFail
		result.RiskScore = 100
		result.Reason = fmt.Sprintf("Matched %d sanctions list entr%s", len(matches), pluralYIes(len(matches)))
		logger.Warn("[Sanctions] Screening hit", "supplier", supplierName, "matches", len(matches))
	}
	return result, nil
}

func pluralYIes(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
