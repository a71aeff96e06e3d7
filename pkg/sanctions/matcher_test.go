package sanctions

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/store/memory"
)

func seedList(t *testing.T, st *memory.MemoryStorage, names ...string) {
	t.Helper()
	entries := make([]common.SanctionedEntity, 0, len(names))
	for _, n := range names {
		entries = append(entries, common.SanctionedEntity{Name: n, Source: "OFAC"})
	}
	_, err := st.ReplaceSanctionedEntities(context.Background(), entries)
	require.NoError(t, err)
}

func TestScreenExactHit(t *testing.T) {
	st := memory.NewMemoryStorage()
	seedList(t, st, "Shady Holdings Ltd")
	m := NewMatcher(st)

	result, err := m.Screen(context.Background(), "Shady Holdings Ltd")
	require.NoError(t, err)
	require.Equal(t, common.StatusFail, result.OverallStatus)
	require.Equal(t, 100.0, result.RiskScore)
	require.Len(t, result.Matches, 1)
	require.Equal(t, 100, result.Matches[0].MatchScore)
	require.Equal(t, "OFAC", result.Matches[0].Source)
}

func TestScreenAbsorbsPunctuationAndWordOrder(t *testing.T) {
	st := memory.NewMemoryStorage()
	seedList(t, st, "Shady Holdings, Ltd.")
	m := NewMatcher(st)

	tests := []string{
		"shady holdings ltd",
		"Ltd. Shady Holdings",
		"SHADY HOLDINGS LTD",
	}
	for _, name := range tests {
		result, err := m.Screen(context.Background(), name)
		require.NoError(t, err)
		require.Equal(t, common.StatusFail, result.OverallStatus, "name %q should match", name)
	}
}

func TestScreenNoMatch(t *testing.T) {
	st := memory.NewMemoryStorage()
	seedList(t, st, "Shady Holdings Ltd", "Crimson Trading LLC")
	m := NewMatcher(st)

	result, err := m.Screen(context.Background(), "Sunrise Bakery GmbH")
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, result.OverallStatus)
	require.Equal(t, 0.0, result.RiskScore)
	require.Empty(t, result.Matches)
}

func TestScreenReportsAllHits(t *testing.T) {
	st := memory.NewMemoryStorage()
	seedList(t, st, "Acme Global Trading", "Acme Global Trading Co", "Unrelated Partners")
	m := NewMatcher(st)

	result, err := m.Screen(context.Background(), "Acme Global Trading")
	require.NoError(t, err)
	require.Equal(t, common.StatusFail, result.OverallStatus)
	require.Len(t, result.Matches, 2, "every entry above the threshold is reported")
}

func TestScreenEmptyListPasses(t *testing.T) {
	m := NewMatcher(memory.NewMemoryStorage())
	result, err := m.Screen(context.Background(), "Anyone At All")
	require.NoError(t, err)
	require.Equal(t, common.StatusPass, result.OverallStatus)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme, Inc.", "acme inc"},
		{"  Spaced Out  ", "spaced out"},
		{"no-change gmbh", "no-change gmbh"},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReloadFromCSV(t *testing.T) {
	ctx := context.Background()
	st := memory.NewMemoryStorage()
	m := NewMatcher(st)

	// A registered entity matching a list row gets flagged.
	_, err := st.CreateEntity(ctx, common.Entity{
		CanonicalName:  "Shady Holdings Ltd",
		NormalizedName: "shady holdings ltd",
		EntityType:     "COMPANY",
	})
	require.NoError(t, err)

	doc := strings.Join([]string{
		"name,source",
		"Shady Holdings Ltd,OFAC",
		"\"Crimson Trading, LLC\",EU",
		"",
	}, "\n")

	count, err := m.ReloadFromCSV(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	list, err := st.ListSanctionedEntities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	entity, err := st.EntityByNormalizedName(ctx, "shady holdings ltd")
	require.NoError(t, err)
	require.True(t, entity.Sanctioned)
	require.Equal(t, "OFAC", entity.SanctionSource)

	result, err := m.Screen(ctx, "Crimson Trading LLC")
	require.NoError(t, err)
	require.Equal(t, common.StatusFail, result.OverallStatus)
}
