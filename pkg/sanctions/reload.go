package sanctions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/traceguard/backend/pkg/common"
	"github.com/traceguard/backend/pkg/logger"
)

// ReloadFromCSV replaces the sanctions list with the rows of a CSV document
// ("name,source" per row; a header line is skipped when present) and flags
// every registered entity whose normalized name matches a listed name.
// Returns the number of list entries loaded.
func (m *Matcher) ReloadFromCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var entries []common.SanctionedEntity
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to parse sanctions list: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" || strings.EqualFold(name, "name") {
			continue
		}
		source := ""
		if len(record) > 1 {
			source = strings.TrimSpace(record[1])
		}
		entries = append(entries, common.SanctionedEntity{Name: name, Source: source})
	}

	count, err := m.store.ReplaceSanctionedEntities(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to replace sanctions list: %w", err)
	}

	marked, err := m.store.MarkEntitiesSanctioned(ctx, entries)
	if err != nil {
		return count, fmt.Errorf("failed to flag sanctioned entities: %w", err)
	}

	logger.Info("[Sanctions] List reloaded", "entries", count, "entities_flagged", marked)
	return count, nil
}
