// Package clients holds thin HTTP clients for the external screening
// collaborators. Their failures are reported to the caller, which degrades
// the affected signal instead of failing the assessment.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/traceguard/backend/internal/util"
	"github.com/traceguard/backend/pkg/common"
)

const collaboratorTimeout = 10 * time.Second

// ExportControlClient calls the export-control evaluation service.
type ExportControlClient struct {
	baseURL string
	http    *http.Client
}

// NewExportControlClient reads EXPORT_CONTROL_URL. Returns nil when the
// collaborator is not configured; the aggregator treats that as degraded.
func NewExportControlClient() *ExportControlClient {
	baseURL := util.GetEnv("EXPORT_CONTROL_URL")
	if baseURL == "" {
		return nil
	}
	return &ExportControlClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: collaboratorTimeout},
	}
}

func (c *ExportControlClient) Evaluate(ctx context.Context, supplier common.Supplier) (common.ExportControlResult, error) {
	payload, err := json.Marshal(map[string]string{
		"name":     supplier.Name,
		"country":  supplier.Country,
		"industry": supplier.Industry,
	})
	if err != nil {
		return common.ExportControlResult{}, err
	}

	return util.RetryWithContext(ctx, 2, func(ctx context.Context) (common.ExportControlResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluate", bytes.NewReader(payload))
		if err != nil {
			return common.ExportControlResult{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return common.ExportControlResult{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return common.ExportControlResult{}, fmt.Errorf("export control service returned status %d", resp.StatusCode)
		}

		var result common.ExportControlResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return common.ExportControlResult{}, fmt.Errorf("failed to decode export control response: %w", err)
		}
		return result, nil
	})
}
