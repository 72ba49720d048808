package ris

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/risclient/internal/domain/analytics"
	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

const summaryPath = "/analytics/summary"

// Summary fetches aggregate catalogue statistics. It sends no body and is
// safe to retry.
func (c *Client) Summary(ctx context.Context) (summary AnalyticsSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analytics.summary", start, err) }()

	var s analytics.Summary
	if err = c.transport.Do(ctx, rest.Request{Method: http.MethodGet, Path: summaryPath}, &s); err != nil {
		return AnalyticsSummary{}, fmt.Errorf("analytics summary: %w", err)
	}
	return AnalyticsSummary{
		TotalProducts: *s.TotalProducts,
		AveragePrice:  s.AveragePrice,
	}, nil
}
