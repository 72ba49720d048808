package ris

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/risclient/internal/transport/rest"
)

const healthPath = "/health"

type healthResponse struct {
	Status string `json:"status"`
}

func (r *healthResponse) Validate() error {
	if r.Status == "" {
		return errors.New("health response has no status")
	}
	return nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) (status HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var resp healthResponse
	if err = c.transport.Do(ctx, rest.Request{Method: http.MethodGet, Path: healthPath}, &resp); err != nil {
		return HealthStatus{}, fmt.Errorf("health: %w", err)
	}
	return HealthStatus{Status: resp.Status}, nil
}
