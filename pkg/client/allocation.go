package client

import (
	"context"
	"fmt"
	"net/url"

	"lanesched/pkg/model"
)

const allocationsPath = "/api/v1/allocations"

// AllocationClient calls the lanes service HTTP API.
type AllocationClient struct {
	httpClient *HttpClient
}

func NewAllocationClient(baseURL string) *AllocationClient {
	return &AllocationClient{httpClient: NewHttpClient(baseURL)}
}

func (c *AllocationClient) HTTP() *HttpClient {
	return c.httpClient
}

// Allocate posts a batch. A non-empty idempotencyKey makes retries replay
// the first response.
func (c *AllocationClient) Allocate(ctx context.Context, req model.AllocationRequest, idempotencyKey string) (*Response, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return c.httpClient.POST(ctx, allocationsPath, req, headers)
}

// AllocateDay runs allocation over the stored reservations of day (YYYY-MM-DD).
func (c *AllocationClient) AllocateDay(ctx context.Context, day string) (*Response, error) {
	return c.httpClient.POST(ctx, allocationsPath+"/day?date="+url.QueryEscape(day), nil, nil)
}

func (c *AllocationClient) GetAll(ctx context.Context, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(ctx, fmt.Sprintf("%s?limit=%d&offset=%d", allocationsPath, limit, offset))
}

func (c *AllocationClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, allocationsPath+"/id/"+url.PathEscape(id))
}

func (c *AllocationClient) Schedule(ctx context.Context, id string, mode model.ScheduleMode) (*Response, error) {
	path := allocationsPath + "/id/" + url.PathEscape(id) + "/schedule"
	if mode != "" {
		path += "?mode=" + url.QueryEscape(string(mode))
	}
	return c.httpClient.GET(ctx, path)
}
