// Package client is the HTTP client of the designer API, used by pollers and
// the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	api "github.com/tradewatt/designer/api/v1alpha1"
)

var _ Designer = (*designerClient)(nil)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("conflicting state")
)

// Designer is the API surface a polling client needs.
type Designer interface {
	CreateDesign(ctx context.Context, req api.DesignRequest) (*api.DesignResponse, error)
	ListJobs(ctx context.Context, status string, limit int) ([]api.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error)
	CancelJob(ctx context.Context, id uuid.UUID) (*api.Job, error)
	FailJob(ctx context.Context, id uuid.UUID, message string) (*api.Job, error)
}

type designerClient struct {
	baseURL string
	client  *http.Client
}

func NewDesigner(baseURL string, timeout time.Duration) Designer {
	return &designerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *designerClient) CreateDesign(ctx context.Context, req api.DesignRequest) (*api.DesignResponse, error) {
	var resp api.DesignResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/designs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *designerClient) ListJobs(ctx context.Context, status string, limit int) ([]api.Job, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/v1/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var jobs []api.Job
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *designerClient) GetJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id.String(), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *designerClient) CancelJob(ctx context.Context, id uuid.UUID) (*api.Job, error) {
	var job api.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+id.String()+"/cancel", struct{}{}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *designerClient) FailJob(ctx context.Context, id uuid.UUID, message string) (*api.Job, error) {
	body := struct {
		Message string `json:"message"`
	}{Message: message}

	var job api.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+id.String()+"/fail", body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *designerClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.Error
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			apiErr.Message = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
		default:
			return fmt.Errorf("%s %s failed: %s", method, path, apiErr.Message)
		}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
