package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/noah-isme/pedago-admin/internal/models"
)

// DirectoryClient reads the teacher and class option lists from the API.
type DirectoryClient struct {
	baseURL string
	http    *http.Client
}

// NewDirectoryClient constructs a DirectoryClient for an API prefix URL such
// as http://localhost:8080/api/v1.
func NewDirectoryClient(baseURL string, timeout time.Duration) *DirectoryClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DirectoryClient{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type optionsEnvelope struct {
	Data  []models.OptionItem `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Teachers lists the selectable teachers.
func (c *DirectoryClient) Teachers(ctx context.Context) ([]models.OptionItem, error) {
	return c.options(ctx, "precontrat/teachers")
}

// Classes lists the selectable classes.
func (c *DirectoryClient) Classes(ctx context.Context) ([]models.OptionItem, error) {
	return c.options(ctx, "precontrat/classes")
}

func (c *DirectoryClient) options(ctx context.Context, path string) ([]models.OptionItem, error) {
	ctx, span := tracer().Start(ctx, "directory."+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(c.baseURL, path), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	defer res.Body.Close()

	body, err := readBody(res)
	if err != nil {
		return nil, err
	}
	var env optionsEnvelope
	decodeErr := json.Unmarshal(body, &env)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: res.StatusCode}
		if decodeErr == nil && env.Error != nil {
			statusErr.Message = env.Error.Message
		}
		failSpan(span, statusErr)
		return nil, statusErr
	}
	if decodeErr != nil {
		failSpan(span, decodeErr)
		return nil, fmt.Errorf("decode %s: %w", path, decodeErr)
	}
	return env.Data, nil
}
