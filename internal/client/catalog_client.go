package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/models"
	"github.com/noah-isme/pedago-admin/internal/wizard"
)

// ClassIDPlaceholder is substituted with the escaped class id in the endpoint.
const ClassIDPlaceholder = "{id}"

const catalogSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "classLabel": {"type": "string"},
    "count": {"type": "integer", "minimum": 0},
    "error": {"type": "string"},
    "modules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "code", "name", "lectureHours", "tutorialHours"],
        "properties": {
          "id": {"type": ["string", "integer"], "minLength": 1},
          "code": {"type": "string"},
          "name": {"type": "string"},
          "unitName": {"type": "string"},
          "lectureHours": {"type": "number", "minimum": 0},
          "tutorialHours": {"type": "number", "minimum": 0}
        }
      }
    }
  }
}`

// ErrCatalogRejected wraps a success:false payload.
var ErrCatalogRejected = errors.New("catalog request rejected")

// CatalogConfig configures the catalog client.
type CatalogConfig struct {
	Endpoint       string
	Timeout        time.Duration
	ValidateSchema bool
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// CatalogClient fetches module catalogs over HTTP.
type CatalogClient struct {
	endpoint string
	http     *http.Client
	schema   *gojsonschema.Schema
	logger   *zap.Logger
}

// NewCatalogClient validates the endpoint template and compiles the payload schema.
func NewCatalogClient(cfg CatalogConfig) (*CatalogClient, error) {
	if !strings.Contains(cfg.Endpoint, ClassIDPlaceholder) {
		return nil, fmt.Errorf("catalog endpoint %q has no %s placeholder", cfg.Endpoint, ClassIDPlaceholder)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CatalogClient{endpoint: cfg.Endpoint, http: httpClient, logger: logger}
	if cfg.ValidateSchema {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(catalogSchema))
		if err != nil {
			return nil, fmt.Errorf("compile catalog schema: %w", err)
		}
		c.schema = schema
	}
	return c, nil
}

// Fetch retrieves the raw catalog payload for classID. Transport errors,
// non-2xx statuses, schema violations and success:false payloads all fail.
func (c *CatalogClient) Fetch(ctx context.Context, classID string) (*models.CatalogResponse, error) {
	ctx, span := tracer().Start(ctx, "catalog.fetch", trace.WithAttributes(attribute.String("class.id", classID)))
	defer span.End()

	resp, err := c.fetch(ctx, classID)
	if err != nil {
		failSpan(span, err)
		c.logger.Warn("catalog fetch failed", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.count", len(resp.Modules)))
	return resp, nil
}

func (c *CatalogClient) fetch(ctx context.Context, classID string) (*models.CatalogResponse, error) {
	target := strings.ReplaceAll(c.endpoint, ClassIDPlaceholder, url.PathEscape(classID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer res.Body.Close()

	body, err := readBody(res)
	if err != nil {
		return nil, err
	}

	var payload models.CatalogResponse
	decodeErr := json.Unmarshal(body, &payload)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: res.StatusCode}
		if decodeErr == nil {
			statusErr.Message = payload.Error
		}
		return nil, statusErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode catalog: %w", decodeErr)
	}
	if c.schema != nil {
		if err := c.validate(body); err != nil {
			return nil, err
		}
	}
	if !payload.Success {
		msg := payload.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", ErrCatalogRejected, msg)
	}
	return &payload, nil
}

func (c *CatalogClient) validate(body []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("catalog payload invalid: %s", strings.Join(problems, "; "))
}

// Modules fetches the catalog and converts it for the wizard.
func (c *CatalogClient) Modules(ctx context.Context, classID string) ([]wizard.Module, error) {
	resp, err := c.Fetch(ctx, classID)
	if err != nil {
		return nil, err
	}
	return ToWizardModules(resp.Modules), nil
}

// ToWizardModules converts catalog entries, preserving order.
func ToWizardModules(in []models.CatalogModule) []wizard.Module {
	out := make([]wizard.Module, 0, len(in))
	for _, m := range in {
		out = append(out, wizard.Module{
			ID:            string(m.ID),
			Code:          m.Code,
			Name:          m.Name,
			UnitName:      m.UnitName,
			LectureHours:  m.LectureHours,
			TutorialHours: m.TutorialHours,
		})
	}
	return out
}
