package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/pedago-admin/internal/wizard"
)

const csrfCookieName = "csrftoken"

// SubmitResult describes how the backend answered a submission.
type SubmitResult struct {
	StatusCode int    `json:"statusCode"`
	Location   string `json:"location,omitempty"`
}

// FormPosterConfig configures the submission client.
type FormPosterConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// FormPoster forwards submissions as url-encoded form posts.
type FormPoster struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewFormPoster constructs a FormPoster. Redirects are not followed: a 3xx is
// the backend's success answer and its Location is reported back.
func NewFormPoster(cfg FormPosterConfig) *FormPoster {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	noFollow := *httpClient
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormPoster{endpoint: cfg.Endpoint, http: &noFollow, logger: logger}
}

// Post sends the submission. 2xx and 3xx answers succeed.
func (p *FormPoster) Post(ctx context.Context, sub wizard.Submission) (*SubmitResult, error) {
	ctx, span := tracer().Start(ctx, "precontrat.submit", trace.WithAttributes(
		attribute.String("teacher.id", sub.TeacherID),
		attribute.String("class.id", sub.ClassID),
		attribute.Int("modules.count", len(sub.ModuleIDs)),
	))
	defer span.End()

	result, err := p.post(ctx, sub)
	if err != nil {
		failSpan(span, err)
		p.logger.Warn("submission failed", zap.String("class_id", sub.ClassID), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", result.StatusCode))
	return result, nil
}

func (p *FormPoster) post(ctx context.Context, sub wizard.Submission) (*SubmitResult, error) {
	if p.endpoint == "" {
		return nil, fmt.Errorf("submit endpoint is not configured")
	}
	form, err := sub.Form()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	if sub.CSRFToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: sub.CSRFToken})
		req.Header.Set("Referer", p.endpoint)
	}

	res, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 400 {
		return &SubmitResult{StatusCode: res.StatusCode, Location: res.Header.Get("Location")}, nil
	}

	body, _ := readBody(res)
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return nil, &StatusError{StatusCode: res.StatusCode, Message: msg}
}
