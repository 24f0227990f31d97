// Package consentclient is the applicant-side client of the consent service. It keeps a per-form snapshot of
// fetched templates and answers and reconciles it against the live catalog before every submission.
package consentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Error codes returned by the consent service
const (
	CodeTemplateOutdated       = "template_outdated"
	CodeRequiredConsentMissing = "required_consent_missing"
	CodeLinkExpired            = "link_expired"
	CodeInvalidAccess          = "invalid_access"
	CodeValidation             = "validation_error"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "consentclient-go/1.0"
	maxResponseBytes = 1 << 20
)

// Error is a non-2xx response from the consent service
type Error struct {
	StatusCode    int
	Code          string
	Description   string
	CorrelationID string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("consent service error: status=%d code=%s description=%s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is a service Error carrying code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTemplateOutdated reports whether a submission was rejected because a template moved to a newer version.
func IsTemplateOutdated(err error) bool {
	return IsCode(err, CodeTemplateOutdated)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	CorrelationID    string `json:"correlation_id"`
}

// Client talks to the anonymous applicant endpoints of the consent service
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	templates  singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the service at baseURL, for example "https://consent.example.com".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserAgent returns the User-Agent the client sends.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// FetchTemplates returns the active templates of formType. Concurrent calls for the same form type share one request.
func (c *Client) FetchTemplates(ctx context.Context, formType string) ([]Template, error) {
	v, err, _ := c.templates.Do(formType, func() (interface{}, error) {
		q := url.Values{}
		q.Set("formType", formType)
		var list templateList
		if err := c.do(ctx, http.MethodGet, "/api/v1/consent-templates?"+q.Encode(), nil, &list); err != nil {
			return nil, err
		}
		return list.Data, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]Template)
	templates := make([]Template, len(shared))
	copy(templates, shared)
	return templates, nil
}

// VerifyAccess checks an access code hash. Wrong codes and unknown forms both come back as CodeInvalidAccess.
func (c *Client) VerifyAccess(ctx context.Context, formID, leadID, codeHash string) (*VerifyResult, error) {
	var result VerifyResult
	path := "/api/v1/application-forms/" + url.PathEscape(formID) + "/verify-access"
	if err := c.do(ctx, http.MethodPost, path, accessRequest{LeadID: leadID, AccessCodeHash: codeHash}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Heartbeat keeps the applicant marked present on the form.
func (c *Client) Heartbeat(ctx context.Context, formID, leadID, codeHash string) error {
	path := "/api/v1/application-forms/" + url.PathEscape(formID) + "/heartbeat"
	return c.do(ctx, http.MethodPost, path, accessRequest{LeadID: leadID, AccessCodeHash: codeHash}, nil)
}

// Submit posts one consent batch.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/consent-records/batch", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil {
			apiErr.Code = eb.Error
			apiErr.Description = eb.ErrorDescription
			apiErr.CorrelationID = eb.CorrelationID
		}
		return apiErr
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
