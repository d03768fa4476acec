package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/permitsync/internal/client/models"
	"github.com/dmitrijs2005/permitsync/internal/logging"
	"github.com/sethvargo/go-retry"
)

const maxErrorBody = 512

// RESTClient talks to the permit API over HTTP/JSON.
type RESTClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	retries   uint64
	retryBase time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*RESTClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *RESTClient) { r.http = c }
}

// WithTimeout bounds every single HTTP exchange.
func WithTimeout(d time.Duration) Option {
	return func(r *RESTClient) { r.http.Timeout = d }
}

// WithRetries sets how many times a failed read is retried and the initial
// backoff between attempts.
func WithRetries(n int, base time.Duration) Option {
	return func(r *RESTClient) {
		if n < 0 {
			n = 0
		}
		r.retries = uint64(n)
		if base > 0 {
			r.retryBase = base
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(r *RESTClient) { r.log = l }
}

func NewRESTClient(baseURL string, opts ...Option) *RESTClient {
	c := &RESTClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       logging.Discard(),
		retries:   2,
		retryBase: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "rest")
	return c
}

func (c *RESTClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *RESTClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// envelope is the optional wrapper the permit server puts around payloads.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type request struct {
	method  string
	path    string
	body    any
	out     any
	auth    bool
	headers map[string]string
}

// call performs req. GETs are retried on transient failures; other methods
// run exactly once.
func (c *RESTClient) call(ctx context.Context, req request) error {
	if req.auth && c.Token() == "" {
		return ErrNotLoggedIn
	}
	if req.method != http.MethodGet {
		return c.once(ctx, req)
	}

	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.once(ctx, req)
		if IsTransient(err) {
			c.log.Debug(ctx, "retrying read", "path", req.path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *RESTClient) once(ctx context.Context, req request) error {
	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(buf)
	}

	hr, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	hr.Header.Set("Accept", "application/json")
	if body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" && req.auth {
		hr.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range req.headers {
		hr.Header.Set(k, v)
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, ctx.Err())
		}
		return fmt.Errorf("%s %s: %w: %v", req.method, req.path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %v", req.method, req.path, ErrUnavailable, err)
	}

	var env envelope
	isEnvelope := json.Unmarshal(raw, &env) == nil && env.Success != nil

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if isEnvelope {
			msg = env.text()
		}
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return fmt.Errorf("%s %s: %w", req.method, req.path, classify(resp.StatusCode, msg))
	}

	payload := raw
	if isEnvelope {
		if !*env.Success {
			return fmt.Errorf("%s %s: %w", req.method, req.path,
				&RejectedError{Status: resp.StatusCode, Message: env.text()})
		}
		payload = env.Data
	}
	if req.out == nil || len(bytes.TrimSpace(payload)) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, req.out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.method, req.path, err)
	}
	return nil
}

func classify(status int, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return &RejectedError{Status: status, Message: msg}
	}
}

func (c *RESTClient) Ping(ctx context.Context) error {
	return c.once(ctx, request{method: http.MethodGet, path: "/health"})
}

func (c *RESTClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var out wireSession
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return sessionFrom(out)
}

func (c *RESTClient) Register(ctx context.Context, in models.RegisterInput) (*models.Session, error) {
	var out wireSession
	err := c.call(ctx, request{method: http.MethodPost, path: "/auth/register", body: in, out: &out})
	if err != nil {
		return nil, err
	}
	return sessionFrom(out)
}

func sessionFrom(w wireSession) (*models.Session, error) {
	if w.Token == "" {
		return nil, errors.New("auth response carries no token")
	}
	return &models.Session{Token: w.Token, User: w.User.model()}, nil
}

// ListCounties and ListChecklist read public reference data and send no token.
func (c *RESTClient) ListCounties(ctx context.Context) ([]models.County, error) {
	var out []wireCounty
	if err := c.call(ctx, request{method: http.MethodGet, path: "/counties", out: &out}); err != nil {
		return nil, err
	}
	return convert(out, wireCounty.model), nil
}

func (c *RESTClient) ListChecklist(ctx context.Context, countyID int64) ([]models.ChecklistItem, error) {
	var out []wireChecklistItem
	path := fmt.Sprintf("/counties/%d/checklist", countyID)
	if err := c.call(ctx, request{method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	items := convert(out, wireChecklistItem.model)
	for i := range items {
		if items[i].CountyID == 0 {
			items[i].CountyID = countyID
		}
	}
	return items, nil
}

func (c *RESTClient) ListPackages(ctx context.Context) ([]models.PermitPackage, error) {
	var out []wirePackage
	if err := c.call(ctx, request{method: http.MethodGet, path: "/packages", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return convert(out, wirePackage.model), nil
}

func (c *RESTClient) CreatePackage(ctx context.Context, in models.CreatePackageInput, idempotencyKey string) (*models.PermitPackage, error) {
	var out wirePackage
	req := request{method: http.MethodPost, path: "/packages", body: in, out: &out, auth: true}
	if idempotencyKey != "" {
		req.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	if err := c.call(ctx, req); err != nil {
		return nil, err
	}
	p := out.model()
	return &p, nil
}

func (c *RESTClient) UpdatePackageStatus(ctx context.Context, id int64, status models.PackageStatus) (*models.PermitPackage, error) {
	var out wirePackage
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/packages/%d/status", id),
		body:   models.StatusPayload{Status: status},
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	if out.ID == 0 {
		// some deployments answer with a bare acknowledgement
		return nil, nil
	}
	p := out.model()
	return &p, nil
}

func (c *RESTClient) ListDocuments(ctx context.Context, packageID int64) ([]models.PermitDocument, error) {
	var out []wireDocument
	path := fmt.Sprintf("/packages/%d/documents", packageID)
	if err := c.call(ctx, request{method: http.MethodGet, path: path, out: &out, auth: true}); err != nil {
		return nil, err
	}
	docs := convert(out, wireDocument.model)
	for i := range docs {
		if docs[i].PackageID == 0 {
			docs[i].PackageID = packageID
		}
	}
	return docs, nil
}

func (c *RESTClient) DeleteDocument(ctx context.Context, packageID, documentID int64) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/packages/%d/documents/%d", packageID, documentID),
		auth:   true,
	})
}

func (c *RESTClient) CreateChecklistItem(ctx context.Context, countyID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	var out wireChecklistItem
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/admin/counties/%d/checklist", countyID),
		body:   in,
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	it := out.model()
	if it.CountyID == 0 {
		it.CountyID = countyID
	}
	return &it, nil
}

func (c *RESTClient) UpdateChecklistItem(ctx context.Context, countyID, itemID int64, in models.ChecklistItemInput) (*models.ChecklistItem, error) {
	var out wireChecklistItem
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/counties/%d/checklist/%d", countyID, itemID),
		body:   in,
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	it := out.model()
	if it.ID == 0 {
		it.ID = itemID
	}
	if it.CountyID == 0 {
		it.CountyID = countyID
	}
	return &it, nil
}

func (c *RESTClient) DeleteChecklistItem(ctx context.Context, countyID, itemID int64) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/admin/counties/%d/checklist/%d", countyID, itemID),
		auth:   true,
	})
}

func (c *RESTClient) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []wireUser
	if err := c.call(ctx, request{method: http.MethodGet, path: "/admin/users", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return convert(out, wireUser.model), nil
}

func (c *RESTClient) UpdateUserRole(ctx context.Context, userID int64, role models.Role) (*models.User, error) {
	var out wireUser
	err := c.call(ctx, request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/users/%d/role", userID),
		body:   map[string]string{"role": string(role)},
		out:    &out,
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	u := out.model()
	return &u, nil
}

func (c *RESTClient) DeleteUser(ctx context.Context, userID int64) error {
	return c.call(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/admin/users/%d", userID),
		auth:   true,
	})
}
