// Package remote talks to the universe configuration web API. Mutations go
// through a staged draft owned by the service: entries are created, updated,
// or deleted in the draft, then the draft is published atomically or
// discarded.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OutOfBears/rbx-configs/internal/diff"
	"github.com/OutOfBears/rbx-configs/internal/flagset"
	"github.com/OutOfBears/rbx-configs/internal/retry"
)

// DefaultBaseURL is the production endpoint of the configuration service.
const DefaultBaseURL = "https://apis.roblox.com/universe-configs-web-api"

const (
	deployImmediate = "DEPLOYMENT_STRATEGY_IMMEDIATE"
	rateCushion     = 75 * time.Millisecond
)

// etagWait is how long to sit out an ETagMismatch before resending.
// Overridable in tests.
var etagWait = time.Second

// API is the remote surface the sync engine drives. *Client implements it;
// tests substitute fakes.
type API interface {
	FetchConfig(ctx context.Context, universeID uint64) (*Config, error)
	StageBatch(ctx context.Context, universeID uint64, ops []diff.Operation) (*StageReport, error)
	StageDeletion(ctx context.Context, universeID uint64, name string) error
	DiscardDraft(ctx context.Context, universeID uint64) error
	PublishDraft(ctx context.Context, universeID uint64) (*PublishReport, error)
}

// Config is a published universe configuration snapshot.
type Config struct {
	Version string
	Flags   flagset.Set
}

// Rejection is a per-flag refusal from the service.
type Rejection struct {
	Name    string
	Code    string
	Message string
}

// StageReport lists per-operation outcomes of a staging batch. A rejected
// operation does not abort the batch.
type StageReport struct {
	Accepted []string
	Rejected []Rejection
}

// PublishReport carries per-entry publish failures. An empty report is a
// clean publish.
type PublishReport struct {
	Failed []Rejection
}

// Client is an HTTP client for the universe configuration web API. It owns
// the session middleware the service expects: cookie auth, CSRF token
// rotation, rate-limit waits, and bounded retries for transient failures.
type Client struct {
	BaseURL   string
	Cookie    string
	UserAgent string
	HTTP      *http.Client
	Retry     retry.Policy

	mu   sync.Mutex
	csrf string
}

// New creates a client for the given endpoint. The cookie is the session
// token sent as .ROBLOSECURITY on every request.
func New(baseURL, cookie string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   baseURL,
		Cookie:    cookie,
		UserAgent: "rbx-configs",
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Retry:     retry.DefaultPolicy(),
	}
}

// --- Wire types (shapes owned by the service) ---

type configResponse struct {
	ConfigVersion string        `json:"configVersion"`
	Entries       []configEntry `json:"entries"`
}

type configEntry struct {
	Entry wireFlag `json:"entry"`
}

type wireFlag struct {
	Key         string        `json:"key"`
	Description *string       `json:"description,omitempty"`
	Value       flagset.Value `json:"entryValue"`
}

type stageRequest struct {
	Entry wireFlag `json:"entry"`
}

type resultEnvelope struct {
	IsError bool         `json:"isError"`
	Data    *resultData  `json:"data,omitempty"`
	Error   *resultError `json:"error,omitempty"`
}

type resultData struct {
	DraftHash string `json:"draftHash"`
}

type resultError struct {
	ErrorCode string            `json:"errorCode"`
	Message   string            `json:"message"`
	Details   []json.RawMessage `json:"details,omitempty"`
}

type draftResponse struct {
	CreateConfigResult  *resultEnvelope `json:"createConfigResult,omitempty"`
	UpdateConfigResult  *resultEnvelope `json:"updateConfigResult,omitempty"`
	DeleteConfigResult  *resultEnvelope `json:"deleteConfigResult,omitempty"`
	DiscardStagedResult *resultEnvelope `json:"discardStagedResult,omitempty"`
	PublishStagedResult *resultEnvelope `json:"publishStagedResult,omitempty"`
}

type publishRequest struct {
	Message            string `json:"message"`
	DeploymentStrategy string `json:"deploymentStrategy"`
}

// errorResponse is the generic error body the service attaches to 4xx.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- API methods ---

// FetchConfig downloads the published configuration of a universe.
func (c *Client) FetchConfig(ctx context.Context, universeID uint64) (*Config, error) {
	var resp configResponse
	path := fmt.Sprintf("/v1/configurations/universes/%d/latest", universeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}

	flags := make(flagset.Set, len(resp.Entries))
	for _, e := range resp.Entries {
		flags[e.Entry.Key] = flagset.Flag{Description: e.Entry.Description, Value: e.Entry.Value}
	}
	return &Config{Version: resp.ConfigVersion, Flags: flags}, nil
}

// StageBatch stages each operation into the universe's draft. Per-entry
// rejections are collected without aborting the batch; a transport-level
// failure aborts, and the returned report covers the operations attempted
// before it.
func (c *Client) StageBatch(ctx context.Context, universeID uint64, ops []diff.Operation) (*StageReport, error) {
	report := &StageReport{}
	path := fmt.Sprintf("/v1/draft/universes/%d", universeID)

	for _, op := range ops {
		method := http.MethodPost
		if op.Kind == diff.Update {
			method = http.MethodPut
		}
		body := stageRequest{Entry: wireFlag{
			Key:         op.Name,
			Description: op.Flag.Description,
			Value:       op.Flag.Value,
		}}

		var resp draftResponse
		if err := c.do(ctx, method, path, body, &resp); err != nil {
			return report, fmt.Errorf("stage %s %q: %w", op.Kind, op.Name, err)
		}

		result := resp.CreateConfigResult
		if op.Kind == diff.Update {
			result = resp.UpdateConfigResult
		}
		if result != nil && result.IsError {
			report.Rejected = append(report.Rejected, rejectionFrom(op.Name, result.Error))
			continue
		}
		report.Accepted = append(report.Accepted, op.Name)
	}
	return report, nil
}

// StageDeletion stages the removal of one flag into the universe's draft.
func (c *Client) StageDeletion(ctx context.Context, universeID uint64, name string) error {
	path := fmt.Sprintf("/v1/draft/universes/%d/entry?entryKey=%s", universeID, url.QueryEscape(name))
	var resp draftResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return fmt.Errorf("stage deletion of %q: %w", name, err)
	}
	if result := resp.DeleteConfigResult; result != nil && result.IsError {
		return fmt.Errorf("stage deletion of %q: %w", name, apiErrorFrom(result.Error))
	}
	return nil
}

// DiscardDraft drops the universe's draft. ErrNoDraft is returned when the
// service reports there was nothing to discard.
func (c *Client) DiscardDraft(ctx context.Context, universeID uint64) error {
	path := fmt.Sprintf("/v1/draft/universes/%d", universeID)
	var resp draftResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}

	result := resp.DiscardStagedResult
	if result == nil {
		return fmt.Errorf("discard draft: service returned no result")
	}
	if result.IsError {
		if result.Error != nil && result.Error.ErrorCode == "DraftNotFound" {
			return ErrNoDraft
		}
		return fmt.Errorf("discard draft: %w", apiErrorFrom(result.Error))
	}
	// An empty draft hash means the service had no draft to discard.
	if result.Data != nil && result.Data.DraftHash == "" {
		return ErrNoDraft
	}
	return nil
}

// PublishDraft publishes the universe's draft with an immediate deployment.
// Per-entry failures come back in the report; ErrNoDraft is returned when
// the service holds no draft.
func (c *Client) PublishDraft(ctx context.Context, universeID uint64) (*PublishReport, error) {
	path := fmt.Sprintf("/v1/draft/universes/%d/publish", universeID)
	body := publishRequest{Message: "", DeploymentStrategy: deployImmediate}

	respBody, err := c.doRaw(ctx, http.MethodPost, path, body)
	if err != nil {
		if strings.Contains(err.Error(), "DraftNotFound") {
			return nil, ErrNoDraft
		}
		return nil, fmt.Errorf("publish draft: %w", err)
	}
	if bytes.Contains(respBody, []byte("DraftNotFound")) {
		return nil, ErrNoDraft
	}

	var resp draftResponse
	if len(respBody) > 0 {
		// Tolerate non-JSON bodies on success; the envelope is only needed
		// to surface per-entry failures.
		_ = json.Unmarshal(respBody, &resp)
	}
	if result := resp.PublishStagedResult; result != nil && result.IsError {
		if result.Error != nil {
			if failed := failedEntries(result.Error.Details); len(failed) > 0 {
				return &PublishReport{Failed: failed}, nil
			}
		}
		return nil, fmt.Errorf("publish draft: %w", apiErrorFrom(result.Error))
	}
	return &PublishReport{}, nil
}

// --- Result helpers ---

func rejectionFrom(name string, re *resultError) Rejection {
	rej := Rejection{Name: name}
	if re != nil {
		rej.Code = re.ErrorCode
		rej.Message = re.Message
	}
	return rej
}

func apiErrorFrom(re *resultError) error {
	if re == nil {
		return &APIError{Code: "Unknown"}
	}
	return &APIError{Code: re.ErrorCode, Message: re.Message}
}

// failedEntries parses per-entry failures out of an error detail list.
func failedEntries(details []json.RawMessage) []Rejection {
	var failed []Rejection
	for _, raw := range details {
		var d struct {
			Key       string `json:"key"`
			ErrorCode string `json:"errorCode"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(raw, &d) == nil && d.Key != "" {
			failed = append(failed, Rejection{Name: d.Key, Code: d.ErrorCode, Message: d.Message})
		}
	}
	return failed
}

// --- HTTP plumbing ---

// do executes a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	respBody, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// doRaw executes a request under the retry policy and returns the raw
// response body of the successful attempt.
func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = data
	}

	var respBody []byte
	err := c.Retry.Execute(ctx, func(ctx context.Context) error {
		data, err := c.attempt(ctx, method, path, payload)
		if err != nil {
			return err
		}
		respBody = data
		return nil
	})
	return respBody, err
}

// attempt performs a single send, classifying the response for the retry
// policy: rate limits and ETag contention wait and retry, auth and client
// errors are permanent, server errors back off exponentially.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	// One immediate re-send is allowed when the service rotates the CSRF
	// token on a 403.
	for sends := 0; ; sends++ {
		resp, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}

		rotated := c.ingestCSRF(resp)
		if resp.StatusCode == http.StatusForbidden && rotated && sends == 0 {
			slog.Debug("retrying with rotated csrf token", "method", method, "path", path)
			continue
		}

		switch {
		case resp.StatusCode < 400:
			return respBody, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryWait(resp.Header) + rateCushion
			slog.Debug("rate limited", "wait", wait, "path", path)
			return nil, retry.After(fmt.Errorf("%w: HTTP 429", ErrRateLimited), wait)

		case resp.StatusCode == http.StatusBadRequest:
			var body errorResponse
			if json.Unmarshal(respBody, &body) == nil && body.Message == "ETagMismatch" {
				slog.Debug("waiting for etag to propagate", "path", path)
				return nil, retry.After(fmt.Errorf("HTTP 400: %s", body.Message), etagWait)
			}
			return nil, retry.Permanent(statusError(resp.StatusCode, respBody))

		case resp.StatusCode == http.StatusUnauthorized:
			return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(respBody)))

		case resp.StatusCode == http.StatusForbidden:
			return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(respBody)))

		case resp.StatusCode == http.StatusNotFound:
			return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrNotFound, errorMessage(respBody)))

		case resp.StatusCode < 500:
			return nil, retry.Permanent(statusError(resp.StatusCode, respBody))

		default:
			return nil, statusError(resp.StatusCode, respBody)
		}
	}
}

// send performs one HTTP round trip with the session headers attached.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Origin", "https://create.roblox.com")
	req.Header.Set("Referer", "https://create.roblox.com")
	if c.Cookie != "" {
		req.Header.Set("Cookie", ".ROBLOSECURITY="+c.Cookie)
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set("X-Csrf-Token", token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, respBody, nil
}

func (c *Client) csrfToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrf
}

// ingestCSRF caches a token the service attached to the response and
// reports whether it changed.
func (c *Client) ingestCSRF(resp *http.Response) bool {
	token := resp.Header.Get("X-Csrf-Token")
	if token == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.csrf {
		return false
	}
	c.csrf = token
	return true
}

// retryWait reads the server-directed wait off a 429 response.
func retryWait(h http.Header) time.Duration {
	for _, key := range []string{"Retry-After", "X-Ratelimit-Reset"} {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			continue
		}
		if secs, err := strconv.ParseUint(v, 10, 64); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

func statusError(status int, body []byte) error {
	var resp errorResponse
	if json.Unmarshal(body, &resp) == nil && resp.Message != "" {
		if resp.Code != "" {
			return fmt.Errorf("HTTP %d: %w", status, &APIError{Code: resp.Code, Message: resp.Message})
		}
		return fmt.Errorf("HTTP %d: %s", status, resp.Message)
	}
	return fmt.Errorf("HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

func errorMessage(body []byte) string {
	var resp errorResponse
	if json.Unmarshal(body, &resp) == nil && resp.Message != "" {
		return resp.Message
	}
	return strings.TrimSpace(string(body))
}
