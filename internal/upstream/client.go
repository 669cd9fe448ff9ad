package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/yournote/go-diary-backend/internal/config"
)

// tokenPrefix is prepended to the raw JWT returned by the login endpoint
// before it can be used as the value of the "auth" header.
const tokenPrefix = "token "

// userAgent mimics the web client; the upstream rejects unknown agents on
// some endpoints.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// maxBodySnippet caps how much of an error response body is carried in a
// StatusError.
const maxBodySnippet = 160

// Client issues authenticated HTTP calls against the nideriji API. It has no
// storage access; persistence side effects belong to the services layer.
//
// Network-layer failures (dial, reset, timeout) are retried with exponential
// backoff plus jitter; HTTP status failures are never retried here.
type Client struct {
	cfg  config.UpstreamConfig
	http *http.Client

	imageBase string

	// sleep and jitter are swapped out in tests to keep retries instant
	// and deterministic.
	sleep  func(time.Duration)
	jitter func() float64
}

// NewClient constructs a Client from upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		imageBase: "https://f.nideriji.cn/api/image",
		sleep:     time.Sleep,
		jitter:    rand.Float64,
	}
}

// SyncAll fetches the full sync payload for the account behind token:
// profile, paired profile, own diaries, and paired diaries.
func (c *Client) SyncAll(ctx context.Context, token string) (*SyncPayload, error) {
	body, err := c.do(ctx, http.MethodPost, c.cfg.Origin+"/api/v2/sync/", token, nil)
	if err != nil {
		return nil, err
	}
	var payload SyncPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Msg: "sync payload is not valid JSON: " + err.Error()}
	}
	if payload.UserConfig.UserID == 0 {
		return nil, &ValidationError{Msg: "sync payload missing user_config.userid"}
	}
	return &payload, nil
}

// FetchDetails retrieves full-content records for the given upstream diary
// ids, batching requests so each one carries at most cfg.DetailBatch ids.
// The result maps upstream diary id to its detail record; ids the upstream
// did not return are simply absent.
func (c *Client) FetchDetails(ctx context.Context, token string, ownerUserID int64, diaryIDs []int64) (map[int64]Record, error) {
	out := make(map[int64]Record, len(diaryIDs))
	if len(diaryIDs) == 0 {
		return out, nil
	}

	endpoint := fmt.Sprintf("%s/api/diary/all_by_ids/%d/", c.cfg.Origin, ownerUserID)
	for start := 0; start < len(diaryIDs); start += c.cfg.DetailBatch {
		end := start + c.cfg.DetailBatch
		if end > len(diaryIDs) {
			end = len(diaryIDs)
		}
		chunk := diaryIDs[start:end]

		joined := make([]string, len(chunk))
		for i, id := range chunk {
			joined[i] = strconv.FormatInt(id, 10)
		}
		form := url.Values{"diary_ids": {strings.Join(joined, ",")}}

		body, err := c.do(ctx, http.MethodPost, endpoint, token, form)
		if err != nil {
			return nil, errors.Wrapf(err, "detail batch %d..%d", start, end)
		}
		records, err := parseDetailRecords(body)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.ID != 0 {
				out[r.ID] = r
			}
		}
	}
	return out, nil
}

// loginResponse is the body of POST /api/login/. A non-zero, non-null error
// field means the credentials were rejected.
type loginResponse struct {
	Error json.RawMessage `json:"error"`
	Token string          `json:"token"`
}

// Login exchanges email/password for a fresh auth token. The returned value
// already carries the "token " prefix required by the auth header.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{"email": {email}, "password": {password}}
	body, err := c.do(ctx, http.MethodPost, c.cfg.Origin+"/api/login/", "", form)
	if err != nil {
		return "", err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ValidationError{Msg: "login response is not valid JSON"}
	}
	if !loginErrorIsZero(resp.Error) {
		return "", &ValidationError{Msg: "login rejected: error=" + string(resp.Error)}
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", &ValidationError{Msg: "login response missing token"}
	}
	return tokenPrefix + strings.TrimSpace(resp.Token), nil
}

// WriteDiary pushes a content blob for the given date (YYYY-MM-DD) to the
// upstream write endpoint and returns the decoded JSON response.
func (c *Client) WriteDiary(ctx context.Context, token, date, content string) (map[string]any, error) {
	form := url.Values{"content": {content}, "date": {date}}
	body, err := c.do(ctx, http.MethodPost, c.cfg.Origin+"/api/write/", token, form)
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ValidationError{Msg: "write response is not a JSON object"}
	}
	return resp, nil
}

// FetchImage downloads one image blob. The read is aborted mid-stream as
// soon as the body exceeds maxBytes.
func (c *Client) FetchImage(ctx context.Context, token string, niderijiUserID, imageID, maxBytes int64) (data []byte, contentType string, err error) {
	endpoint := fmt.Sprintf("%s/%d/%d/", c.imageBase, niderijiUserID, imageID)

	resp, err := c.roundTrip(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, "", &UnauthorizedError{Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Status: resp.StatusCode}
	}

	limited := io.LimitReader(resp.Body, maxBytes+1)
	data, err = io.ReadAll(limited)
	if err != nil {
		return nil, "", &NetworkError{Attempts: 1, Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, "", &ValidationError{Msg: fmt.Sprintf("image exceeds %d bytes", maxBytes)}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// do performs one logical request with the retry policy applied and returns
// the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, endpoint, token string, form url.Values) ([]byte, error) {
	resp, err := c.roundTrip(ctx, method, endpoint, token, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &UnauthorizedError{Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Status: resp.StatusCode, Body: snippet(body)}
	}
	if readErr != nil {
		return nil, &NetworkError{Attempts: 1, Err: readErr}
	}
	return body, nil
}

// roundTrip sends the request, retrying network-layer failures only. The
// returned response may have any status code; callers classify it.
func (c *Client) roundTrip(ctx context.Context, method, endpoint, token string, form url.Values) (*http.Response, error) {
	attempts := c.cfg.MaxAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := c.newRequest(ctx, method, endpoint, token, form)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Context cancellation is the caller's decision, not upstream flakiness.
		if ctx.Err() != nil {
			return nil, &NetworkError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt >= attempts {
			break
		}
		c.sleep(c.backoff(attempt))
	}
	return nil, &NetworkError{Attempts: attempts, Err: lastErr}
}

// backoff computes the delay before retrying after the given 1-based attempt:
// base doubled per attempt, capped, plus proportional random jitter.
func (c *Client) backoff(attempt int) time.Duration {
	base := c.cfg.BackoffBase
	if base <= 0 {
		return 0
	}
	delay := base << uint(attempt-1)
	if c.cfg.BackoffMax > 0 && delay > c.cfg.BackoffMax {
		delay = c.cfg.BackoffMax
	}
	if c.cfg.JitterRatio > 0 {
		delay += time.Duration(c.jitter() * c.cfg.JitterRatio * float64(delay))
	}
	return delay
}

// newRequest assembles the browser-shaped request the upstream expects.
func (c *Client) newRequest(ctx context.Context, method, endpoint, token string, form url.Values) (*http.Request, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "build upstream request")
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("accept-language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("origin", c.cfg.Origin)
	req.Header.Set("referer", c.cfg.Origin+"/w/")
	if token != "" {
		req.Header.Set("auth", token)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

// loginErrorIsZero reports whether the login "error" field signals success.
// The upstream has been seen returning 0, "0", null, and "".
func loginErrorIsZero(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "0", "null", `""`, `"0"`:
		return true
	}
	return false
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodySnippet {
		s = s[:maxBodySnippet] + "…"
	}
	return s
}
