// Package canvas is a thin client for the Canvas LMS REST API, covering the
// handful of operations the upload orchestration needs. Pure request/response;
// no retries, no state.
//
// API reference: https://canvas.instructure.com/doc/api/file.file_uploads.html
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for Canvas client failures.
var (
	ErrCanvasUnreachable = errors.New("canvas unreachable")
	ErrCanvasTimeout     = errors.New("canvas request timeout")
	ErrCanvasStatus      = errors.New("canvas returned unexpected status")
	ErrUploadDelegation  = errors.New("canvas upload delegation failed")
)

// Workflow states reported by a Canvas progress resource.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Client is the interface for the Canvas operations used by the orchestrator
// and poller.
type Client interface {
	SearchUsers(ctx context.Context, term string) ([]User, error)
	InitiateURLUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	GetProgress(ctx context.Context, progressURL string) (*Progress, error)
	GetFile(ctx context.Context, fileID int64) (*File, error)
	GetQuota(ctx context.Context, userID int64) (*Quota, error)
}

// User is a Canvas user record as returned by the account user search.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LoginID string `json:"login_id"`
}

// UploadRequest holds the parameters for initiating a file upload via URL into
// a user's account.
type UploadRequest struct {
	UserID          int64
	FolderPath      string
	SourceURL       string
	DisplayName     string
	SizeHint        int64  // bytes, 0 means unknown
	ContentTypeHint string // "" means unknown
}

// UploadResponse is the raw shape of a Canvas upload-initiation response. The
// API answers with either a progress object or an error body ("message" on a
// 400, "error" embedded in a 200), so all fields are kept for the caller to
// classify.
type UploadResponse struct {
	Message  string       `json:"message"`
	Error    string       `json:"error"`
	Progress *ProgressRef `json:"progress"`

	// Present when Canvas delegates the actual transfer to a second POST.
	UploadURL    string         `json:"upload_url"`
	UploadParams map[string]any `json:"upload_params"`
}

// ProgressRef points at the progress resource tracking an upload.
type ProgressRef struct {
	URL string `json:"url"`
}

// Progress is the progress resource behind a progress URL.
type Progress struct {
	ID            int64            `json:"id"`
	Tag           string           `json:"tag"`
	Completion    float64          `json:"completion"`
	WorkflowState string           `json:"workflow_state"`
	Message       string           `json:"message"`
	URL           string           `json:"url"`
	Results       *ProgressResults `json:"results"`
}

// ProgressResults carries the file created by a completed upload.
type ProgressResults struct {
	ID int64 `json:"id"`
}

// File is a Canvas file descriptor.
type File struct {
	ID          int64  `json:"id"`
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	ContentType string `json:"content-type"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Quota is a user's storage quota snapshot.
type Quota struct {
	Quota     int64 `json:"quota"`
	QuotaUsed int64 `json:"quota_used"`
}

// HTTPClient implements Client against the Canvas REST API.
type HTTPClient struct {
	baseURL     string
	accessToken string
	perPage     int
	client      *http.Client
}

// NewHTTPClient creates a new Canvas HTTP client. baseURL is the API root,
// e.g. "https://ourdomain.instructure.com/api/v1".
func NewHTTPClient(baseURL, accessToken string, perPage int, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		perPage:     perPage,
		client:      &http.Client{Timeout: timeout},
	}
}

// SearchUsers queries the account user search. Canvas pages result sets via
// RFC 5988 Link headers; all pages are fetched and concatenated. Matches may
// be partial or case-insensitive; callers that need an exact login match must
// filter the results themselves.
func (c *HTTPClient) SearchUsers(ctx context.Context, term string) ([]User, error) {
	params := url.Values{
		"search_term": {term},
		"per_page":    {strconv.Itoa(c.perPage)},
	}
	next := fmt.Sprintf("%s/accounts/self/users?%s", c.baseURL, params.Encode())

	var users []User
	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		c.setAuth(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, classifyError(err)
		}

		var page []User
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d searching users", ErrCanvasStatus, resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding user search response: %w", decodeErr)
		}

		users = append(users, page...)
		next = nextLink(resp.Header.Get("Link"))
	}
	return users, nil
}

// InitiateURLUpload starts a URL-based upload into the user's account,
// masquerading as the target user. The response body is decoded regardless of
// status code: a 400 carries the error shape the caller must classify.
//
// When Canvas delegates the transfer (upload_url in the response), the
// delegation POST is performed here; a 502 from the delegation host is
// reported as ErrUploadDelegation, and an error body from it replaces the
// initiation response.
func (c *HTTPClient) InitiateURLUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	endpoint := fmt.Sprintf("%s/users/%d/files?as_user_id=%d", c.baseURL, req.UserID, req.UserID)

	form := url.Values{
		"url":                {req.SourceURL},
		"name":               {req.DisplayName},
		"parent_folder_path": {req.FolderPath},
	}
	if req.SizeHint > 0 {
		form.Set("size", strconv.FormatInt(req.SizeHint, 10))
	}
	if req.ContentTypeHint != "" {
		form.Set("content_type", req.ContentTypeHint)
	}

	upload, err := c.postForm(ctx, endpoint, form, true)
	if err != nil {
		return nil, err
	}

	if upload.UploadURL == "" {
		return upload, nil
	}

	// Step 2: delegation POST. The delegation host is not the Canvas API, so
	// no bearer token is sent.
	delegForm := url.Values{}
	for k, v := range upload.UploadParams {
		delegForm.Set(k, fmt.Sprint(v))
	}

	dreq, err := http.NewRequestWithContext(ctx, http.MethodPost, upload.UploadURL, strings.NewReader(delegForm.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building delegation request: %w", err)
	}
	dreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	dresp, err := c.client.Do(dreq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer dresp.Body.Close()

	if dresp.StatusCode == http.StatusBadGateway {
		return nil, fmt.Errorf("%w: status %d", ErrUploadDelegation, dresp.StatusCode)
	}

	var deleg UploadResponse
	if err := json.NewDecoder(dresp.Body).Decode(&deleg); err != nil {
		// The delegation response only matters when it carries an error;
		// the progress URL from step 1 is what the caller needs.
		return upload, nil
	}
	if deleg.Error != "" {
		return &deleg, nil
	}
	return upload, nil
}

// GetProgress fetches the progress resource behind an absolute progress URL.
func (c *HTTPClient) GetProgress(ctx context.Context, progressURL string) (*Progress, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, progressURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d fetching progress", ErrCanvasStatus, resp.StatusCode)
	}

	var p Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding progress response: %w", err)
	}
	return &p, nil
}

// GetFile fetches a single file descriptor by id.
func (c *HTTPClient) GetFile(ctx context.Context, fileID int64) (*File, error) {
	u := fmt.Sprintf("%s/files/%d", c.baseURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d fetching file %d", ErrCanvasStatus, resp.StatusCode, fileID)
	}

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding file response: %w", err)
	}
	return &f, nil
}

// GetQuota fetches the user's total and used storage quota, masquerading as
// the user.
func (c *HTTPClient) GetQuota(ctx context.Context, userID int64) (*Quota, error) {
	u := fmt.Sprintf("%s/users/%d/files/quota?as_user_id=%d", c.baseURL, userID, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d fetching quota", ErrCanvasStatus, resp.StatusCode)
	}

	var q Quota
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("decoding quota response: %w", err)
	}
	return &q, nil
}

func (c *HTTPClient) postForm(ctx context.Context, endpoint string, form url.Values, decodeAnyStatus bool) (*UploadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if !decodeAnyStatus && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCanvasStatus, resp.StatusCode)
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
}

// nextLink extracts the rel="next" target from a Canvas Link header, or ""
// when there is no further page.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, attr := range section[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCanvasTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrCanvasTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrCanvasUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrCanvasUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
