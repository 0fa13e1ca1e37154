// Package apiclient is a typed client for the integrity report API. It keeps
// the session tokens and transparently refreshes them once on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/integrity-report-api/internal/dto"
	"github.com/noah-isme/integrity-report-api/internal/models"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

const (
	defaultTimeout = 30 * time.Second
	refreshPath    = "/auth/refresh"
)

// Session holds the tokens issued by Login or a refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         models.UserInfo
}

// Attachment is one evidence file sent with CreateReport.
type Attachment struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Client talks to the API rooted at baseURL, e.g. http://host:8080/api/v1.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	session *Session

	// refreshMu lets one caller rotate the tokens at a time.
	refreshMu sync.Mutex
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil when logged out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// SetSession restores a previously saved session.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.session = nil
		return
	}
	copied := *s
	c.session = &copied
}

// ClearSession forgets the tokens.
func (c *Client) ClearSession() {
	c.SetSession(nil)
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.UserInfo, error) {
	payload, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/auth/login", payload, "application/json", "")
	if err != nil {
		return nil, err
	}

	var out models.LoginResponse
	if _, err := decode(resp, &out); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, appErrors.Clone(ErrInvalidCredentials, apiErr.Message)
		}
		return nil, err
	}
	c.SetSession(&Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, User: out.User})
	return &out.User, nil
}

// Logout revokes the refresh token server side and clears the session.
func (c *Client) Logout(ctx context.Context) error {
	s := c.Session()
	if s == nil {
		return nil
	}
	defer c.ClearSession()
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", models.RefreshTokenRequest{RefreshToken: s.RefreshToken}, nil, nil)
}

// ListReports returns one page of reports visible to the session user.
func (c *Client) ListReports(ctx context.Context, page, pageSize int) ([]models.Report, *models.Pagination, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var reports []models.Report
	var pagination models.Pagination
	if err := c.doJSON(ctx, http.MethodGet, "/reports?"+q.Encode(), nil, &reports, &pagination); err != nil {
		return nil, nil, err
	}
	return reports, &pagination, nil
}

// GetReport fetches one report.
func (c *Client) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, &report, nil); err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateReport submits a report with optional evidence files as multipart.
func (c *Client) CreateReport(ctx context.Context, req dto.CreateReportRequest, attachments []Attachment) (*models.Report, error) {
	payload, contentType, err := multipartReport(req, attachments)
	if err != nil {
		return nil, err
	}
	var report models.Report
	if err := c.do(ctx, http.MethodPost, "/reports", payload, contentType, &report, nil); err != nil {
		return nil, err
	}
	return &report, nil
}

// SetReportStatus moves a report to a new status.
func (c *Client) SetReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	var report models.Report
	body := dto.UpdateReportStatusRequest{Status: string(status)}
	if err := c.doJSON(ctx, http.MethodPatch, "/reports/"+url.PathEscape(id)+"/status", body, &report, nil); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListNotifications returns the session user's notifications.
func (c *Client) ListNotifications(ctx context.Context, onlyUnread bool) ([]models.Notification, error) {
	path := "/notifications"
	if onlyUnread {
		path += "?unread=true"
	}
	var items []models.Notification
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &items, nil); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := c.doJSON(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, &n, nil); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead marks every visible notification read and returns
// how many changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out dto.MarkAllReadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/notifications/read-all", nil, &out, nil); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, page, pageSize int) ([]models.User, *models.Pagination, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var users []models.User
	var pagination models.Pagination
	if err := c.doJSON(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &users, &pagination); err != nil {
		return nil, nil, err
	}
	return users, &pagination, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodPost, "/users", req, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, pagination *models.Pagination) error {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = raw
	}
	return c.do(ctx, method, path, payload, "application/json", out, pagination)
}

// do sends an authorised request. A 401 triggers exactly one refresh and one
// retry; a failed refresh clears the session.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, out interface{}, pagination *models.Pagination) error {
	sent := c.accessToken()
	resp, err := c.send(ctx, method, path, payload, contentType, sent)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.refreshAfter(ctx, sent); err != nil {
			return err
		}
		retried := c.accessToken()
		resp, err = c.send(ctx, method, path, payload, contentType, retried)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.clearIfCurrent(retried)
			return ErrSessionExpired
		}
	}

	page, err := decode(resp, out)
	if err != nil {
		return err
	}
	if pagination != nil && page != nil {
		*pagination = *page
	}
	return nil
}

// refreshAfter rotates the tokens unless another caller already replaced the
// stale access token while this one waited for the lock.
func (c *Client) refreshAfter(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if current := c.accessToken(); current != "" && current != stale {
		return nil
	}
	if err := c.refresh(ctx); err != nil {
		c.clearIfCurrent(stale)
		return err
	}
	return nil
}

func (c *Client) clearIfCurrent(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.AccessToken == token {
		c.session = nil
	}
}

func (c *Client) refresh(ctx context.Context) error {
	s := c.Session()
	if s == nil || s.RefreshToken == "" {
		return ErrSessionExpired
	}
	payload, err := json.Marshal(models.RefreshTokenRequest{RefreshToken: s.RefreshToken})
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, refreshPath, payload, "application/json", "")
	if err != nil {
		return ErrSessionExpired
	}
	var out models.RefreshTokenResponse
	if _, err := decode(resp, &out); err != nil || out.AccessToken == "" {
		return ErrSessionExpired
	}

	s.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		s.RefreshToken = out.RefreshToken
	}
	c.SetSession(s)
	return nil
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Store(fmt.Errorf("%s %s: %w", method, path, err))
	}
	return resp, nil
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decode(resp *http.Response, out interface{}) (*models.Pagination, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Store(fmt.Errorf("read response: %w", err))
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, appErrors.Store(fmt.Errorf("decode response: %w", err))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if env.Error.Message != "" {
				apiErr.Message = env.Error.Message
			}
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, appErrors.Store(fmt.Errorf("decode data: %w", err))
		}
	}
	return env.Pagination, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func multipartReport(req dto.CreateReportRequest, attachments []Attachment) ([]byte, string, error) {
	report, err := json.Marshal(req)
	if err != nil {
		return nil, "", fmt.Errorf("encode report: %w", err)
	}
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("report", string(report)); err != nil {
		return nil, "", err
	}
	for _, att := range attachments {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachments"; filename=%q`, att.Name))
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if att.Content != nil {
			if _, err := io.Copy(part, att.Content); err != nil {
				return nil, "", fmt.Errorf("read attachment %s: %w", att.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
