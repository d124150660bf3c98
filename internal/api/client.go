package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ticketd/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "TICKETD_HTTP_TIMEOUT"
	apiTokenEnvKey     = "TICKETD_API_TOKEN"
	adminTokenEnvKey   = "TICKETD_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the ticketd API.
type Client struct {
	baseURL    string
	http       *http.Client
	authToken  string
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/info", nil, nil, &resp)
	return resp, err
}

// UpdateStatus moves a ticket through the status workflow.
func (c *Client) UpdateStatus(ctx context.Context, id string, req StatusUpdateRequest) (models.Ticket, error) {
	var resp models.Ticket
	err := c.do(ctx, http.MethodPatch, ticketPath(id)+"/status", nil, req, &resp)
	return resp, err
}

func (c *Client) CreateTicket(ctx context.Context, req TicketCreateRequest) (models.Ticket, error) {
	var resp models.Ticket
	err := c.do(ctx, http.MethodPost, "/tickets", nil, req, &resp)
	return resp, err
}

func (c *Client) GetTicket(ctx context.Context, id string) (TicketDetailResponse, error) {
	var resp TicketDetailResponse
	err := c.do(ctx, http.MethodGet, ticketPath(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) UpdateTicket(ctx context.Context, id string, req TicketUpdateRequest) (models.Ticket, error) {
	var resp models.Ticket
	err := c.do(ctx, http.MethodPatch, ticketPath(id), nil, req, &resp)
	return resp, err
}

func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, ticketPath(id), nil, nil, nil)
}

func (c *Client) ListTickets(ctx context.Context, query url.Values) ([]models.Ticket, error) {
	var resp []models.Ticket
	err := c.do(ctx, http.MethodGet, "/tickets", query, nil, &resp)
	return resp, err
}

func (c *Client) SetSubtasks(ctx context.Context, id string, req SubtasksRequest) (models.Ticket, error) {
	var resp models.Ticket
	err := c.do(ctx, http.MethodPut, ticketPath(id)+"/subtasks", nil, req, &resp)
	return resp, err
}

func (c *Client) ListActivity(ctx context.Context, id string) ([]models.Activity, error) {
	var resp []models.Activity
	err := c.do(ctx, http.MethodGet, ticketPath(id)+"/activity", nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateProject(ctx context.Context, req ProjectCreateRequest) (models.Project, error) {
	var resp models.Project
	err := c.do(ctx, http.MethodPost, "/projects", nil, req, &resp)
	return resp, err
}

func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var resp []models.Project
	err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &resp)
	return resp, err
}

func (c *Client) AddMember(ctx context.Context, projectID string, req MemberAddRequest) (models.Member, error) {
	var resp models.Member
	err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/members", nil, req, &resp)
	return resp, err
}

func (c *Client) ListMembers(ctx context.Context, projectID string) ([]models.Member, error) {
	var resp []models.Member
	err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/members", nil, nil, &resp)
	return resp, err
}

// Reconcile asks the server to recompute blockedBy everywhere.
func (c *Client) Reconcile(ctx context.Context) (ReconcileResponse, error) {
	var resp ReconcileResponse
	err := c.do(ctx, http.MethodPost, "/admin/reconcile", nil, nil, &resp)
	return resp, err
}

func ticketPath(id string) string {
	return "/tickets/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)
	if strings.HasPrefix(path, "/admin/") {
		c.setAdminHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		message := errResp.Message
		if message == "" {
			message = errResp.Error
		}
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   message,
			Blockers:  errResp.Blockers,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
