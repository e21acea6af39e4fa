package collab

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

	"github.com/lucasnoah/hirepipe/internal/pipeline"
)

// Client implements Actions over a collaborator's REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client. timeout <= 0 leaves the HTTP client without a
// deadline.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type stageRequest struct {
	StageID *int   `json:"stage_id"`
	Notes   string `json:"notes,omitempty"`
}

type emailRequest struct {
	TemplateID int `json:"template_id"`
}

type invitationRequest struct {
	FormID        int    `json:"form_id"`
	CustomMessage string `json:"custom_message,omitempty"`
}

type statusRequest struct {
	Status pipeline.Status `json:"status"`
	Notes  string          `json:"notes,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) ListStages(ctx context.Context) ([]pipeline.Stage, error) {
	var out []pipeline.Stage
	if err := c.do(ctx, http.MethodGet, "/api/pipeline-stages", nil, &out); err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return out, nil
}

func (c *Client) ListApplications(ctx context.Context) ([]pipeline.Application, error) {
	var out []pipeline.Application
	if err := c.do(ctx, http.MethodGet, "/api/applications", nil, &out); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

func (c *Client) MoveStage(ctx context.Context, appID, stageID int, notes string) (*pipeline.Application, error) {
	var out pipeline.Application
	body := stageRequest{StageID: pipeline.StagePtr(stageID), Notes: notes}
	if err := c.do(ctx, http.MethodPatch, appPath(appID, "stage"), body, &out); err != nil {
		return nil, fmt.Errorf("move application %d: %w", appID, err)
	}
	return &out, nil
}

func (c *Client) SendEmail(ctx context.Context, appID, templateID int) (*Receipt, error) {
	var out Receipt
	if err := c.do(ctx, http.MethodPost, appPath(appID, "emails"), emailRequest{TemplateID: templateID}, &out); err != nil {
		return nil, fmt.Errorf("email application %d: %w", appID, err)
	}
	return &out, nil
}

func (c *Client) SendFormInvitation(ctx context.Context, appID, formID int, customMessage string) (*Invitation, error) {
	var out Invitation
	body := invitationRequest{FormID: formID, CustomMessage: customMessage}
	if err := c.do(ctx, http.MethodPost, appPath(appID, "form-invitations"), body, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusConflict {
			return nil, fmt.Errorf("invite application %d: %w: %w", appID, ErrDuplicateInvitation, err)
		}
		return nil, fmt.Errorf("invite application %d: %w", appID, err)
	}
	return &out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, appID int, status pipeline.Status, notes string) (*pipeline.Application, error) {
	var out pipeline.Application
	if err := c.do(ctx, http.MethodPatch, appPath(appID, "status"), statusRequest{Status: status, Notes: notes}, &out); err != nil {
		return nil, fmt.Errorf("update application %d status: %w", appID, err)
	}
	return &out, nil
}

func (c *Client) ScheduleInterviewBatch(ctx context.Context, req InterviewBatchRequest) (*InterviewBatchResult, error) {
	var out InterviewBatchResult
	if err := c.do(ctx, http.MethodPost, "/api/interviews/batch", req, &out); err != nil {
		return nil, fmt.Errorf("schedule interviews: %w", err)
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, appID int) ([]pipeline.StageTransition, error) {
	var out []pipeline.StageTransition
	if err := c.do(ctx, http.MethodGet, appPath(appID, "history"), nil, &out); err != nil {
		return nil, fmt.Errorf("history of application %d: %w", appID, err)
	}
	return out, nil
}

func appPath(id int, suffix string) string {
	return fmt.Sprintf("/api/applications/%d/%s", id, url.PathEscape(suffix))
}

// do sends a JSON request and decodes a JSON response into out. Non-2xx
// responses become *StatusError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			se.Message = eb.Error
		} else {
			se.Message = strings.TrimSpace(string(data))
		}
		return se
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
