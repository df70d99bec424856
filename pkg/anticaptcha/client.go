// Package anticaptcha provides a client for the anti-captcha.com
// image-to-text API, used as an alternative captcha recognition backend.
package anticaptcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoSolution is returned when the service completes the task without a
// usable text solution.
var ErrNoSolution = eris.New("anticaptcha: no solution")

// Client defines the image-to-text operation.
type Client interface {
	// SolveImage submits the image and polls until the service returns the
	// recognized text.
	SolveImage(ctx context.Context, image []byte) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithPollInterval sets the result polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *httpClient) {
		c.pollInterval = d
	}
}

// NewClient creates an anti-captcha client with the given API key.
func NewClient(key string, opts ...Option) Client {
	c := &httpClient{
		key:          key,
		baseURL:      "https://api.anti-captcha.com",
		pollInterval: 3 * time.Second,
		maxPolls:     20,
		hc:           &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type httpClient struct {
	key          string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	hc           *http.Client
}

type createTaskRequest struct {
	ClientKey string    `json:"clientKey"`
	Task      imageTask `json:"task"`
}

type imageTask struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int64  `json:"taskId"`
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		Text string `json:"text"`
	} `json:"solution"`
}

func (c *httpClient) SolveImage(ctx context.Context, image []byte) (string, error) {
	taskID, err := c.createTask(ctx, image)
	if err != nil {
		return "", err
	}

	for poll := 0; poll < c.maxPolls; poll++ {
		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", eris.Wrap(ctx.Err(), "anticaptcha: poll cancelled")
		case <-timer.C:
		}

		result, pollErr := c.taskResult(ctx, taskID)
		if pollErr != nil {
			return "", pollErr
		}
		if result.Status != "ready" {
			continue
		}
		if result.Solution.Text == "" {
			return "", ErrNoSolution
		}
		return result.Solution.Text, nil
	}

	return "", eris.Errorf("anticaptcha: task %d not ready after %d polls", taskID, c.maxPolls)
}

func (c *httpClient) createTask(ctx context.Context, image []byte) (int64, error) {
	req := createTaskRequest{
		ClientKey: c.key,
		Task: imageTask{
			Type: "ImageToTextTask",
			Body: base64.StdEncoding.EncodeToString(image),
		},
	}

	var resp createTaskResponse
	if err := c.post(ctx, "/createTask", req, &resp); err != nil {
		return 0, err
	}
	if resp.ErrorID != 0 {
		return 0, eris.Errorf("anticaptcha: createTask failed: %s (%s)", resp.ErrorDescription, resp.ErrorCode)
	}
	return resp.TaskID, nil
}

func (c *httpClient) taskResult(ctx context.Context, taskID int64) (*taskResultResponse, error) {
	req := taskResultRequest{ClientKey: c.key, TaskID: taskID}

	var resp taskResultResponse
	if err := c.post(ctx, "/getTaskResult", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorID != 0 {
		return nil, eris.Errorf("anticaptcha: getTaskResult failed: %s (%s)", resp.ErrorDescription, resp.ErrorCode)
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "anticaptcha: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "anticaptcha: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return eris.Wrapf(err, "anticaptcha: POST %s", path)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("anticaptcha: POST %s returned status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "anticaptcha: read %s response", path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "anticaptcha: decode %s response", path)
	}
	return nil
}
