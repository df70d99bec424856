package anticaptcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveImage_PollsUntilReady(t *testing.T) {
	polls := 0
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			var req createTaskRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-key", req.ClientKey)
			assert.Equal(t, "ImageToTextTask", req.Task.Type)
			gotBody = req.Task.Body
			_ = json.NewEncoder(w).Encode(createTaskResponse{TaskID: 42})
		case "/getTaskResult":
			var req taskResultRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(42), req.TaskID)
			polls++
			resp := taskResultResponse{Status: "processing"}
			if polls >= 2 {
				resp.Status = "ready"
				resp.Solution.Text = "xk29a"
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	text, err := c.SolveImage(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "xk29a", text)
	assert.Equal(t, 2, polls)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), gotBody)
}

func TestSolveImage_EmptySolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			_ = json.NewEncoder(w).Encode(createTaskResponse{TaskID: 7})
		case "/getTaskResult":
			_ = json.NewEncoder(w).Encode(taskResultResponse{Status: "ready"})
		}
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	_, err := c.SolveImage(context.Background(), []byte("x"))
	assert.True(t, eris.Is(err, ErrNoSolution))
}

func TestSolveImage_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(createTaskResponse{
			ErrorID:          1,
			ErrorCode:        "ERROR_KEY_DOES_NOT_EXIST",
			ErrorDescription: "Account authorization key not found",
		})
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL), WithPollInterval(time.Millisecond))

	_, err := c.SolveImage(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERROR_KEY_DOES_NOT_EXIST")
}

func TestSolveImage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/createTask":
			_ = json.NewEncoder(w).Encode(createTaskResponse{TaskID: 1})
		case "/getTaskResult":
			_ = json.NewEncoder(w).Encode(taskResultResponse{Status: "processing"})
		}
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithPollInterval(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.SolveImage(ctx, []byte("x"))
	assert.Error(t, err)
}
