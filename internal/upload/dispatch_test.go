package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/calstateteach/canvas-upload-service/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDispatch_Accepted(t *testing.T) {
	var got models.Params
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	d := NewHTTPDispatcher(ts.URL, 5*time.Second)
	err := d.Dispatch(context.Background(), models.Params{
		"progress_url": "https://canvas.test/api/v1/progress/1",
		"status_flag":  2,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://canvas.test/api/v1/progress/1", got["progress_url"])
	assert.Equal(t, float64(2), got["status_flag"])
}

func TestHTTPDispatch_BadStatusIsRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	d := NewHTTPDispatcher(ts.URL, time.Second)
	err := d.Dispatch(context.Background(), models.Params{})

	assert.ErrorIs(t, err, ErrDispatchRejected)
}

func TestHTTPDispatch_FunctionErrorHeaderIsRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Function-Error", "Unhandled")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	d := NewHTTPDispatcher(ts.URL, time.Second)
	err := d.Dispatch(context.Background(), models.Params{})

	require.ErrorIs(t, err, ErrDispatchRejected)
	assert.Contains(t, err.Error(), "X-Function-Error")
}

func TestHTTPDispatch_UnreachableTargetIsRejected(t *testing.T) {
	d := NewHTTPDispatcher("http://127.0.0.1:1/poll", 100*time.Millisecond)
	err := d.Dispatch(context.Background(), models.Params{})
	assert.ErrorIs(t, err, ErrDispatchRejected)
}

func TestLocalDispatch_RunsPollerInBackground(t *testing.T) {
	c := &mockCanvas{
		progress: []*canvas.Progress{
			{WorkflowState: canvas.StateCompleted, Results: &canvas.ProgressResults{ID: 7}},
		},
		file: &canvas.File{ID: 7, DisplayName: "clip.mp4"},
	}
	rep := &recordReporter{}
	d := NewLocalDispatcher(NewPoller(c, rep, time.Millisecond, 20*time.Millisecond))

	err := d.Dispatch(context.Background(), models.Params{
		"progress_url": "https://canvas.test/api/v1/progress/7",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rep.calls() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int(models.FlagReady), rep.last()["status_flag"])
}

func TestLocalDispatch_SurvivesPollPanic(t *testing.T) {
	rep := &recordReporter{}
	// A nil canvas client makes the poll panic once it dereferences it.
	d := NewLocalDispatcher(NewPoller(nil, rep, time.Millisecond, 20*time.Millisecond))

	err := d.Dispatch(context.Background(), models.Params{
		"progress_url": "https://canvas.test/api/v1/progress/7",
	})
	require.NoError(t, err)

	// The panic is reported via the poll boundary and absorbed by the
	// dispatcher goroutine's recover.
	require.Eventually(t, func() bool { return rep.calls() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, int(models.FlagError), rep.last()["status_flag"])
}
