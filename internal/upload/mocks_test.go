package upload

import (
	"context"
	"sync"

	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/calstateteach/canvas-upload-service/pkg/models"
)

// --- Mock Canvas Client ---

type mockCanvas struct {
	mu sync.Mutex

	users     []canvas.User
	searchErr error

	uploadResp *canvas.UploadResponse
	uploadErr  error
	uploadReqs []canvas.UploadRequest

	// progress responses are consumed in order; the last one repeats.
	progress      []*canvas.Progress
	progressErr   error
	progressCalls int

	file    *canvas.File
	fileErr error

	quota    *canvas.Quota
	quotaErr error
}

func (m *mockCanvas) SearchUsers(_ context.Context, _ string) ([]canvas.User, error) {
	return m.users, m.searchErr
}

func (m *mockCanvas) InitiateURLUpload(_ context.Context, req canvas.UploadRequest) (*canvas.UploadResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadReqs = append(m.uploadReqs, req)
	return m.uploadResp, m.uploadErr
}

func (m *mockCanvas) GetProgress(_ context.Context, _ string) (*canvas.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progressErr != nil {
		return nil, m.progressErr
	}
	if len(m.progress) == 0 {
		return &canvas.Progress{}, nil
	}
	i := m.progressCalls
	m.progressCalls++
	if i >= len(m.progress) {
		i = len(m.progress) - 1
	}
	return m.progress[i], nil
}

func (m *mockCanvas) GetFile(_ context.Context, _ int64) (*canvas.File, error) {
	return m.file, m.fileErr
}

func (m *mockCanvas) GetQuota(_ context.Context, _ int64) (*canvas.Quota, error) {
	return m.quota, m.quotaErr
}

var _ canvas.Client = (*mockCanvas)(nil)

// --- Recording Reporter ---

type recordReporter struct {
	mu      sync.Mutex
	urls    []string
	results []models.Params
}

func (r *recordReporter) Report(_ context.Context, callbackURL string, result models.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, callbackURL)
	r.results = append(r.results, result)
}

func (r *recordReporter) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recordReporter) last() models.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil
	}
	return r.results[len(r.results)-1]
}

var _ Reporter = (*recordReporter)(nil)

// --- Mock Dispatcher ---

type mockDispatcher struct {
	mu       sync.Mutex
	err      error
	payloads []models.Params
}

func (d *mockDispatcher) Dispatch(_ context.Context, params models.Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, params)
	return d.err
}

var _ Dispatcher = (*mockDispatcher)(nil)
