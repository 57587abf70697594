package canvas_test

import (
	"context"
	"errors"
	"testing"

	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Client ---

type mockClient struct {
	users     []canvas.User
	searchErr error
	quota     *canvas.Quota
	quotaErr  error
}

func (m *mockClient) SearchUsers(_ context.Context, _ string) ([]canvas.User, error) {
	return m.users, m.searchErr
}
func (m *mockClient) InitiateURLUpload(_ context.Context, _ canvas.UploadRequest) (*canvas.UploadResponse, error) {
	return nil, errors.New("not implemented")
}
func (m *mockClient) GetProgress(_ context.Context, _ string) (*canvas.Progress, error) {
	return nil, errors.New("not implemented")
}
func (m *mockClient) GetFile(_ context.Context, _ int64) (*canvas.File, error) {
	return nil, errors.New("not implemented")
}
func (m *mockClient) GetQuota(_ context.Context, _ int64) (*canvas.Quota, error) {
	return m.quota, m.quotaErr
}

func TestResolveUserID_ExactMatch(t *testing.T) {
	c := &mockClient{users: []canvas.User{
		{ID: 1, LoginID: "other@b.com"},
		{ID: 2, LoginID: "a@b.com"},
	}}

	id, err := canvas.ResolveUserID(context.Background(), c, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestResolveUserID_PartialMatchIsNotEnough(t *testing.T) {
	// The search API returns case-insensitive and substring matches; a single
	// result still does not count unless the login matches exactly.
	c := &mockClient{users: []canvas.User{
		{ID: 1, LoginID: "A@B.com"},
	}}

	_, err := canvas.ResolveUserID(context.Background(), c, "a@b.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, canvas.ErrUserNotFound)
}

func TestResolveUserID_NoResults(t *testing.T) {
	c := &mockClient{}

	_, err := canvas.ResolveUserID(context.Background(), c, "nobody@b.com")
	assert.ErrorIs(t, err, canvas.ErrUserNotFound)
}

func TestResolveUserID_SearchFailure(t *testing.T) {
	c := &mockClient{searchErr: canvas.ErrCanvasUnreachable}

	_, err := canvas.ResolveUserID(context.Background(), c, "a@b.com")
	assert.ErrorIs(t, err, canvas.ErrCanvasUnreachable)
}

func TestIsQuotaExceededMessage(t *testing.T) {
	assert.True(t, canvas.IsQuotaExceededMessage("file size exceeds quota"))
	assert.True(t, canvas.IsQuotaExceededMessage("file size exceeds quota limits for this account"))
	assert.False(t, canvas.IsQuotaExceededMessage("unauthorized"))
	assert.False(t, canvas.IsQuotaExceededMessage(""))
}

func TestQuotaExceededMessage(t *testing.T) {
	c := &mockClient{quota: &canvas.Quota{Quota: 52428800, QuotaUsed: 51200000}}

	msg := canvas.QuotaExceededMessage(context.Background(), c, 654)
	assert.Equal(t, "File size exceeds quota. Quota: 52428800 bytes. Quota used: 51200000 bytes.", msg)
}

func TestQuotaExceededMessage_LookupFails(t *testing.T) {
	c := &mockClient{quotaErr: canvas.ErrCanvasUnreachable}

	msg := canvas.QuotaExceededMessage(context.Background(), c, 654)
	assert.Equal(t, "File size exceeds quota.", msg)
}
