package axiom

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-sauer/axiom-go/internal/axiomtest"
	"github.com/j-sauer/axiom-go/model"
)

func newTestClient(t *testing.T) (*Client, *axiomtest.Server) {
	t.Helper()
	server := axiomtest.NewServer(t)
	client, err := NewClient(ClientOptions{
		URL:         server.URL,
		AccessToken: "xaat-test",
		OrgID:       "test-org",
		Env:         envOf(nil),
	})
	require.NoError(t, err)
	return client, server
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected an APIError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
}

func TestDatasetLifecycle(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)

	created, err := client.Create(ctx, model.DatasetCreateRequest{Name: "ds1", Description: "first"})
	require.NoError(t, err)
	assert.Equal(t, "ds1", created.Name)
	assert.Equal(t, "first", created.Description)

	got, err := client.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	list, err := client.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, created)

	status, err := client.Ingest(ctx, created.ID,
		strings.NewReader(`[{"foo":"bar"},{"bar":"baz"}]`),
		model.ContentTypeJSON, model.ContentEncodingIdentity, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Ingested)
	assert.Equal(t, uint64(0), status.Failed)
	assert.Empty(t, status.Failures)
	assert.Equal(t, uint32(1), status.BlocksCreated)

	info, err := client.Info(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.NumEvents)
	assert.Equal(t, uint32(2), info.NumFields)

	require.NoError(t, client.Delete(ctx, created.ID))
	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodDelete, last.Method)

	_, err = client.Get(ctx, created.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestCreateConflict(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "dup"})
	require.NoError(t, err)

	_, err = client.Create(ctx, model.DatasetCreateRequest{Name: "dup"})
	requireStatus(t, err, http.StatusConflict)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "already exists")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "ds1", Description: "old"})
	require.NoError(t, err)

	updated, err := client.Update(ctx, "ds1", model.DatasetUpdateRequest{Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Description)

	got, err := client.Get(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Description)

	_, err = client.Update(ctx, "unknown", model.DatasetUpdateRequest{Description: "new"})
	requireStatus(t, err, http.StatusNotFound)
}

func TestUpdateField(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "ds1"})
	require.NoError(t, err)
	_, err = client.IngestEvents(ctx, "ds1", nil, map[string]any{"duration": 12, "path": "/"})
	require.NoError(t, err)

	field, err := client.UpdateField(ctx, "ds1", "duration", model.FieldUpdateRequest{
		Description: "request duration",
		Unit:        "ms",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Field{
		Name:        "duration",
		Description: "request duration",
		Type:        "integer",
		Unit:        "ms",
	}, field)

	info, err := client.Info(ctx, "ds1")
	require.NoError(t, err)
	assert.Contains(t, info.Fields, field)

	_, err = client.UpdateField(ctx, "ds1", "unknown", model.FieldUpdateRequest{})
	requireStatus(t, err, http.StatusNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	for _, name := range []string{"a", "b"} {
		_, err := client.Create(ctx, model.DatasetCreateRequest{Name: name})
		require.NoError(t, err)
	}
	_, err := client.IngestEvents(ctx, "a", nil, map[string]any{"n": 1}, map[string]any{"n": 2})
	require.NoError(t, err)
	_, err = client.IngestEvents(ctx, "b", nil, map[string]any{"n": 3})
	require.NoError(t, err)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Datasets, 2)
	assert.Equal(t, uint64(3), stats.NumEvents)
	assert.Equal(t, uint64(2), stats.NumBlocks)
	assert.NotEmpty(t, stats.InputBytesHuman)
}

func TestTrim(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	server.SetNow(func() time.Time { return now })

	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "ds1"})
	require.NoError(t, err)
	_, err = client.IngestEvents(ctx, "ds1", nil, map[string]any{"_time": now.Add(-2 * time.Hour).Format(time.RFC3339)})
	require.NoError(t, err)
	_, err = client.IngestEvents(ctx, "ds1", nil, map[string]any{"_time": now.Format(time.RFC3339)})
	require.NoError(t, err)

	result, err := client.Trim(ctx, "ds1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BlocksDeleted)

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/v1/datasets/ds1/trim", last.Path)

	info, err := client.Info(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.NumEvents)

	requestsBefore := len(server.Requests())
	_, err = client.Trim(ctx, "ds1", -time.Second)
	assert.ErrorIs(t, err, model.ErrInvalidDuration)
	assert.Len(t, server.Requests(), requestsBefore)
}

func TestDatasetPathEscaping(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)

	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "my ds"})
	require.NoError(t, err)

	_, err = client.Get(ctx, "my ds")
	require.NoError(t, err)

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/v1/datasets/my%20ds", last.Path)

	assert.Equal(t, "/datasets/a%2Fb/fields/x%20y", datasetPath("a/b", "fields", "x y"))
}

func TestRequestHeaders(t *testing.T) {
	ctx := context.Background()
	server := axiomtest.NewServer(t)

	tests := []struct {
		name  string
		token string
		orgID string
	}{
		{name: "api token", token: "xaat-1", orgID: "org"},
		{name: "ingest token", token: "xait-1", orgID: ""},
		{name: "personal token", token: "xapt-1", orgID: "org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(ClientOptions{
				URL:         server.URL,
				AccessToken: tt.token,
				OrgID:       "org",
				Env:         envOf(nil),
			})
			require.NoError(t, err)

			_, err = client.List(ctx)
			require.NoError(t, err)

			last, ok := server.LastRequest()
			require.True(t, ok)
			assert.Equal(t, "Bearer "+tt.token, last.Header.Get("Authorization"))
			assert.Equal(t, model.UserAgent(), last.Header.Get("User-Agent"))
			assert.Equal(t, tt.orgID, last.Header.Get("X-Axiom-Org-Id"))
		})
	}
}
