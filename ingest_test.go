package axiom

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-sauer/axiom-go/model"
)

func TestIngestQuery(t *testing.T) {
	tests := []struct {
		name     string
		opts     *model.IngestOptions
		expected url.Values
	}{
		{name: "no options", opts: nil, expected: url.Values{}},
		{name: "empty options", opts: &model.IngestOptions{}, expected: url.Values{}},
		{
			name:     "timestamp field only",
			opts:     &model.IngestOptions{TimestampField: "ts"},
			expected: url.Values{"timestamp-field": {"ts"}},
		},
		{
			name: "all options",
			opts: &model.IngestOptions{
				TimestampField:  "ts",
				TimestampFormat: "2006-01-02",
				CSVDelimiter:    ";",
			},
			expected: url.Values{
				"timestamp-field":  {"ts"},
				"timestamp-format": {"2006-01-02"},
				"csv-delimiter":    {";"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(ingestQuery(tt.opts))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestIngestRequest(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "logs"})
	require.NoError(t, err)

	opts := model.NewIngestOptionsBuilder().
		WithTimestampField("ts").
		Build()
	status, err := client.Ingest(ctx, "logs",
		strings.NewReader(`{"ts":"2024-05-01T12:00:00Z","level":"info"}`),
		model.ContentTypeJSON, model.ContentEncodingIdentity, &opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.Ingested)

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/v1/datasets/logs/ingest", last.Path)
	assert.Equal(t, "timestamp-field=ts", last.RawQuery)
	assert.Equal(t, "application/json", last.Header.Get("Content-Type"))
	_, hasEncoding := last.Header["Content-Encoding"]
	assert.False(t, hasEncoding)

	info, err := client.Info(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), info.MaxTime)
}

func TestIngestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)

	_, err := client.Ingest(ctx, "logs", strings.NewReader("{}"),
		model.ContentType(42), model.ContentEncodingIdentity, nil)
	assert.ErrorIs(t, err, model.ErrInvalidContentType)

	_, err = client.Ingest(ctx, "logs", strings.NewReader("{}"),
		model.ContentTypeJSON, model.ContentEncoding(42), nil)
	assert.ErrorIs(t, err, model.ErrInvalidContentEncoding)

	assert.Empty(t, server.Requests())
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestIngestClosesPayloadOnArgumentError(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	payload := &closeRecorder{Reader: strings.NewReader("{}")}
	_, err := client.Ingest(ctx, "logs", payload, model.ContentType(42), model.ContentEncodingIdentity, nil)
	assert.ErrorIs(t, err, model.ErrInvalidContentType)
	assert.True(t, payload.closed)

	payload = &closeRecorder{Reader: strings.NewReader("{}")}
	_, err = client.Ingest(ctx, "logs", payload, model.ContentTypeJSON, model.ContentEncoding(42), nil)
	assert.ErrorIs(t, err, model.ErrInvalidContentEncoding)
	assert.True(t, payload.closed)
}

func TestIngestStopsEncoderOnArgumentError(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	payload := strings.Repeat("x", 64*1024)

	before := runtime.NumGoroutine()
	for range 20 {
		body, err := GzipEncoder()(strings.NewReader(payload))
		require.NoError(t, err)
		_, err = client.Ingest(ctx, "logs", body, model.ContentType(42), model.ContentEncodingGzip, nil)
		require.ErrorIs(t, err, model.ErrInvalidContentType)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 5*time.Second, 10*time.Millisecond)
}

func TestIngestEncodings(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "logs"})
	require.NoError(t, err)

	payload := "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n"
	for _, enc := range []model.ContentEncoding{
		model.ContentEncodingIdentity,
		model.ContentEncodingGzip,
		model.ContentEncodingZstd,
	} {
		t.Run(enc.String(), func(t *testing.T) {
			encoder, err := EncoderFor(enc)
			require.NoError(t, err)
			body, err := encoder(strings.NewReader(payload))
			require.NoError(t, err)

			status, err := client.Ingest(ctx, "logs", body, model.ContentTypeNDJSON, enc, nil)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), status.Ingested)
			assert.NotZero(t, status.ProcessedBytes)

			last, ok := server.LastRequest()
			require.True(t, ok)
			expected, err := enc.HeaderValue()
			require.NoError(t, err)
			assert.Equal(t, expected, last.Header.Get("Content-Encoding"))
			assert.Equal(t, "application/x-ndjson", last.Header.Get("Content-Type"))
		})
	}
}

func TestIngestCSV(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "logs"})
	require.NoError(t, err)

	opts := model.NewIngestOptionsBuilder().WithCSVDelimiter(";").Build()
	status, err := client.Ingest(ctx, "logs",
		strings.NewReader("level;message\ninfo;started\nwarn;slow\n"),
		model.ContentTypeCSV, model.ContentEncodingIdentity, &opts)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Ingested)

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "csv-delimiter=%3B", last.RawQuery)
	assert.Equal(t, "text/csv", last.Header.Get("Content-Type"))

	info, err := client.Info(ctx, "logs")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), info.NumFields)
}

func TestIngestFailures(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "logs"})
	require.NoError(t, err)

	status, err := client.Ingest(ctx, "logs",
		strings.NewReader("{\"a\":1}\nnot json\n{\"_time\":\"yesterday\"}\n"),
		model.ContentTypeNDJSON, model.ContentEncodingIdentity, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.Ingested)
	assert.Equal(t, uint64(2), status.Failed)
	assert.Len(t, status.Failures, 2)
}

func TestIngestUnknownDataset(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.IngestEvents(context.Background(), "unknown", nil, map[string]any{"a": 1})
	requireStatus(t, err, 404)
}

func TestEncodeEvents(t *testing.T) {
	type event struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	e1 := event{Name: "first", Value: 1}
	e2 := map[string]any{"name": "second", "tags": []string{"a", "b"}}

	payload, err := EncodeEvents(e1, e2)
	require.NoError(t, err)

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gzr)
	require.NoError(t, err)

	line1, err := json.Marshal(e1)
	require.NoError(t, err)
	line2, err := json.Marshal(e2)
	require.NoError(t, err)
	assert.Equal(t, string(line1)+"\n"+string(line2)+"\n", string(decoded))
}

func TestEncodeEventsError(t *testing.T) {
	_, err := EncodeEvents(map[string]any{"ok": true}, make(chan int))
	assert.Error(t, err)
}

func TestIngestEvents(t *testing.T) {
	ctx := context.Background()
	client, server := newTestClient(t)
	_, err := client.Create(ctx, model.DatasetCreateRequest{Name: "logs"})
	require.NoError(t, err)

	status, err := client.IngestEvents(ctx, "logs", nil,
		map[string]any{"msg": "one"},
		map[string]any{"msg": "two"},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.Ingested)

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "application/x-ndjson", last.Header.Get("Content-Type"))
	assert.Equal(t, "gzip", last.Header.Get("Content-Encoding"))
	assert.Empty(t, last.RawQuery)

	requestsBefore := len(server.Requests())
	status, err = client.IngestEvents(ctx, "logs", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.Ingested)
	assert.Len(t, server.Requests(), requestsBefore+1)
}

func TestEncoders(t *testing.T) {
	payload := strings.Repeat("axiom datasets ", 1000)

	t.Run("gzip", func(t *testing.T) {
		r, err := GzipEncoder()(strings.NewReader(payload))
		require.NoError(t, err)
		gzr, err := gzip.NewReader(r)
		require.NoError(t, err)
		decoded, err := io.ReadAll(gzr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(decoded))
	})

	t.Run("zstd", func(t *testing.T) {
		r, err := ZstdEncoder()(strings.NewReader(payload))
		require.NoError(t, err)
		dec, err := zstd.NewReader(r)
		require.NoError(t, err)
		defer dec.Close()
		decoded, err := io.ReadAll(dec)
		require.NoError(t, err)
		assert.Equal(t, payload, string(decoded))
	})

	t.Run("invalid gzip level", func(t *testing.T) {
		_, err := GzipEncoderWithLevel(42)(strings.NewReader(payload))
		assert.Error(t, err)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := EncoderFor(model.ContentEncoding(42))
		assert.ErrorIs(t, err, model.ErrInvalidContentEncoding)
	})
}
