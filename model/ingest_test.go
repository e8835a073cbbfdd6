package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeHeaderValue(t *testing.T) {
	tests := []struct {
		contentType ContentType
		expected    string
	}{
		{ContentTypeJSON, "application/json"},
		{ContentTypeNDJSON, "application/x-ndjson"},
		{ContentTypeCSV, "text/csv"},
	}
	for _, tt := range tests {
		t.Run(tt.contentType.String(), func(t *testing.T) {
			value, err := tt.contentType.HeaderValue()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	_, err := ContentType(7).HeaderValue()
	assert.ErrorIs(t, err, ErrInvalidContentType)
}

func TestContentEncodingHeaderValue(t *testing.T) {
	tests := []struct {
		encoding ContentEncoding
		expected string
	}{
		{ContentEncodingIdentity, ""},
		{ContentEncodingGzip, "gzip"},
		{ContentEncodingZstd, "zstd"},
	}
	for _, tt := range tests {
		t.Run(tt.encoding.String(), func(t *testing.T) {
			value, err := tt.encoding.HeaderValue()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	_, err := ContentEncoding(-1).HeaderValue()
	assert.ErrorIs(t, err, ErrInvalidContentEncoding)
}

func TestParseContentTypeAndEncoding(t *testing.T) {
	typ, err := ParseContentType("csv")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeCSV, typ)

	_, err = ParseContentType("xml")
	assert.ErrorIs(t, err, ErrInvalidContentType)

	enc, err := ParseContentEncoding("zstd")
	require.NoError(t, err)
	assert.Equal(t, ContentEncodingZstd, enc)

	enc, err = ParseContentEncoding("")
	require.NoError(t, err)
	assert.Equal(t, ContentEncodingIdentity, enc)

	_, err = ParseContentEncoding("br")
	assert.ErrorIs(t, err, ErrInvalidContentEncoding)
}

func TestIngestOptionsBuilder(t *testing.T) {
	opts := NewIngestOptionsBuilder().
		WithTimestampField("ts").
		WithTimestampFormat("2006-01-02").
		WithCSVDelimiter(";").
		Build()

	assert.Equal(t, IngestOptions{
		TimestampField:  "ts",
		TimestampFormat: "2006-01-02",
		CSVDelimiter:    ";",
	}, opts)
	assert.Equal(t, IngestOptions{}, NewIngestOptionsBuilder().Build())
}

func TestIngestStatusDeserialization(t *testing.T) {
	data := `{
		"ingested": 2,
		"failed": 1,
		"failures": [{"timestamp": "2024-01-02T03:04:05Z", "error": "invalid json"}],
		"processedBytes": 630,
		"blocksCreated": 1,
		"walLength": 3
	}`

	var status IngestStatus
	require.NoError(t, json.Unmarshal([]byte(data), &status))
	assert.Equal(t, uint64(2), status.Ingested)
	assert.Equal(t, uint64(1), status.Failed)
	require.Len(t, status.Failures, 1)
	assert.Equal(t, "invalid json", status.Failures[0].Error)
	assert.Equal(t, 2024, status.Failures[0].Timestamp.Year())
	assert.Equal(t, uint64(630), status.ProcessedBytes)
	assert.Equal(t, uint32(1), status.BlocksCreated)
	assert.Equal(t, uint32(3), status.WALLength)
}
