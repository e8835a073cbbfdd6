package model

import (
	"fmt"
	"time"
)

// ContentType describes the format of an ingested payload.
type ContentType int

const (
	// ContentTypeJSON is a JSON array or a single JSON object.
	ContentTypeJSON ContentType = iota
	// ContentTypeNDJSON is newline delimited JSON.
	ContentTypeNDJSON
	// ContentTypeCSV is comma separated values with a header line.
	ContentTypeCSV
)

// HeaderValue returns the value of the Content-Type header.
func (c ContentType) HeaderValue() (string, error) {
	switch c {
	case ContentTypeJSON:
		return "application/json", nil
	case ContentTypeNDJSON:
		return "application/x-ndjson", nil
	case ContentTypeCSV:
		return "text/csv", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidContentType, int(c))
	}
}

func (c ContentType) String() string {
	switch c {
	case ContentTypeJSON:
		return "json"
	case ContentTypeNDJSON:
		return "ndjson"
	case ContentTypeCSV:
		return "csv"
	default:
		return fmt.Sprintf("ContentType(%d)", int(c))
	}
}

// ParseContentType parses the short name of a content type ("json", "ndjson", "csv").
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "json":
		return ContentTypeJSON, nil
	case "ndjson":
		return ContentTypeNDJSON, nil
	case "csv":
		return ContentTypeCSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidContentType, s)
	}
}

// ContentEncoding describes the compression of an ingested payload.
type ContentEncoding int

const (
	ContentEncodingIdentity ContentEncoding = iota
	ContentEncodingGzip
	ContentEncodingZstd
)

// HeaderValue returns the value of the Content-Encoding header. It is empty
// for the identity encoding, in which case no header is sent.
func (e ContentEncoding) HeaderValue() (string, error) {
	switch e {
	case ContentEncodingIdentity:
		return "", nil
	case ContentEncodingGzip:
		return "gzip", nil
	case ContentEncodingZstd:
		return "zstd", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidContentEncoding, int(e))
	}
}

func (e ContentEncoding) String() string {
	switch e {
	case ContentEncodingIdentity:
		return "identity"
	case ContentEncodingGzip:
		return "gzip"
	case ContentEncodingZstd:
		return "zstd"
	default:
		return fmt.Sprintf("ContentEncoding(%d)", int(e))
	}
}

// ParseContentEncoding parses the name of a content encoding ("identity", "gzip", "zstd").
func ParseContentEncoding(s string) (ContentEncoding, error) {
	switch s {
	case "identity", "":
		return ContentEncodingIdentity, nil
	case "gzip":
		return ContentEncodingGzip, nil
	case "zstd":
		return ContentEncodingZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidContentEncoding, s)
	}
}

// IngestOptions specifies optional parameters for an ingest call. Empty
// values are not sent and the server applies its defaults.
type IngestOptions struct {
	// TimestampField is the field to take the event time from. Defaults to "_time".
	TimestampField string
	// TimestampFormat is the format the timestamp field is parsed with.
	TimestampFormat string
	// CSVDelimiter is the delimiter of CSV payloads. Only used with ContentTypeCSV.
	CSVDelimiter string
}

type IngestOptionsBuilder struct {
	options IngestOptions
}

// NewIngestOptionsBuilder creates a builder for IngestOptions.
func NewIngestOptionsBuilder() *IngestOptionsBuilder {
	return &IngestOptionsBuilder{}
}

// WithTimestampField sets the field the event time is read from.
func (b *IngestOptionsBuilder) WithTimestampField(field string) *IngestOptionsBuilder {
	b.options.TimestampField = field
	return b
}

// WithTimestampFormat sets the format of the timestamp field.
func (b *IngestOptionsBuilder) WithTimestampFormat(format string) *IngestOptionsBuilder {
	b.options.TimestampFormat = format
	return b
}

// WithCSVDelimiter sets the delimiter of CSV payloads.
func (b *IngestOptionsBuilder) WithCSVDelimiter(delimiter string) *IngestOptionsBuilder {
	b.options.CSVDelimiter = delimiter
	return b
}

// Build builds the IngestOptions.
func (b *IngestOptionsBuilder) Build() IngestOptions {
	return b.options
}

// IngestFailure describes the ingestion failure of a single event.
type IngestFailure struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// IngestStatus is the status after an event ingestion operation.
type IngestStatus struct {
	Ingested       uint64          `json:"ingested"`
	Failed         uint64          `json:"failed"`
	Failures       []IngestFailure `json:"failures"`
	ProcessedBytes uint64          `json:"processedBytes"`
	BlocksCreated  uint32          `json:"blocksCreated"`
	// WALLength is the length of the write-ahead log at the time of the response.
	WALLength uint32 `json:"walLength"`
}
