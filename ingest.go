package axiom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"

	"github.com/j-sauer/axiom-go/model"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Ingest ingests a raw payload into a dataset.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control.
//   - id: ID of the dataset to ingest into.
//   - r: The payload, in the format typ describes and compressed with enc.
//   - typ: ContentTypeJSON, ContentTypeNDJSON or ContentTypeCSV.
//   - enc: ContentEncodingIdentity, ContentEncodingGzip or ContentEncodingZstd.
//   - opts: Optional timestamp field, timestamp format and CSV delimiter.
//
// An unknown content type or encoding fails before any request is sent. If r
// is an io.Closer it is closed on every path, like a request body.
func (c *Client) Ingest(ctx context.Context, id string, r io.Reader, typ model.ContentType, enc model.ContentEncoding, opts *model.IngestOptions) (model.IngestStatus, error) {
	contentType, err := typ.HeaderValue()
	if err != nil {
		closePayload(r)
		return model.IngestStatus{}, err
	}
	contentEncoding, err := enc.HeaderValue()
	if err != nil {
		closePayload(r)
		return model.IngestStatus{}, err
	}

	path := datasetPath(id, "ingest")
	if query := ingestQuery(opts); query != "" {
		path += "?" + query
	}

	req, err := c.HTTPClient.NewRequestWithContext(ctx, http.MethodPost, path, r)
	if err != nil {
		closePayload(r)
		return model.IngestStatus{}, err
	}
	req.Header.Set("Content-Type", contentType)
	if contentEncoding != "" {
		req.Header.Set("Content-Encoding", contentEncoding)
	}
	req.Header.Set("Accept", "application/json")

	status := model.IngestStatus{}
	if err := c.HTTPClient.Do(req, &status); err != nil {
		return model.IngestStatus{}, err
	}
	c.metrics.ObserveIngest(status.Ingested, status.Failed, status.ProcessedBytes)
	return status, nil
}

// closePayload closes an ingest payload that is never handed to the transport.
// Closing the reader of a ContentEncoder stops its compressor.
func closePayload(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close() //nolint:errcheck //already failing
	}
}

// IngestEvents ingests events into a dataset. The events are sent as gzip
// compressed newline delimited JSON.
func (c *Client) IngestEvents(ctx context.Context, id string, opts *model.IngestOptions, events ...any) (model.IngestStatus, error) {
	payload, err := EncodeEvents(events...)
	if err != nil {
		return model.IngestStatus{}, err
	}
	return c.Ingest(ctx, id, bytes.NewReader(payload), model.ContentTypeNDJSON, model.ContentEncodingGzip, opts)
}

// EncodeEvents encodes events as newline delimited JSON, one event per line,
// and gzip compresses the result.
func EncodeEvents(events ...any) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	enc := jsonAPI.NewEncoder(gzw)
	for i, event := range events {
		// Encode terminates every event with a newline
		if err := enc.Encode(event); err != nil {
			_ = gzw.Close() //nolint:errcheck //already failing
			return nil, fmt.Errorf("axiom: encode event %d: %w", i, err)
		}
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("axiom: compress events: %w", err)
	}
	return buf.Bytes(), nil
}

// ingestQuery encodes the options that are set. Unset options are left to
// the server defaults.
func ingestQuery(opts *model.IngestOptions) string {
	if opts == nil {
		return ""
	}
	query := url.Values{}
	if opts.CSVDelimiter != "" {
		query.Set("csv-delimiter", opts.CSVDelimiter)
	}
	if opts.TimestampField != "" {
		query.Set("timestamp-field", opts.TimestampField)
	}
	if opts.TimestampFormat != "" {
		query.Set("timestamp-format", opts.TimestampFormat)
	}
	return query.Encode()
}
