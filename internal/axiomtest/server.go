// Package axiomtest provides an in-memory fake of the Axiom datasets API for
// tests.
package axiomtest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/j-sauer/axiom-go/model"
)

// Request is a request the server received.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
}

type block struct {
	events  int
	maxTime time.Time
}

type dataset struct {
	model.Dataset
	fields          map[string]model.Field
	blocks          []block
	minTime         time.Time
	maxTime         time.Time
	inputBytes      uint64
	compressedBytes uint64
}

func (d *dataset) numEvents() uint64 {
	var n uint64
	for _, b := range d.blocks {
		n += uint64(b.events)
	}
	return n
}

func (d *dataset) info() model.DatasetInfo {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]model.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, d.fields[name])
	}
	return model.DatasetInfo{
		Name:                 d.Name,
		NumBlocks:            uint64(len(d.blocks)),
		NumEvents:            d.numEvents(),
		NumFields:            uint32(len(fields)),
		InputBytes:           d.inputBytes,
		InputBytesHuman:      humanize.Bytes(d.inputBytes),
		CompressedBytes:      d.compressedBytes,
		CompressedBytesHuman: humanize.Bytes(d.compressedBytes),
		MinTime:              d.minTime,
		MaxTime:              d.maxTime,
		Fields:               fields,
		CreatedBy:            d.CreatedBy,
		CreatedAt:            d.CreatedAt,
	}
}

// Server is a fake Axiom deployment. Datasets are kept in memory; dataset
// ids are their names.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	datasets map[string]*dataset
	requests []Request
	now      func() time.Time
}

// NewServer starts a fake deployment that is closed when the test finishes.
func NewServer(tb testing.TB) *Server {
	tb.Helper()
	s := &Server{
		datasets: make(map[string]*dataset),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.Server = httptest.NewServer(s.router())
	tb.Cleanup(s.Close)
	return s
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// SetNow replaces the clock of the server.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record, authenticate)

	api := r.PathPrefix("/api/v1/datasets").Subrouter()
	api.HandleFunc("", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/_stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/info", s.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/{id}/fields/{field}", s.handleUpdateField).Methods(http.MethodPut)
	api.HandleFunc("/{id}/ingest", s.handleIngest).Methods(http.MethodPost)
	api.HandleFunc("/{id}/trim", s.handleTrim).Methods(http.MethodPost)
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !model.IsValidToken(token) {
			// plain status without a JSON body, like a proxy in front of the API
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck //client went away
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{"code": status, "message": fmt.Sprintf(format, args...)})
}

// lookup returns the dataset of the request. It must be called with s.mu held.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*dataset, bool) {
	id := mux.Vars(r)["id"]
	ds, ok := s.datasets[id]
	if !ok {
		writeError(w, http.StatusNotFound, "dataset %q not found", id)
	}
	return ds, ok
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]model.Dataset, 0, len(s.datasets))
	for _, ds := range s.datasets {
		list = append(list, ds.Dataset)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.DatasetCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[req.Name]; ok {
		writeError(w, http.StatusConflict, "dataset %q already exists", req.Name)
		return
	}
	ds := &dataset{
		Dataset: model.Dataset{
			ID:          req.Name,
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   "axiomtest",
			CreatedAt:   s.now().Truncate(time.Second),
		},
		fields: make(map[string]model.Field),
	}
	s.datasets[req.Name] = ds
	writeJSON(w, http.StatusOK, ds.Dataset)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.DatasetStats{Datasets: make([]model.DatasetInfo, 0, len(s.datasets))}
	for _, ds := range s.datasets {
		info := ds.info()
		stats.Datasets = append(stats.Datasets, info)
		stats.NumBlocks += info.NumBlocks
		stats.NumEvents += info.NumEvents
		stats.InputBytes += info.InputBytes
		stats.CompressedBytes += info.CompressedBytes
	}
	sort.Slice(stats.Datasets, func(i, j int) bool { return stats.Datasets[i].Name < stats.Datasets[j].Name })
	stats.InputBytesHuman = humanize.Bytes(stats.InputBytes)
	stats.CompressedBytesHuman = humanize.Bytes(stats.CompressedBytes)
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, ds.Dataset)
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req model.DatasetUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.lookup(w, r); ok {
		ds.Description = req.Description
		writeJSON(w, http.StatusOK, ds.Dataset)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.lookup(w, r); ok {
		delete(s.datasets, ds.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, ds.info())
	}
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req model.FieldUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["field"]
	field, ok := ds.fields[name]
	if !ok {
		writeError(w, http.StatusNotFound, "field %q not found", name)
		return
	}
	field.Description = req.Description
	field.Unit = req.Unit
	field.Hidden = req.Hidden
	ds.fields[name] = field
	writeJSON(w, http.StatusOK, field)
}

func (s *Server) handleTrim(w http.ResponseWriter, r *http.Request) {
	var req model.TrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: %v", err)
		return
	}
	maxDuration, err := time.ParseDuration(req.MaxDuration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid maxDuration %q", req.MaxDuration)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}
	cutoff := s.now().Add(-maxDuration)
	kept := ds.blocks[:0]
	deleted := 0
	for _, b := range ds.blocks {
		if b.maxTime.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, b)
	}
	ds.blocks = kept
	writeJSON(w, http.StatusOK, model.DatasetTrimResult{BlocksDeleted: deleted})
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	compressed := &countingReader{r: r.Body}
	body, err := decompress(r.Header.Get("Content-Encoding"), compressed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content encoding: %v", err)
		return
	}
	defer body.Close()
	input := &countingReader{r: body}

	query := r.URL.Query()
	events, failures, err := parseEvents(r.Header.Get("Content-Type"), query.Get("csv-delimiter"), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: %v", err)
		return
	}
	// drain so the byte counters cover the whole payload
	_, _ = io.Copy(io.Discard, input) //nolint:errcheck //counters only

	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.lookup(w, r)
	if !ok {
		return
	}

	timestampField := query.Get("timestamp-field")
	if timestampField == "" {
		timestampField = "_time"
	}
	now := s.now()
	status := model.IngestStatus{Failures: []model.IngestFailure{}}
	b := block{}
	for _, event := range events {
		ts, err := eventTime(event, timestampField, query.Get("timestamp-format"), now)
		if err != nil {
			status.Failed++
			status.Failures = append(status.Failures, model.IngestFailure{Timestamp: now, Error: err.Error()})
			continue
		}
		ds.observeFields(event)
		if ds.minTime.IsZero() || ts.Before(ds.minTime) {
			ds.minTime = ts
		}
		if ts.After(ds.maxTime) {
			ds.maxTime = ts
		}
		if ts.After(b.maxTime) {
			b.maxTime = ts
		}
		b.events++
		status.Ingested++
	}
	for _, msg := range failures {
		status.Failed++
		status.Failures = append(status.Failures, model.IngestFailure{Timestamp: now, Error: msg})
	}
	if b.events > 0 {
		ds.blocks = append(ds.blocks, b)
		status.BlocksCreated = 1
	}
	ds.inputBytes += input.n
	ds.compressedBytes += compressed.n
	status.ProcessedBytes = compressed.n
	status.WALLength = uint32(ds.numEvents())
	writeJSON(w, http.StatusOK, status)
}

func decompress(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch encoding {
	case "":
		return io.NopCloser(r), nil
	case "gzip":
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gzr, nil
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// parseEvents decodes the payload into events. Lines of an NDJSON payload that
// are not valid JSON objects are reported as failures instead of an error.
func parseEvents(contentType, csvDelimiter string, r io.Reader) ([]map[string]any, []string, error) {
	switch contentType {
	case "application/json":
		var payload any
		if err := json.NewDecoder(r).Decode(&payload); err != nil {
			return nil, nil, err
		}
		switch v := payload.(type) {
		case map[string]any:
			return []map[string]any{v}, nil, nil
		case []any:
			events := make([]map[string]any, 0, len(v))
			var failures []string
			for i, item := range v {
				event, ok := item.(map[string]any)
				if !ok {
					failures = append(failures, fmt.Sprintf("event %d is not an object", i))
					continue
				}
				events = append(events, event)
			}
			return events, failures, nil
		default:
			return nil, nil, errors.New("payload must be an object or an array of objects")
		}
	case "application/x-ndjson":
		var events []map[string]any
		var failures []string
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var event map[string]any
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				failures = append(failures, err.Error())
				continue
			}
			events = append(events, event)
		}
		return events, failures, scanner.Err()
	case "text/csv":
		reader := csv.NewReader(r)
		if csvDelimiter != "" {
			reader.Comma = []rune(csvDelimiter)[0]
		}
		rows, err := reader.ReadAll()
		if err != nil {
			return nil, nil, err
		}
		if len(rows) == 0 {
			return nil, nil, nil
		}
		header := rows[0]
		events := make([]map[string]any, 0, len(rows)-1)
		for _, row := range rows[1:] {
			event := make(map[string]any, len(header))
			for i, name := range header {
				if i < len(row) {
					event[name] = row[i]
				}
			}
			events = append(events, event)
		}
		return events, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}

func eventTime(event map[string]any, field, format string, now time.Time) (time.Time, error) {
	raw, ok := event[field]
	if !ok {
		return now, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("field %q is not a timestamp string", field)
	}
	if format == "" {
		format = time.RFC3339Nano
	}
	ts, err := time.Parse(format, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", field, err)
	}
	return ts.UTC(), nil
}

func (d *dataset) observeFields(event map[string]any) {
	for name, value := range event {
		typ := fieldType(value)
		if typ == "" {
			continue
		}
		field, ok := d.fields[name]
		if !ok {
			field = model.Field{Name: name}
		}
		field.Type = typ
		d.fields[name] = field
	}
}

func fieldType(value any) string {
	switch v := value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if v == math.Trunc(v) {
			return "integer"
		}
		return "float"
	case map[string]any:
		return "map"
	case []any:
		return "array"
	default:
		return ""
	}
}
