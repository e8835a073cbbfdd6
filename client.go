// Package axiom provides a client for the datasets API of Axiom: dataset
// management, event ingestion, field metadata, usage statistics and trimming.
package axiom

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/j-sauer/axiom-go/httpclient"
	"github.com/j-sauer/axiom-go/model"
)

var defaultClientTimeout = 60 * time.Second

// DatasetsClient is the set of dataset operations of the Axiom API.
type DatasetsClient interface {
	// Get the usage statistics of all datasets
	Stats(ctx context.Context) (model.DatasetStats, error)
	// List all available datasets
	List(ctx context.Context) ([]model.Dataset, error)
	// Get a dataset by id
	Get(ctx context.Context, id string) (model.Dataset, error)
	// Create a new dataset
	Create(ctx context.Context, req model.DatasetCreateRequest) (model.Dataset, error)
	// Update the description of a dataset
	Update(ctx context.Context, id string, req model.DatasetUpdateRequest) (model.Dataset, error)
	// Update the metadata of a field
	UpdateField(ctx context.Context, id, field string, req model.FieldUpdateRequest) (model.Field, error)
	// Delete a dataset and all its events
	Delete(ctx context.Context, id string) error
	// Get the details and usage counters of a dataset
	Info(ctx context.Context, id string) (model.DatasetInfo, error)
	// Ingest a raw payload
	Ingest(ctx context.Context, id string, r io.Reader, typ model.ContentType, enc model.ContentEncoding, opts *model.IngestOptions) (model.IngestStatus, error)
	// Ingest events
	IngestEvents(ctx context.Context, id string, opts *model.IngestOptions, events ...any) (model.IngestStatus, error)
	// Trim a dataset to a maximum age
	Trim(ctx context.Context, id string, maxDuration time.Duration) (model.DatasetTrimResult, error)
}

// ClientOptions configures a Client. Empty URL, AccessToken and OrgID are
// read from the environment (AXIOM_URL, AXIOM_TOKEN, AXIOM_ORG_ID).
type ClientOptions struct {
	// HTTPClient is used to send requests. It must be safe for concurrent use.
	HTTPClient  *http.Client
	URL         string
	AccessToken string
	OrgID       string
	// Env is the environment the configuration falls back to. Defaults to the
	// process environment.
	Env            EnvLookup
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Metrics        *httpclient.MetricsCollector
}

// Client is a client for the Axiom datasets API. It is immutable and safe for
// concurrent use.
type Client struct {
	url         string
	accessToken string
	orgID       string
	metrics     *httpclient.MetricsCollector
	// this is the transport core used by all operations
	HTTPClient httpclient.HTTPClient
}

var _ DatasetsClient = (*Client)(nil)

// NewClient creates a client. It fails with ErrInvalidURL,
// ErrMissingAccessToken, ErrInvalidToken or ErrMissingOrganizationID if the
// configuration cannot be resolved.
func NewClient(options ClientOptions) (*Client, error) {
	cfg, err := resolveConfig(options)
	if err != nil {
		return nil, err
	}

	client := &Client{
		url:         cfg.url,
		accessToken: cfg.accessToken,
		orgID:       cfg.orgID,
		metrics:     options.Metrics,
	}
	client.HTTPClient = httpclient.NewHTTPClient(httpclient.Option{
		BaseURL:        cfg.url,
		AccessToken:    cfg.accessToken,
		OrgID:          cfg.orgID,
		Client:         options.HTTPClient,
		Timeout:        defaultClientTimeout,
		Logger:         options.Logger,
		TracerProvider: options.TracerProvider,
		Metrics:        options.Metrics,
	})

	return client, nil
}

// URL returns the resolved deployment url.
func (c *Client) URL() string {
	return c.url
}

// OrgID returns the resolved organization id, which may be empty.
func (c *Client) OrgID() string {
	return c.orgID
}

// TokenKind returns the kind of the access token in use.
func (c *Client) TokenKind() model.TokenKind {
	return model.ClassifyToken(c.accessToken)
}
