package axiom

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/j-sauer/axiom-go/model"
)

const datasetsPath = "/datasets"

// datasetPath returns the path of a dataset or one of its sub resources.
// Every element is path escaped.
func datasetPath(id string, elems ...string) string {
	var sb strings.Builder
	sb.WriteString(datasetsPath)
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(id))
	for _, elem := range elems {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(elem))
	}
	return sb.String()
}

// Stats retrieves the usage statistics of all datasets.
func (c *Client) Stats(ctx context.Context) (model.DatasetStats, error) {
	resp := model.DatasetStats{}
	err := c.HTTPClient.Get(ctx, datasetsPath+"/_stats", &resp)
	if err != nil {
		return model.DatasetStats{}, err
	}
	return resp, nil
}

// List retrieves all datasets the token has access to.
func (c *Client) List(ctx context.Context) ([]model.Dataset, error) {
	var resp []model.Dataset
	err := c.HTTPClient.Get(ctx, datasetsPath, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get retrieves a dataset by its id.
func (c *Client) Get(ctx context.Context, id string) (model.Dataset, error) {
	resp := model.Dataset{}
	err := c.HTTPClient.Get(ctx, datasetPath(id), &resp)
	if err != nil {
		return model.Dataset{}, err
	}
	return resp, nil
}

// Create creates a dataset. Creating a dataset whose name is taken fails with
// a *model.APIError carrying a 4xx status.
func (c *Client) Create(ctx context.Context, req model.DatasetCreateRequest) (model.Dataset, error) {
	resp := model.Dataset{}
	err := c.HTTPClient.Post(ctx, datasetsPath, req, &resp)
	if err != nil {
		return model.Dataset{}, err
	}
	return resp, nil
}

// Update updates the description of a dataset.
func (c *Client) Update(ctx context.Context, id string, req model.DatasetUpdateRequest) (model.Dataset, error) {
	resp := model.Dataset{}
	err := c.HTTPClient.Put(ctx, datasetPath(id), req, &resp)
	if err != nil {
		return model.Dataset{}, err
	}
	return resp, nil
}

// UpdateField updates the metadata of a field of a dataset.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control.
//   - id: ID of the dataset the field belongs to.
//   - field: Name of the field to update.
//   - req: New description, unit and visibility of the field.
func (c *Client) UpdateField(ctx context.Context, id, field string, req model.FieldUpdateRequest) (model.Field, error) {
	resp := model.Field{}
	err := c.HTTPClient.Put(ctx, datasetPath(id, "fields", field), req, &resp)
	if err != nil {
		return model.Field{}, err
	}
	return resp, nil
}

// Delete deletes a dataset with all its events.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.HTTPClient.Delete(ctx, datasetPath(id))
}

// Info retrieves the details and usage counters of a dataset, including its fields.
func (c *Client) Info(ctx context.Context, id string) (model.DatasetInfo, error) {
	resp := model.DatasetInfo{}
	err := c.HTTPClient.Get(ctx, datasetPath(id, "info"), &resp)
	if err != nil {
		return model.DatasetInfo{}, err
	}
	return resp, nil
}

// Trim deletes the blocks of a dataset that are older than maxDuration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control.
//   - id: ID of the dataset to trim.
//   - maxDuration: Maximum age of the data to keep. Sub-second precision is dropped.
func (c *Client) Trim(ctx context.Context, id string, maxDuration time.Duration) (model.DatasetTrimResult, error) {
	formatted, err := FormatMaxDuration(maxDuration)
	if err != nil {
		return model.DatasetTrimResult{}, err
	}
	resp := model.DatasetTrimResult{}
	err = c.HTTPClient.Post(ctx, datasetPath(id, "trim"), model.TrimRequest{MaxDuration: formatted}, &resp)
	if err != nil {
		return model.DatasetTrimResult{}, err
	}
	return resp, nil
}
