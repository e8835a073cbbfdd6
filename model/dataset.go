// Package model defines the records exchanged with the Axiom datasets API.
// Each model is a plain JSON record without behavior; values are built from
// one response and are not cached anywhere.
package model

import "time"

// Dataset represents an Axiom dataset.
type Dataset struct {
	// ID of the dataset.
	ID string `json:"id"`
	// Name is the unique name of the dataset.
	Name string `json:"name"`
	// Description of the dataset.
	Description string `json:"description"`
	// CreatedBy is the ID of the user who created the dataset.
	CreatedBy string `json:"who"`
	// CreatedAt is the time the dataset was created at.
	CreatedAt time.Time `json:"created"`
}

// Field represents a field of an Axiom dataset.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Type is the declared type of the field, e.g. "integer" or "string".
	Type   string `json:"type"`
	Unit   string `json:"unit"`
	Hidden bool   `json:"hidden"`
}

// DatasetInfo represents the details and usage counters of a dataset.
type DatasetInfo struct {
	Name                 string    `json:"name"`
	NumBlocks            uint64    `json:"numBlocks"`
	NumEvents            uint64    `json:"numEvents"`
	NumFields            uint32    `json:"numFields"`
	InputBytes           uint64    `json:"inputBytes"`
	InputBytesHuman      string    `json:"inputBytesHuman"`
	CompressedBytes      uint64    `json:"compressedBytes"`
	CompressedBytesHuman string    `json:"compressedBytesHuman"`
	MinTime              time.Time `json:"minTime"`
	MaxTime              time.Time `json:"maxTime"`
	Fields               []Field   `json:"fields"`
	CreatedBy            string    `json:"who"`
	CreatedAt            time.Time `json:"created"`
}

// DatasetStats are the aggregated usage counters of all datasets.
type DatasetStats struct {
	Datasets             []DatasetInfo `json:"datasets"`
	NumBlocks            uint64        `json:"numBlocks"`
	NumEvents            uint64        `json:"numEvents"`
	InputBytes           uint64        `json:"inputBytes"`
	InputBytesHuman      string        `json:"inputBytesHuman"`
	CompressedBytes      uint64        `json:"compressedBytes"`
	CompressedBytesHuman string        `json:"compressedBytesHuman"`
}

// DatasetCreateRequest is the request payload for the creation of a dataset.
type DatasetCreateRequest struct {
	// Name of the dataset to create. Restricted to 80 characters of [a-zA-Z0-9]
	// and special characters "-", "_" and ".".
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DatasetUpdateRequest is the request payload for the update of a dataset.
type DatasetUpdateRequest struct {
	Description string `json:"description"`
}

// FieldUpdateRequest is the request payload for the update of a field.
type FieldUpdateRequest struct {
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Hidden      bool   `json:"hidden"`
}

// TrimRequest is the request payload for trimming a dataset.
type TrimRequest struct {
	// MaxDuration is the maximum age of data to keep, e.g. "1h30m0s".
	MaxDuration string `json:"maxDuration"`
}

// DatasetTrimResult is the result of a trim operation.
type DatasetTrimResult struct {
	// BlocksDeleted is the number of blocks deleted by the trim operation.
	BlocksDeleted int `json:"numDeleted"`
}
