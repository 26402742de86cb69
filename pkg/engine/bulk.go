package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// BulkItem is one document to upsert in a bulk request.
type BulkItem struct {
	ID       string
	Document any
}

// BulkFailure records a document the engine rejected.
type BulkFailure struct {
	ID     string
	Status int
	Type   string
	Reason string
}

// BulkResult summarizes a bulk request.
type BulkResult struct {
	Indexed  int
	Failures []BulkFailure
}

// Bulk upserts items into index in one request and waits for them to become
// searchable. Item-level rejections are reported in the result; only
// transport and envelope failures return an error.
func (c *Client) Bulk(ctx context.Context, index string, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return &BulkResult{}, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		action := map[string]map[string]string{"index": {"_id": item.ID}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("encoding bulk action %s: %w", item.ID, err)
		}
		if err := enc.Encode(item.Document); err != nil {
			return nil, fmt.Errorf("encoding bulk document %s: %w", item.ID, err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithRefresh(refreshWait),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("executing bulk on %s: %w", index, transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError("bulk "+index, res)
	}

	var envelope struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string      `json:"_id"`
			Status int         `json:"status"`
			Error  *errorCause `json:"error,omitempty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w", err)
	}

	result := &BulkResult{}
	for _, entry := range envelope.Items {
		for _, op := range entry {
			if op.Error == nil && op.Status < 300 {
				result.Indexed++
				continue
			}
			failure := BulkFailure{ID: op.ID, Status: op.Status}
			if op.Error != nil {
				failure.Type = op.Error.Type
				failure.Reason = op.Error.Reason
			}
			result.Failures = append(result.Failures, failure)
		}
	}
	if len(result.Failures) > 0 {
		c.logger.Warn("bulk request had rejected items",
			"index", index,
			"indexed", result.Indexed,
			"failed", len(result.Failures),
		)
	}
	return result, nil
}
