package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Search is one sub-query of a multi-search batch.
type Search struct {
	Index string
	Body  any
}

// MsearchItem is the engine's answer for one sub-query. Exactly one of Hits
// or Error is normally set; a slot with neither is treated as unusable.
type MsearchItem struct {
	Status       int             `json:"status"`
	Hits         *Hits           `json:"hits,omitempty"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
	Error        *errorCause     `json:"error,omitempty"`
}

// Hits is the hits envelope of a search response.
type Hits struct {
	Total struct {
		Value    int    `json:"value"`
		Relation string `json:"relation"`
	} `json:"total"`
	Hits []Hit `json:"hits"`
}

// Hit is one matched document.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// Usable reports whether the slot carries a result payload.
func (m MsearchItem) Usable() bool {
	return m.Error == nil && m.Hits != nil
}

// Err describes why the slot is unusable, or nil when it is usable.
func (m MsearchItem) Err() error {
	if m.Usable() {
		return nil
	}
	respErr := &ResponseError{Op: "msearch item", StatusCode: m.Status}
	if m.Error != nil {
		respErr.Type = m.Error.Type
		respErr.Reason = m.Error.Reason
	}
	return respErr
}

// Msearch submits all searches in a single round trip. The returned slice is
// aligned with searches: item i answers searches[i]. Per-query failures are
// reported inside the items; only transport or envelope failures return an
// error.
func (c *Client) Msearch(ctx context.Context, searches []Search) ([]MsearchItem, error) {
	if len(searches) == 0 {
		return nil, nil
	}
	body, err := encodeMsearch(searches)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := c.es.Msearch(bytes.NewReader(body), c.es.Msearch.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("executing msearch: %w", transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, decodeError("msearch", res)
	}

	var envelope struct {
		Responses []MsearchItem `json:"responses"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding msearch response: %w", err)
	}
	if len(envelope.Responses) != len(searches) {
		return nil, &ResponseError{
			Op:         "msearch",
			StatusCode: res.StatusCode,
			Type:       "response_count_mismatch",
			Reason:     fmt.Sprintf("sent %d searches, got %d responses", len(searches), len(envelope.Responses)),
		}
	}
	c.logger.Debug("msearch executed",
		"searches", len(searches),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return envelope.Responses, nil
}

// encodeMsearch renders the NDJSON header/body pairs expected by _msearch.
func encodeMsearch(searches []Search) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range searches {
		if err := enc.Encode(map[string]string{"index": s.Index}); err != nil {
			return nil, fmt.Errorf("encoding msearch header for %s: %w", s.Index, err)
		}
		if err := enc.Encode(s.Body); err != nil {
			return nil, fmt.Errorf("encoding msearch body for %s: %w", s.Index, err)
		}
	}
	return buf.Bytes(), nil
}
