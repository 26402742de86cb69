// Package engine is the transport to the document-search engine. It wraps a
// single long-lived go-elasticsearch client and exposes the narrow set of
// operations the indexer and searcher need: index admin, single-document
// writes with refresh-on-write, bulk upserts and multi-search.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/company-search/pkg/config"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// refreshWait makes a write block until the document is visible to search.
const refreshWait = "true"

// Client is safe for concurrent use. Build it once per process and Close it
// on shutdown.
type Client struct {
	es        *elasticsearch.Client
	transport *http.Transport
	logger    *slog.Logger
}

// New builds a client for the configured addresses. Engine failures are
// surfaced to the caller once; the transport does not retry.
func New(cfg config.EngineConfig) (*Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine client: %w", err)
	}
	return &Client{
		es:        es,
		transport: transport,
		logger:    slog.Default().With("component", "engine-client"),
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// Ping checks that the engine answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("pinging engine: %w", transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError("ping", res)
	}
	return nil
}

// IndexExists reports whether the named index is present.
func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", name, transportError(err))
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, decodeError("index exists "+name, res)
	}
}

// CreateIndex creates an index with the given settings/mappings body.
func (c *Client) CreateIndex(ctx context.Context, name string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling mapping for %s: %w", name, err)
	}
	res, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", name, transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError("create index "+name, res)
	}
	c.logger.Info("index created", "index", name)
	return nil
}

// DeleteIndex drops the named index and every document in it.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	res, err := c.es.Indices.Delete([]string{name}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("deleting index %s: %w", name, transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError("delete index "+name, res)
	}
	c.logger.Warn("index deleted", "index", name)
	return nil
}

// Upsert writes doc under id, replacing any previous version, and waits for
// the write to become searchable.
func (c *Client) Upsert(ctx context.Context, index, id string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling document %s/%s: %w", index, id, err)
	}
	res, err := c.es.Index(index, bytes.NewReader(payload),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithRefresh(refreshWait),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("indexing document %s/%s: %w", index, id, transportError(err))
	}
	defer res.Body.Close()
	if res.IsError() {
		return decodeError("index document "+index+"/"+id, res)
	}
	c.logger.Debug("document upserted", "index", index, "id", id)
	return nil
}

// Delete removes a document and waits for the removal to become visible.
// A document that is already absent is not an error.
func (c *Client) Delete(ctx context.Context, index, id string) error {
	res, err := c.es.Delete(index, id,
		c.es.Delete.WithRefresh(refreshWait),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("deleting document %s/%s: %w", index, id, transportError(err))
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		raw, readErr := io.ReadAll(res.Body)
		if readErr != nil {
			return fmt.Errorf("reading delete response %s/%s: %w", index, id, readErr)
		}
		var body struct {
			Result string `json:"result"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Result == "not_found" {
			c.logger.Debug("document already absent", "index", index, "id", id)
			return nil
		}
		return newResponseError("delete document "+index+"/"+id, res.StatusCode, bytes.NewReader(raw))
	}
	if res.IsError() {
		return decodeError("delete document "+index+"/"+id, res)
	}
	c.logger.Debug("document deleted", "index", index, "id", id)
	return nil
}

func decodeError(op string, res *esapi.Response) error {
	return newResponseError(op, res.StatusCode, res.Body)
}
