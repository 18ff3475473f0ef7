package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client wraps go-elasticsearch with the documents index and the stories
// alias used by this project.
type Client struct {
	es           *elasticsearch.Client
	docsIndex    string
	storiesAlias string
	pageSize     int
	log          *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, docsIndex, storiesAlias string, logger *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{es: es, docsIndex: docsIndex, storiesAlias: storiesAlias, pageSize: searchPageSize, log: logger}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Health checks the cluster health endpoint.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return responseError("cluster health", res)
	}
	return nil
}

// EnsureDocumentsIndex creates the documents index with its mapping when it
// does not exist yet.
func (c *Client) EnsureDocumentsIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.docsIndex}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check documents index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	err = c.createIndex(ctx, c.docsIndex, documentsMapping)
	if errors.Is(err, errIndexExists) {
		return nil
	}
	return err
}

var errIndexExists = errors.New("index already exists")

func (c *Client) createIndex(ctx context.Context, index string, mapping map[string]any) error {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		if strings.Contains(string(data), "resource_already_exists_exception") {
			return errIndexExists
		}
		return fmt.Errorf("create index %s failed: %s", index, strings.TrimSpace(string(data)))
	}
	return nil
}

func (c *Client) deleteIndices(ctx context.Context, indices ...string) error {
	if len(indices) == 0 {
		return nil
	}
	res, err := c.es.Indices.Delete(
		indices,
		c.es.Indices.Delete.WithContext(ctx),
		c.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete indices: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("delete indices", res)
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	data, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s failed: %s", op, strings.TrimSpace(string(data)))
}
