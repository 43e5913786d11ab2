package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/office_requests/internal/models"
)

const (
	defaultSize = 20
	maxSize     = 100
)

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type searchHit struct {
	Source models.Request `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct{ Value int64 } `json:"total"`
		Hits  []searchHit           `json:"hits"`
	} `json:"hits"`
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient connects to Elasticsearch and checks the cluster answers.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return &Client{es: es, index: cfg.Index}, nil
}

// IndexRequest stores req under its id, replacing an earlier copy.
func (c *Client) IndexRequest(ctx context.Context, req models.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("search: json.Marshal failed: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(strconv.FormatUint(uint64(req.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index request: %s", res.Status())
	}
	return nil
}

// SearchRequests runs a fuzzy match over the request text. A non-zero
// userID restricts hits to that user's requests.
func (c *Client) SearchRequests(ctx context.Context, query string, userID uint, from, size int) (int64, []models.Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, []models.Request{}, nil
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if from < 0 {
		from = 0
	}

	must := []map[string]any{{
		"multi_match": map[string]any{
			"query":     query,
			"fields":    []string{"request^2", "request_type", "user_name"},
			"fuzziness": "AUTO",
		},
	}}
	if userID != 0 {
		must = append(must, map[string]any{"term": map[string]any{"user_id": userID}})
	}
	body := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"from":  from,
		"size":  size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode response: %w", err)
	}

	items := make([]models.Request, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return r.Hits.Total.Value, items, nil
}
