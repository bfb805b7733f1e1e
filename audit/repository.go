// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const indexName = "access-audit"

type Repository interface {
	LogEntry(ctx context.Context, entry AuditEntry) error
	QueryEntries(ctx context.Context, filter QueryFilter) ([]AuditEntry, error)
	SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// LogEntry appends one audit record. The document id is random so retried
// writes never overwrite an earlier record.
func (r *ElasticsearchRepository) LogEntry(ctx context.Context, entry AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: uuid.New().String(),
		Body:       strings.NewReader(string(data)),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing audit entry: %s", res.String())
	}

	return nil
}

// QueryEntries searches audit records within a time window, optionally
// filtered by action and actor, newest first.
func (r *ElasticsearchRepository) QueryEntries(ctx context.Context, filter QueryFilter) ([]AuditEntry, error) {
	must := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": filter.From.Format(time.RFC3339),
					"lte": filter.To.Format(time.RFC3339),
				},
			},
		},
	}
	if filter.Action != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"action": filter.Action},
		})
	}
	if filter.ActorID != "" {
		must = append(must, map[string]interface{}{
			"match": map[string]interface{}{"actor_id": filter.ActorID},
		})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"from": filter.Offset,
		"size": limit,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching audit entries: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits := rmap["hits"].(map[string]interface{})["hits"].([]interface{})
	entries := make([]AuditEntry, len(hits))
	for i, hit := range hits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &entries[i])
	}

	return entries, nil
}

// SumDownloadBytes totals the size_bytes detail of download_completed
// entries for one actor since the given instant. Backs the daily quota.
func (r *ElasticsearchRepository) SumDownloadBytes(ctx context.Context, actorID string, since time.Time) (int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{"action": ActionDownloadCompleted},
					},
					map[string]interface{}{
						"match": map[string]interface{}{"actor_id": actorID},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"timestamp": map[string]interface{}{
								"gte": since.Format(time.RFC3339),
							},
						},
					},
				},
			},
		},
		"size": 0,
		"aggs": map[string]interface{}{
			"total_bytes": map[string]interface{}{
				"sum": map[string]interface{}{"field": "details.size_bytes"},
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return 0, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error aggregating download bytes: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return 0, err
	}

	aggs, ok := rmap["aggregations"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	total, ok := aggs["total_bytes"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	value, _ := total["value"].(float64)
	return int64(value), nil
}
