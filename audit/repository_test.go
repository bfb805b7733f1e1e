// audit/repository_test.go
package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubRepository(t *testing.T, handler roundTripFunc) *ElasticsearchRepository {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://stub:9200"},
		Transport: handler,
	})
	require.NoError(t, err)
	return &ElasticsearchRepository{esClient: client}
}

func esResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":      []string{"application/json"},
			"X-Elastic-Product": []string{"Elasticsearch"},
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}
}

func TestElasticsearchRepository_QueryEntries(t *testing.T) {
	var requestBody map[string]interface{}
	repo := stubRepository(t, func(req *http.Request) (*http.Response, error) {
		if req.Body != nil {
			json.NewDecoder(req.Body).Decode(&requestBody)
		}
		return esResponse(`{
			"hits": {"hits": [
				{"_source": {"action": "access_revoked", "object_id": "doc-1", "actor_id": "user-1"}},
				{"_source": {"action": "token_issued", "object_id": "doc-1", "actor_id": "user-2"}}
			]}
		}`), nil
	})

	entries, err := repo.QueryEntries(context.Background(), QueryFilter{
		From:    time.Now().AddDate(0, 0, -7),
		To:      time.Now(),
		Action:  ActionAccessRevoked,
		ActorID: "user-1",
		Limit:   20,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionAccessRevoked, entries[0].Action)
	assert.Equal(t, "user-2", entries[1].ActorID)

	require.NotNil(t, requestBody)
	assert.Equal(t, float64(20), requestBody["size"])
	must := requestBody["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	assert.Len(t, must, 3)
}

func TestElasticsearchRepository_SumDownloadBytes(t *testing.T) {
	t.Run("SumsAggregation", func(t *testing.T) {
		repo := stubRepository(t, func(req *http.Request) (*http.Response, error) {
			return esResponse(`{"aggregations": {"total_bytes": {"value": 123456}}}`), nil
		})

		total, err := repo.SumDownloadBytes(context.Background(), "user-1", time.Now().Add(-12*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(123456), total)
	})

	t.Run("MissingAggregationIsZero", func(t *testing.T) {
		repo := stubRepository(t, func(req *http.Request) (*http.Response, error) {
			return esResponse(`{"hits": {"hits": []}}`), nil
		})

		total, err := repo.SumDownloadBytes(context.Background(), "user-1", time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}
