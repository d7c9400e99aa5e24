package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESServer(t *testing.T, status int, captured *map[string]interface{}, path *string) *elasticsearch.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if path != nil {
			*path = r.URL.Path
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticRecorder_Record(t *testing.T) {
	var body map[string]interface{}
	var path string
	client := newESServer(t, http.StatusCreated, &body, &path)

	rec := NewElasticRecorder(client, "", logger.NewTestLogger(t))
	err := rec.Record(context.Background(), Decision{
		Operation:       "assign",
		AppointmentID:   "a1",
		DoctorName:      "Dr. Rao",
		AffectedDoctors: []string{"Dr. Rao"},
		Patches:         []models.Patch{models.AssignPatch("a1", "Dr. Rao", 1)},
		Outcome:         OutcomeApplied,
		TraceID:         "4bf92f3577b34da6a3ce929d0e0e4736",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/"+DefaultIndex+"/_doc/"), path)
	assert.Equal(t, "assign", body["operation"])
	assert.Equal(t, "applied", body["outcome"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", body["traceId"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["timestamp"])
	patches, ok := body["patches"].([]interface{})
	require.True(t, ok)
	assert.Len(t, patches, 1)
}

func TestElasticRecorder_ServerError(t *testing.T) {
	client := newESServer(t, http.StatusInternalServerError, nil, nil)

	rec := NewElasticRecorder(client, "custom", logger.NewNoOpLogger())
	err := rec.Record(context.Background(), Decision{Operation: "release", Outcome: OutcomeApplied})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index decision")
}

func TestNoopRecorder(t *testing.T) {
	assert.NoError(t, NoopRecorder{}.Record(context.Background(), Decision{}))
}

func TestElasticRecorder_EnsureIndex(t *testing.T) {
	var mapping map[string]interface{}
	var path string
	client := newESServer(t, http.StatusNotFound, &mapping, &path)

	// HEAD and PUT both get 404 from this server, so creation fails with a clear error.
	rec := NewElasticRecorder(client, "audit-test", logger.NewTestLogger(t))
	err := rec.EnsureIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit-test")
	assert.Equal(t, "/audit-test", path)

	props := mapping["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	assert.Equal(t, "keyword", props["doctorName"].(map[string]interface{})["type"])
}
