// internal/audit/recorder.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dispatch-workers/internal/common/database"
	"dispatch-workers/internal/common/logger"
	"dispatch-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const DefaultIndex = "dispatch-decisions"

// indexMapping keeps identifiers as keywords so decisions can be filtered by doctor or
// appointment. Patches are stored but not indexed.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "operation":       {"type": "keyword"},
      "appointmentId":   {"type": "keyword"},
      "doctorName":      {"type": "keyword"},
      "affectedDoctors": {"type": "keyword"},
      "patches":         {"type": "object", "enabled": false},
      "topScore":        {"type": "float"},
      "reason":          {"type": "text"},
      "outcome":         {"type": "keyword"},
      "error":           {"type": "text"},
      "traceId":         {"type": "keyword"},
      "timestamp":       {"type": "date"}
    }
  }
}`

const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
)

// Decision is one dispatch operation as written to the audit index.
type Decision struct {
	ID              string         `json:"id"`
	Operation       string         `json:"operation"`
	AppointmentID   string         `json:"appointmentId,omitempty"`
	DoctorName      string         `json:"doctorName,omitempty"`
	AffectedDoctors []string       `json:"affectedDoctors,omitempty"`
	Patches         []models.Patch `json:"patches,omitempty"`
	TopScore        float64        `json:"topScore,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	Outcome         string         `json:"outcome"`
	Error           string         `json:"error,omitempty"`
	TraceID         string         `json:"traceId,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

type Recorder interface {
	Record(ctx context.Context, d Decision) error
}

// ElasticRecorder indexes decisions into Elasticsearch.
type ElasticRecorder struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticRecorder(client *elasticsearch.Client, index string, log logger.Logger) *ElasticRecorder {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticRecorder{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// EnsureIndex creates the decision index with its mapping when it does not exist yet.
func (r *ElasticRecorder) EnsureIndex(ctx context.Context) error {
	es := &database.ElasticsearchClient{Client: r.client}
	created, err := es.EnsureIndex(ctx, r.index, []byte(indexMapping))
	if err != nil {
		return err
	}
	if created {
		r.logger.Info("audit index created", map[string]interface{}{"index": r.index})
	}
	return nil
}

func (r *ElasticRecorder) Record(ctx context.Context, d Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: d.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("index decision: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index decision: %s", res.String())
	}

	r.logger.Debug("decision recorded", map[string]interface{}{
		"decisionId": d.ID,
		"operation":  d.Operation,
		"outcome":    d.Outcome,
	})
	return nil
}

// NoopRecorder drops every decision; used when auditing is disabled.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Decision) error { return nil }
