package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"braindump/application/pipeline"
	"braindump/application/ports"
	"braindump/domain/node"
	"braindump/domain/validators"
)

type stubExtractor struct {
	result *ports.ExtractionResult
	err    error
	last   ports.ExtractionRequest
}

func (s *stubExtractor) Extract(_ context.Context, req ports.ExtractionRequest) (*ports.ExtractionResult, error) {
	s.last = req
	return s.result, s.err
}

func newTestIngestHandler(extractor ports.NodeExtractor, repo *fakeNodeRepo) *IngestHandler {
	p := pipeline.NewPipeline(extractor, validators.NewNodeValidator(), nil, nil, zap.NewNop())
	return NewIngestHandler(p, repo, nil, zap.NewNop())
}

func TestIngestStoresExtractedNode(t *testing.T) {
	extractor := &stubExtractor{result: &ports.ExtractionResult{
		Candidates: []map[string]interface{}{{
			"schema_version":   "braindump.node.v1",
			"node_type":        "todo",
			"title":            "Buy milk",
			"body":             "buy milk tomorrow",
			"tags":       []interface{}{"errand"},
			"status":     "active",
			"confidence": 0.93,
			"evidence": []interface{}{
				map[string]interface{}{"quote": "buy milk"},
			},
			"location_context": map[string]interface{}{"location_used": false},
			"todo":             map[string]interface{}{"priority": "medium"},
		}},
		ToolName: "create_todo_node",
		ModelID:  "model-1",
	}}
	repo := newFakeNodeRepo()
	h := newTestIngestHandler(extractor, repo)

	payload := []byte(`{
		"transcript": "buy milk tomorrow",
		"user_time_iso": "2026-03-10T17:00:00-05:00"
	}`)
	rec := httptest.NewRecorder()
	h.Ingest(rec, authedRequest(t, http.MethodPost, "/api/v1/ingest", payload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "2026-03-10", body["local_day"])
	assert.Equal(t, "-05:00", body["utc_offset"])

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, node.TypeTodo, saved.node.NodeType)
	assert.Equal(t, "buy milk tomorrow", saved.rawTranscript)
	assert.Equal(t, "2026-03-10", saved.localDay)

	assert.Equal(t, "buy milk tomorrow", extractor.last.Transcript)
	assert.Equal(t, "2026-03-10", extractor.last.LocalDay)
}

func TestIngestFallsBackToNoteOnExtractionError(t *testing.T) {
	extractor := &stubExtractor{err: assert.AnError}
	repo := newFakeNodeRepo()
	h := newTestIngestHandler(extractor, repo)

	payload := []byte(`{"transcript": "untranscribable mumble", "user_time_iso": "2026-03-10T09:00:00Z"}`)
	rec := httptest.NewRecorder()
	h.Ingest(rec, authedRequest(t, http.MethodPost, "/api/v1/ingest", payload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	require.Len(t, repo.saved, 1)
	n := repo.saved[0].node
	assert.Equal(t, node.TypeNote, n.NodeType)
	require.NotNil(t, n.ParseDebug)
	assert.True(t, n.ParseDebug.FallbackUsed)
}

func TestIngestRejectsEmptyTranscript(t *testing.T) {
	h := newTestIngestHandler(&stubExtractor{}, newFakeNodeRepo())

	rec := httptest.NewRecorder()
	h.Ingest(rec, authedRequest(t, http.MethodPost, "/api/v1/ingest", []byte(`{"transcript": "", "user_time_iso": "2026-03-10T09:00:00Z"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestRequiresAuth(t *testing.T) {
	h := newTestIngestHandler(&stubExtractor{}, newFakeNodeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil)
	rec := httptest.NewRecorder()
	h.Ingest(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
