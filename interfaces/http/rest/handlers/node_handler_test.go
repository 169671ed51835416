package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"braindump/application/dispatch"
	"braindump/domain/credential"
	"braindump/domain/node"
	"braindump/pkg/auth"
)

type savedNode struct {
	userID        string
	localDay      string
	node          *node.Node
	rawTranscript string
}

type fakeNodeRepo struct {
	saved    []savedNode
	byDay    map[string][]*node.Node
	active   []*node.Node
	dayOf    map[string]string
	deleted  []string
	queryErr error
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{
		byDay: make(map[string][]*node.Node),
		dayOf: make(map[string]string),
	}
}

func (f *fakeNodeRepo) Save(_ context.Context, userID, localDay string, n *node.Node, rawTranscript string) error {
	f.saved = append(f.saved, savedNode{userID, localDay, n, rawTranscript})
	return nil
}

func (f *fakeNodeRepo) QueryByDay(_ context.Context, _, localDay string) ([]*node.Node, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.byDay[localDay], nil
}

func (f *fakeNodeRepo) QueryActive(_ context.Context, _ string) ([]*node.Node, error) {
	return f.active, nil
}

func (f *fakeNodeRepo) FindDay(_ context.Context, _, nodeID string) (string, bool, error) {
	day, ok := f.dayOf[nodeID]
	return day, ok, nil
}

func (f *fakeNodeRepo) Delete(_ context.Context, _, _, nodeID string) error {
	f.deleted = append(f.deleted, nodeID)
	return nil
}

type noTokens struct{}

func (noTokens) AccessToken(_ context.Context, _ string, _ credential.Provider) (string, error) {
	return "", nil
}

func newTestNodeHandler(repo *fakeNodeRepo) *NodeHandler {
	dispatcher := dispatch.NewDispatcher(noTokens{}, nil, nil, nil, nil, nil, nil, zap.NewNop())
	return NewNodeHandler(dispatcher, repo, nil, zap.NewNop())
}

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := auth.SetUserInContext(req.Context(), &auth.UserContext{UserID: "user-1", Email: "u@example.com"})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCompletePersistsBareNodeBody(t *testing.T) {
	repo := newFakeNodeRepo()
	h := newTestNodeHandler(repo)

	payload := []byte(`{
		"node_type": "note",
		"title": "Meeting notes",
		"body": "Discussed roadmap",
		"captured_at_iso": "2026-03-10T14:30:00Z",
		"note": {"category": "meeting"}
	}`)
	rec := httptest.NewRecorder()
	h.Complete(rec, authedRequest(t, http.MethodPost, "/api/v1/nodes/complete", payload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "2026-03-10", body["local_day"])
	assert.NotEmpty(t, body["node_id"])
	assert.Nil(t, body["provider_response"])

	require.Len(t, repo.saved, 1)
	saved := repo.saved[0]
	assert.Equal(t, "user-1", saved.userID)
	assert.Equal(t, "2026-03-10", saved.localDay)
	assert.Equal(t, node.TypeNote, saved.node.NodeType)
	assert.Equal(t, node.StatusActive, saved.node.Status)
	assert.NotEmpty(t, saved.node.NodeID)
	assert.NotEmpty(t, saved.node.CreatedAtISO)
}

func TestCompleteAcceptsNodeEnvelope(t *testing.T) {
	repo := newFakeNodeRepo()
	h := newTestNodeHandler(repo)

	payload := []byte(`{
		"node": {
			"node_id": "node-42",
			"node_type": "todo",
			"title": "Buy milk",
			"body": "buy milk",
			"captured_at_iso": "2026-03-10T08:00:00Z",
			"todo": {"priority": "medium"}
		},
		"raw_transcript": "remind me to buy milk"
	}`)
	rec := httptest.NewRecorder()
	h.Complete(rec, authedRequest(t, http.MethodPost, "/api/v1/nodes/complete", payload))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "node-42", body["node_id"])

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "remind me to buy milk", repo.saved[0].rawTranscript)
}

func TestCompleteRejectsInvalidJSON(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	rec := httptest.NewRecorder()
	h.Complete(rec, authedRequest(t, http.MethodPost, "/api/v1/nodes/complete", []byte("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteRequiresAuth(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/nodes/complete", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	h.Complete(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExecuteRejectsNonExecutableType(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	payload := []byte(`{"node_id": "n1", "node_type": "note", "title": "t", "body": "b"}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/nodes/n1/execute", payload)
	req = withURLParam(req, "nodeID", "n1")

	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "UNSUPPORTED", body["type"])
}

func TestExecuteRejectsMismatchedNodeID(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	payload := []byte(`{"node_id": "other", "node_type": "email", "title": "t", "body": "b"}`)
	req := authedRequest(t, http.MethodPost, "/api/v1/nodes/n1/execute", payload)
	req = withURLParam(req, "nodeID", "n1")

	rec := httptest.NewRecorder()
	h.Execute(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "does not match")
}

func TestListDefaultsToToday(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	repo := newFakeNodeRepo()
	repo.byDay[today] = []*node.Node{{NodeID: "n1", NodeType: node.TypeNote}}
	h := newTestNodeHandler(repo)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/nodes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}

func TestListReturnsNodesForDay(t *testing.T) {
	repo := newFakeNodeRepo()
	repo.byDay["2026-03-10"] = []*node.Node{
		{NodeID: "n1", NodeType: node.TypeNote, Title: "a"},
		{NodeID: "n2", NodeType: node.TypeTodo, Title: "b"},
	}
	h := newTestNodeHandler(repo)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/nodes?day=2026-03-10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []interface{}{"n1", "n2"}, body["node_ids"])
}

func TestActiveReturnsEmptyListNotNull(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	rec := httptest.NewRecorder()
	h.Active(rec, authedRequest(t, http.MethodGet, "/api/v1/nodes/active", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["node_ids"])
}

func TestDeleteLocatesDayThenDeletes(t *testing.T) {
	repo := newFakeNodeRepo()
	repo.dayOf["n1"] = "2026-03-10"
	h := newTestNodeHandler(repo)

	req := authedRequest(t, http.MethodDelete, "/api/v1/nodes/n1", nil)
	req = withURLParam(req, "nodeID", "n1")

	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n1"}, repo.deleted)
}

func TestDeleteWithDayParamSkipsLookup(t *testing.T) {
	repo := newFakeNodeRepo()
	h := newTestNodeHandler(repo)

	req := authedRequest(t, http.MethodDelete, "/api/v1/nodes/n1?day=2026-03-10", nil)
	req = withURLParam(req, "nodeID", "n1")

	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n1"}, repo.deleted)
}

func TestDeleteUnknownNodeIs404(t *testing.T) {
	h := newTestNodeHandler(newFakeNodeRepo())

	req := authedRequest(t, http.MethodDelete, "/api/v1/nodes/ghost", nil)
	req = withURLParam(req, "nodeID", "ghost")

	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
