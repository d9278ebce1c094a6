package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/provledger/internal/ir"
	"github.com/roach88/provledger/internal/ledger"
	"github.com/roach88/provledger/internal/store"
	"github.com/roach88/provledger/internal/testutil"
)

type testEnv struct {
	server *Server
	store  *store.Store
	prover *testutil.StubProver
}

func setupServer(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prover := &testutil.StubProver{}
	l := ledger.New(s, prover,
		ledger.WithClock(testutil.NewDeterministicClock()),
		ledger.WithLogger(logger))

	opts.Logger = logger
	return &testEnv{server: New(l, opts), store: s, prover: prover}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type recordResponse struct {
	Success bool                `json:"success"`
	Record  ir.ProvenanceRecord `json:"record"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *testEnv) record(t *testing.T, subj, obj string) ir.ProvenanceRecord {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"subj": subj, "obj": obj})
	w := e.do(t, http.MethodPost, "/api/prov?action=record", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[recordResponse](t, w)
	require.True(t, resp.Success)
	return resp.Record
}

func TestRecord(t *testing.T) {
	env := setupServer(t, Options{})

	rec := env.record(t, "http://example.org/Human1", "http://example.org/Company1")

	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "da81debbc46f562b82d897310a2c4edf58acdea6c3477e239002e27a4e8414bc", rec.Hash)
	assert.Equal(t, ir.ProofKindGroth16, rec.Proof.Kind)
	assert.Equal(t, rec.Hash, rec.PublicSignals[0])
}

func TestRecord_MissingFields(t *testing.T) {
	env := setupServer(t, Options{})

	for _, body := range []string{`{}`, `{"subj":"a"}`, `{"obj":"b"}`, `{"subj":"","obj":"b"}`, `not json`} {
		w := env.do(t, http.MethodPost, "/api/prov?action=record", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		resp := decode[errorResponse](t, w)
		assert.Equal(t, "Missing required fields: subj, obj", resp.Error)
		assert.Equal(t, "INVALID_INPUT", resp.Code)
	}
}

func TestRecord_InvalidURI(t *testing.T) {
	env := setupServer(t, Options{})

	w := env.do(t, http.MethodPost, "/api/prov?action=record", `{"subj":"Cafe\u0301","obj":"b"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode[errorResponse](t, w).Code)
}

func TestRecord_StorageUnavailable(t *testing.T) {
	env := setupServer(t, Options{})
	require.NoError(t, env.store.Close())

	w := env.do(t, http.MethodPost, "/api/prov?action=record", `{"subj":"a","obj":"b"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORAGE_UNAVAILABLE", decode[errorResponse](t, w).Code)
}

func TestRecord_DegradedProof(t *testing.T) {
	env := setupServer(t, Options{})
	env.prover.Err = ir.ErrProofSystemUnavailable

	rec := env.record(t, "a", "b")
	assert.Equal(t, ir.ProofKindUnavailable, rec.Proof.Kind)
	assert.Equal(t, []string{rec.Hash}, rec.PublicSignals)
}

func verifyBody(t *testing.T, hash string, proof any, signals []string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"hash": hash, "proof": proof, "publicSignals": signals})
	require.NoError(t, err)
	return string(b)
}

func TestVerify(t *testing.T) {
	env := setupServer(t, Options{})
	rec := env.record(t, "http://example.org/Human1", "http://example.org/Company1")

	w := env.do(t, http.MethodPost, "/api/prov?action=verify", verifyBody(t, rec.Hash, rec.Proof, rec.PublicSignals))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"valid": true}, decode[map[string]bool](t, w))

	tampered := "0" + rec.Hash[1:]
	if tampered == rec.Hash {
		tampered = "1" + rec.Hash[1:]
	}
	w = env.do(t, http.MethodPost, "/api/prov?action=verify", verifyBody(t, tampered, rec.Proof, rec.PublicSignals))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"valid": false}, decode[map[string]bool](t, w))
}

func TestVerify_MalformedProofIsInvalidNotError(t *testing.T) {
	env := setupServer(t, Options{})
	rec := env.record(t, "a", "b")

	for _, proof := range []any{
		map[string]any{"kind": "groth16", "a": []string{"1"}},
		map[string]any{"kind": "mystery"},
		map[string]any{"pi_a": []string{"1", "2"}},
		"opaque",
		ir.UnavailableProof(ir.ReasonProofTimeout),
	} {
		w := env.do(t, http.MethodPost, "/api/prov?action=verify", verifyBody(t, rec.Hash, proof, rec.PublicSignals))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, map[string]bool{"valid": false}, decode[map[string]bool](t, w))
	}
}

func TestVerify_MissingFields(t *testing.T) {
	env := setupServer(t, Options{})

	for _, body := range []string{
		`{}`,
		`{"hash":"abc","proof":{"kind":"groth16"}}`,
		`{"hash":"abc","publicSignals":["x"]}`,
		`{"hash":"abc","proof":null,"publicSignals":["x"]}`,
		`{"proof":{},"publicSignals":["x"]}`,
	} {
		w := env.do(t, http.MethodPost, "/api/prov?action=verify", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

type chainResponse struct {
	Chain []ir.Event `json:"chain"`
}

func TestChain(t *testing.T) {
	env := setupServer(t, Options{})
	a := env.record(t, "http://example.org/Human1", "http://example.org/Company1")
	env.record(t, "http://example.org/Other", "http://example.org/Company1")
	b := env.record(t, "http://example.org/Human1", "http://example.org/Company2")

	w := env.do(t, http.MethodPost, "/api/prov?action=chain", `{"uri":"http://example.org/Human1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	chain := decode[chainResponse](t, w).Chain
	require.Len(t, chain, 2)
	assert.Equal(t, a.Hash, chain[0].Hash)
	assert.Equal(t, b.Hash, chain[1].Hash)
	assert.Equal(t, ir.PredicateCauses, chain[0].Predicate)
}

func TestChain_Unknown(t *testing.T) {
	env := setupServer(t, Options{})

	w := env.do(t, http.MethodPost, "/api/prov?action=chain", `{"uri":"http://example.org/Nobody"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chain":[]}`, w.Body.String())
}

func TestChain_MissingURI(t *testing.T) {
	env := setupServer(t, Options{})

	w := env.do(t, http.MethodPost, "/api/prov?action=chain", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required field: uri", decode[errorResponse](t, w).Error)
}

func TestReprove(t *testing.T) {
	env := setupServer(t, Options{})
	env.prover.Err = ir.ErrProofSystemUnavailable
	rec := env.record(t, "a", "b")
	env.prover.Err = nil

	w := env.do(t, http.MethodPost, "/api/prov?action=reprove", `{"hash":"`+rec.Hash+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	again := decode[recordResponse](t, w).Record
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, ir.ProofKindGroth16, again.Proof.Kind)

	w = env.do(t, http.MethodPost, "/api/prov?action=reprove", `{"hash":"`+strings.Repeat("0", 64)+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, w).Code)

	w = env.do(t, http.MethodPost, "/api/prov?action=reprove", `{"hash":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateIsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	l := ledger.New(s, &testutil.StubProver{},
		ledger.WithClock(testutil.FixedClock(1)),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := New(l, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/prov?action=record", bytes.NewBufferString(`{"subj":"a","obj":"b"}`))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post().Code)
	w := post()
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_HASH", decode[errorResponse](t, w).Code)
}

func TestInvalidAction(t *testing.T) {
	env := setupServer(t, Options{})

	for _, target := range []string{"/api/prov", "/api/prov?action=delete"} {
		w := env.do(t, http.MethodPost, target, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[errorResponse](t, w).Error, "Invalid action")
	}
}

func TestGetIsMethodNotAllowed(t *testing.T) {
	env := setupServer(t, Options{})

	w := env.do(t, http.MethodGet, "/api/prov", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "Method not allowed")
}

func TestHealthz(t *testing.T) {
	env := setupServer(t, Options{ProofCheck: func() error { return ir.ErrProofSystemUnavailable }})
	env.record(t, "a", "b")

	w := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","events":1,"proof_system":"unavailable"}`, w.Body.String())

	require.NoError(t, env.store.Close())
	w = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, Options{})
	env.record(t, "a", "b")

	w := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `provledger_http_requests_total{action="record",method="POST",path="/api/prov",status="200"} 1`)
}

func TestRequestID(t *testing.T) {
	env := setupServer(t, Options{})

	w := env.do(t, http.MethodGet, "/healthz", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	w = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "caller-supplied", w.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	env := setupServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, env.do(t, http.MethodPost, "/api/prov?action=chain", `{"uri":"x"}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health checks are not limited.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "").Code)
}

func TestCORS(t *testing.T) {
	env := setupServer(t, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/prov", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(ledger.ErrCodeInvalidInput))
	assert.Equal(t, http.StatusConflict, StatusFor(ledger.ErrCodeDuplicateHash))
	assert.Equal(t, http.StatusNotFound, StatusFor(ledger.ErrCodeNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(ledger.ErrCodeStorageUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(ledger.ErrCodeInternal))
}
