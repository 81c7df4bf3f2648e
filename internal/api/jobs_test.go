package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/proofmarket/internal/marketplace"
	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/verifier"
)

func submitJob(t *testing.T, ts *httptest.Server, requester model.AccountID, price uint64) model.JobID {
	t.Helper()
	var body submitJobResponse
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs", requester, map[string]any{
		"proof_type": "zksnark",
		"price":      price,
	}), http.StatusCreated, &body)
	return body.JobID
}

func TestSubmitJob(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for want := model.JobID(0); want < 3; want++ {
		if got := submitJob(t, ts, "alice", 10); got != want {
			t.Errorf("job_id = %d, want %d", got, want)
		}
	}

	var job model.Job
	decode(t, do(t, ts, http.MethodGet, "/v1/jobs/2", "", nil), http.StatusOK, &job)
	if job.Status != model.StatusOpen {
		t.Errorf("status = %q, want open", job.Status)
	}
	if job.Requester != "alice" || job.Price != 10 || job.ProofType != model.ProofZkSNARK {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name   string
		caller model.AccountID
		body   any
		want   int
	}{
		{"missing price", "alice", map[string]any{"proof_type": "zksnark"}, http.StatusBadRequest},
		{"unknown proof type", "alice", map[string]any{"proof_type": "groth", "price": 1}, http.StatusBadRequest},
		{"invalid json", "alice", "not an object", http.StatusBadRequest},
		{"no caller", "", map[string]any{"proof_type": "zksnark", "price": 1}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, http.MethodPost, "/v1/jobs", tt.caller, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestGetJobErrors(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if resp := do(t, ts, http.MethodGet, "/v1/jobs/99", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/v1/jobs/abc", "", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}
}

func TestListJobsPagination(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for range 5 {
		submitJob(t, ts, "alice", 1)
	}

	var page listJobsResponse
	decode(t, do(t, ts, http.MethodGet, "/v1/jobs?limit=2&offset=1", "", nil), http.StatusOK, &page)
	if page.Total != 5 {
		t.Errorf("total = %d, want 5", page.Total)
	}
	if len(page.Jobs) != 2 || page.Jobs[0].ID != 1 || page.Jobs[1].ID != 2 {
		t.Errorf("unexpected page: %+v", page.Jobs)
	}

	decode(t, do(t, ts, http.MethodGet, "/v1/jobs?limit=500", "", nil), http.StatusOK, &page)
	if page.Limit != defaultListLimit {
		t.Errorf("limit = %d, want %d", page.Limit, defaultListLimit)
	}
}

func TestListJobsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	var page listJobsResponse
	decode(t, do(t, ts, http.MethodGet, "/v1/jobs", "", nil), http.StatusOK, &page)
	if page.Jobs == nil || len(page.Jobs) != 0 {
		t.Errorf("jobs = %v, want empty array", page.Jobs)
	}
}

func TestMatchAndCompleteJob(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	id := submitJob(t, ts, "alice", 250)

	var match matchJobResponse
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/match", "", nil), http.StatusOK, &match)
	if match.Matched {
		t.Fatalf("matched with no provers: %+v", match)
	}

	for _, p := range []struct {
		id     model.AccountID
		rating uint64
	}{{"p10", 10}, {"p50", 50}, {"p30", 30}} {
		decode(t, do(t, ts, http.MethodPost, "/v1/provers", p.id, map[string]any{"performance_rating": p.rating}), http.StatusCreated, nil)
	}

	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/match", "", nil), http.StatusOK, &match)
	if !match.Matched || match.Prover != "p50" {
		t.Fatalf("match = %+v, want p50", match)
	}

	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/match", "", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("re-match status = %d, want 409", resp.StatusCode)
	}

	var settlement model.Settlement
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/complete", "p50", map[string]any{"proof": []byte("proof")}), http.StatusOK, &settlement)
	if settlement.JobID != id || settlement.Amount != 250 || settlement.Prover != "p50" {
		t.Errorf("unexpected settlement: %+v", settlement)
	}

	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/complete", "p50", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("second complete status = %d, want 409", resp.StatusCode)
	}

	var stored model.Settlement
	decode(t, do(t, ts, http.MethodGet, "/v1/jobs/0/settlement", "", nil), http.StatusOK, &stored)
	if stored.ID != settlement.ID {
		t.Errorf("stored settlement id = %q, want %q", stored.ID, settlement.ID)
	}

	var escrow escrowResponse
	decode(t, do(t, ts, http.MethodGet, "/v1/escrow", "", nil), http.StatusOK, &escrow)
	if escrow.Balance != "750" {
		t.Errorf("escrow balance = %q, want 750", escrow.Balance)
	}
}

func TestCompleteOpenJobConflict(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	submitJob(t, ts, "alice", 5)
	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/complete", "p1", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if resp := do(t, ts, http.MethodGet, "/v1/jobs/0/settlement", "", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("settlement status = %d, want 404", resp.StatusCode)
	}
}

func TestCompleteJobTransferFailure(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	decode(t, do(t, ts, http.MethodPost, "/v1/provers", "p1", map[string]any{"performance_rating": 1}), http.StatusCreated, nil)
	submitJob(t, ts, "alice", testEscrow+1)
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/match", "", nil), http.StatusOK, nil)

	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/complete", "p1", nil); resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", resp.StatusCode)
	}

	var job model.Job
	decode(t, do(t, ts, http.MethodGet, "/v1/jobs/0", "", nil), http.StatusOK, &job)
	if job.Status != model.StatusInProgress {
		t.Errorf("status = %q, want in_progress", job.Status)
	}
}

func TestCompleteJobMappedErrors(t *testing.T) {
	reg := verifier.NewRegistry()
	reg.Register(model.ProofZkSNARK, verifier.NonEmpty)
	srv := newTestServerWithOptions(t, marketplace.Options{Verifier: reg, EnforceMatchedProver: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	decode(t, do(t, ts, http.MethodPost, "/v1/provers", "p1", map[string]any{"performance_rating": 1}), http.StatusCreated, nil)
	submitJob(t, ts, "alice", 5)
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/match", "", nil), http.StatusOK, nil)

	tests := []struct {
		name   string
		caller model.AccountID
		body   any
		want   int
	}{
		{"no caller", "", nil, http.StatusUnauthorized},
		{"wrong prover", "p2", map[string]any{"proof": []byte("x")}, http.StatusForbidden},
		{"empty proof", "p1", nil, http.StatusUnprocessableEntity},
		{"accepted", "p1", map[string]any{"proof": []byte("x")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, ts, http.MethodPost, "/v1/jobs/0/complete", tt.caller, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCancelJob(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	submitJob(t, ts, "alice", 5)

	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/cancel", "mallory", nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign cancel status = %d, want 403", resp.StatusCode)
	}

	var job model.Job
	decode(t, do(t, ts, http.MethodPost, "/v1/jobs/0/cancel", "alice", nil), http.StatusOK, &job)
	if job.Status != model.StatusCancelled {
		t.Errorf("status = %q, want cancelled", job.Status)
	}

	if resp := do(t, ts, http.MethodPost, "/v1/jobs/0/cancel", "alice", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", resp.StatusCode)
	}

	if _, err := srv.market.Job(context.Background(), 0); err != nil {
		t.Fatalf("job lookup: %v", err)
	}
}
