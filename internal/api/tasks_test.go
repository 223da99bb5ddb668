package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"paradigm.network/pard/internal/compute"
	"paradigm.network/pard/internal/types"
)

func TestTaskFlowOverHTTP(t *testing.T) {
	svc, n := setupTest(t)
	worker := otherIdentity(t).Address()

	// Create a task.
	payload, _ := json.Marshal(types.OraclePayload{Feed: "PAR/USD"})
	body, _ := json.Marshal(map[string]interface{}{
		"task_type": types.TaskOracle,
		"payload":   json.RawMessage(payload),
		"reward":    types.BaseReward,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/task/create", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleCreateTask(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created types.MLTask
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	// Fetch it as the worker.
	req = httptest.NewRequest(http.MethodGet, "/api/task?worker="+worker.String(), nil)
	rec = httptest.NewRecorder()
	svc.HandleFetchTask(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", rec.Code)
	}
	var assigned types.MLTask
	if err := json.NewDecoder(rec.Body).Decode(&assigned); err != nil {
		t.Fatalf("decode assigned: %v", err)
	}
	if assigned.ID != created.ID || assigned.State != types.TaskAssigned {
		t.Fatalf("assigned = %+v", assigned)
	}

	// Solve and submit.
	result, err := compute.HashProof{}.Compute(context.Background(), &assigned)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	result.Contributor = worker
	body, _ = json.Marshal(result)
	req = httptest.NewRequest(http.MethodPost, "/api/task/result", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	svc.HandleSubmitResult(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["accepted"] {
		t.Fatal("result not accepted")
	}

	// The reward landed.
	balance, err := n.Balance(worker)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != created.Reward {
		t.Fatalf("balance = %v, want %v", balance, created.Reward)
	}
}

func TestFetchTaskNoWork(t *testing.T) {
	svc, _ := setupTest(t)
	worker := otherIdentity(t).Address()

	req := httptest.NewRequest(http.MethodGet, "/api/task?worker="+worker.String(), nil)
	rec := httptest.NewRecorder()
	svc.HandleFetchTask(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestSubmitResultUnknownTask(t *testing.T) {
	svc, _ := setupTest(t)

	body, _ := json.Marshal(types.WorkResult{TaskID: uuid.New()})
	req := httptest.NewRequest(http.MethodPost, "/api/task/result", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleSubmitResult(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateTaskRejectsUnknownType(t *testing.T) {
	svc, _ := setupTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"task_type": "quantum",
		"payload":   json.RawMessage(`{}`),
		"reward":    types.BaseReward,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/task/create", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleCreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
