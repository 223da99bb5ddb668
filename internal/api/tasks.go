package api

import (
	"encoding/json"
	"net/http"

	"paradigm.network/pard/internal/types"
)

// @Title: Fetch Task
// @Route: GET /api/task?worker=PAR...
// @Description: Assign an open work unit to the worker address
// @Response: MLTask object, or 204 when no work is available
func (s *Service) HandleFetchTask(w http.ResponseWriter, r *http.Request) {
	worker, err := types.ParseAddress(r.URL.Query().Get("worker"))
	if err != nil {
		s.writeNodeError(w, err)
		return
	}

	task, err := s.node.FetchTask(worker)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

// @Title: Create Task
// @Route: POST /api/task/create
// @Description: Register a new ML work unit on the task board
// @Response: MLTask object
func (s *Service) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TaskType types.TaskType  `json:"task_type"`
		Payload  json.RawMessage `json:"payload"`
		Reward   types.Amount    `json:"reward"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := s.node.CreateTask(req.TaskType, req.Payload, req.Reward)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}

// @Title: Submit Task Result
// @Route: POST /api/task/result
// @Description: Submit a computed result for verification and reward
// @Response: {"accepted": true|false}
func (s *Service) HandleSubmitResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var res types.WorkResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accepted, err := s.node.SubmitTaskResult(&res)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}
