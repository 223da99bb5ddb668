package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"paradigm.network/pard/internal/types"
)

// @Title: Get Balance
// @Route: GET /api/balance?address=PAR...
// @Description: Confirmed balance for an address
// @Response: {"address": "...", "balance": 0, "display": "0.00000000 PAR"}
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		s.writeNodeError(w, err)
		return
	}

	balance, err := s.node.Balance(addr)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr.String(),
		"balance": balance,
		"display": balance.Format(),
	})
}

// @Title: Get Transactions
// @Route: GET /api/transactions?address=PAR...&limit=100
// @Description: Recent transactions touching an address, newest first
// @Response: Array of Transaction objects
func (s *Service) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	addr, err := types.ParseAddress(r.URL.Query().Get("address"))
	if err != nil {
		s.writeNodeError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	history, err := s.node.History(addr, limit)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

// @Title: Submit Transaction
// @Route: POST /api/transaction
// @Description: Apply an externally signed transaction
// @Response: {"id": "..."}
func (s *Service) HandleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var tx types.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.node.SubmitTransaction(&tx); err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": tx.ID.String()})
}

// @Title: Wallet Send
// @Route: POST /api/wallet/send
// @Description: Build, sign and apply a transfer from the node's own key
// @Response: Transaction object
func (s *Service) HandleWalletSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		To     string       `json:"to"`
		Amount types.Amount `json:"amount"`
		Fee    types.Amount `json:"fee"`
		Memo   string       `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	to, err := types.ParseAddress(req.To)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}

	tx, err := s.node.Send(to, req.Amount, req.Fee, req.Memo)
	if err != nil {
		s.writeNodeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tx)
}
