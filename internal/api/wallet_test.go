package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"paradigm.network/pard/internal/types"
)

func TestHandleBalance(t *testing.T) {
	svc, n := setupTest(t)
	recipient := otherIdentity(t).Address()

	if _, err := n.Send(recipient, 5*types.UnitsPerPAR, 0, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/balance?address="+recipient.String(), nil)
	rec := httptest.NewRecorder()
	svc.HandleBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Address string       `json:"address"`
		Balance types.Amount `json:"balance"`
		Display string       `json:"display"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != 5*types.UnitsPerPAR {
		t.Fatalf("balance = %v, want %v", resp.Balance, 5*types.UnitsPerPAR)
	}
	if resp.Display != "5.00000000 PAR" {
		t.Fatalf("display = %q", resp.Display)
	}
}

func TestHandleBalanceRejectsBadAddress(t *testing.T) {
	svc, _ := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/balance?address=bogus", nil)
	rec := httptest.NewRecorder()
	svc.HandleBalance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleWalletSend(t *testing.T) {
	svc, n := setupTest(t)
	recipient := otherIdentity(t).Address()

	body, _ := json.Marshal(map[string]interface{}{
		"to":     recipient.String(),
		"amount": types.UnitsPerPAR,
		"fee":    0,
		"memo":   "rent",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleWalletSend(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	balance, err := n.Balance(recipient)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != types.UnitsPerPAR {
		t.Fatalf("balance = %v, want %v", balance, types.UnitsPerPAR)
	}
}

func TestHandleWalletSendInsufficientFunds(t *testing.T) {
	svc, _ := setupTest(t)
	recipient := otherIdentity(t).Address()

	body, _ := json.Marshal(map[string]interface{}{
		"to":     recipient.String(),
		"amount": types.TotalSupply,
		"fee":    0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleWalletSend(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestHandleSubmitTransactionRejectsTampering(t *testing.T) {
	svc, n := setupTest(t)
	recipient := otherIdentity(t).Address()

	tx, err := n.Send(recipient, types.UnitsPerPAR, 0, "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	forged := *tx
	forged.Amount = 3 * types.UnitsPerPAR

	body, _ := json.Marshal(forged)
	req := httptest.NewRequest(http.MethodPost, "/api/transaction", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	svc.HandleSubmitTransaction(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTransactionsHistory(t *testing.T) {
	svc, n := setupTest(t)
	recipient := otherIdentity(t).Address()

	if _, err := n.Send(recipient, types.UnitsPerPAR, 0, ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions?address="+recipient.String()+"&limit=10", nil)
	rec := httptest.NewRecorder()
	svc.HandleTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var history []types.Transaction
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
}
