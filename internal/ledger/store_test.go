// Package ledger tests cover the atomicity and accounting guarantees of the
// SQLite store: transfers never partially apply, rewards mint exactly once
// per task id, and the sum of balances always equals minted minus burned.
package ledger

import (
	"crypto/ed25519"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"paradigm.network/pard/internal/types"
)

type account struct {
	priv ed25519.PrivateKey
	addr types.Address
}

func newAccount(t *testing.T) account {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return account{priv: priv, addr: types.AddressFromPublicKey(pub)}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "ledger-test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func transfer(t *testing.T, from account, to types.Address, amount, fee types.Amount) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(to, amount, fee, "", from.priv)
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	return tx
}

func TestSeedGenesisIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	a := newAccount(t)

	if err := s.SeedGenesis(a.addr, types.TreasurySeed); err != nil {
		t.Fatalf("seed genesis: %v", err)
	}
	if err := s.SeedGenesis(a.addr, types.TreasurySeed); err != nil {
		t.Fatalf("second seed should be a no-op, got %v", err)
	}

	bal, err := s.GetBalance(a.addr)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal != types.TreasurySeed {
		t.Errorf("balance = %s, want %s", bal.Format(), types.TreasurySeed.Format())
	}
}

func TestApplyTransactionMovesFunds(t *testing.T) {
	s := newTestStore(t)
	alice := newAccount(t)
	bob := newAccount(t)

	if err := s.SeedGenesis(alice.addr, 100*types.UnitsPerPAR); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tx := transfer(t, alice, bob.addr, 30*types.UnitsPerPAR, types.UnitsPerPAR)
	if err := s.ApplyTransaction(tx); err != nil {
		t.Fatalf("apply: %v", err)
	}

	aliceBal, _ := s.GetBalance(alice.addr)
	bobBal, _ := s.GetBalance(bob.addr)
	if aliceBal != 69*types.UnitsPerPAR {
		t.Errorf("sender balance = %s, want 69 PAR", aliceBal.Format())
	}
	if bobBal != 30*types.UnitsPerPAR {
		t.Errorf("recipient balance = %s, want 30 PAR", bobBal.Format())
	}

	count, err := s.TransactionCount()
	if err != nil || count != 1 {
		t.Errorf("transaction count = %d, %v", count, err)
	}
	burned, _ := s.TotalBurned()
	if burned != types.UnitsPerPAR {
		t.Errorf("burned = %s, want 1 PAR", burned.Format())
	}
}

func TestInsufficientBalanceLeavesNothingApplied(t *testing.T) {
	s := newTestStore(t)
	alice := newAccount(t)
	bob := newAccount(t)

	if err := s.SeedGenesis(alice.addr, 10*types.UnitsPerPAR); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tx := transfer(t, alice, bob.addr, 10*types.UnitsPerPAR, 1)
	err := s.ApplyTransaction(tx)
	if !errors.Is(err, types.ErrInsufficientBalance) {
		t.Fatalf("apply = %v, want insufficient balance", err)
	}

	aliceBal, _ := s.GetBalance(alice.addr)
	bobBal, _ := s.GetBalance(bob.addr)
	if aliceBal != 10*types.UnitsPerPAR || bobBal != 0 {
		t.Errorf("balances mutated by rejected transaction: %s / %s", aliceBal.Format(), bobBal.Format())
	}
	count, _ := s.TransactionCount()
	if count != 0 {
		t.Errorf("rejected transaction was recorded, count = %d", count)
	}
}

func TestUnknownAddressBalanceIsZero(t *testing.T) {
	s := newTestStore(t)
	stranger := newAccount(t)

	bal, err := s.GetBalance(stranger.addr)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal != 0 {
		t.Errorf("balance for unknown address = %d, want 0", bal)
	}
}

func TestCreditRewardExactlyOncePerTask(t *testing.T) {
	s := newTestStore(t)
	worker := newAccount(t)
	taskID := uuid.New()

	if err := s.CreditReward(taskID, worker.addr, types.BaseReward); err != nil {
		t.Fatalf("first credit: %v", err)
	}
	err := s.CreditReward(taskID, worker.addr, types.BaseReward)
	if err == nil {
		t.Fatal("second credit for the same task id must be rejected")
	}

	bal, _ := s.GetBalance(worker.addr)
	if bal != types.BaseReward {
		t.Errorf("balance = %s, want exactly one reward", bal.Format())
	}

	credited, err := s.RewardCredited(taskID)
	if err != nil || !credited {
		t.Errorf("RewardCredited = %v, %v", credited, err)
	}
}

func TestCreditRewardConcurrent(t *testing.T) {
	s := newTestStore(t)
	worker := newAccount(t)
	taskID := uuid.New()

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreditReward(taskID, worker.addr, types.BaseReward)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d concurrent credits succeeded, want exactly 1", succeeded)
	}
	bal, _ := s.GetBalance(worker.addr)
	if bal != types.BaseReward {
		t.Errorf("balance = %s after concurrent credits, want one reward", bal.Format())
	}
}

func TestBalanceConservation(t *testing.T) {
	s := newTestStore(t)
	alice := newAccount(t)
	bob := newAccount(t)
	carol := newAccount(t)

	if err := s.SeedGenesis(alice.addr, 1000*types.UnitsPerPAR); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.ApplyTransaction(transfer(t, alice, bob.addr, 400*types.UnitsPerPAR, 2*types.UnitsPerPAR)); err != nil {
		t.Fatalf("transfer 1: %v", err)
	}
	if err := s.CreditReward(uuid.New(), carol.addr, types.BaseReward); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if err := s.CreditReward(uuid.New(), bob.addr, 50*types.UnitsPerPAR); err != nil {
		t.Fatalf("reward 2: %v", err)
	}

	sum, err := s.SumBalances()
	if err != nil {
		t.Fatalf("sum balances: %v", err)
	}
	minted, _ := s.TotalMinted()
	burned, _ := s.TotalBurned()
	want, _ := minted.Sub(burned)
	if sum != want {
		t.Errorf("sum(balances) = %s, want minted-burned = %s", sum.Format(), want.Format())
	}
	if minted > types.TotalSupply {
		t.Errorf("minted %s exceeds total supply", minted.Format())
	}
}

func TestTransactionsForAddress(t *testing.T) {
	s := newTestStore(t)
	alice := newAccount(t)
	bob := newAccount(t)

	if err := s.SeedGenesis(alice.addr, 1000*types.UnitsPerPAR); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.ApplyTransaction(transfer(t, alice, bob.addr, types.UnitsPerPAR, 0)); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}

	history, err := s.TransactionsForAddress(bob.addr, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	for _, tx := range history {
		if tx.To.Comparable() != bob.addr.Comparable() {
			t.Errorf("history contains foreign transaction %s", tx.ID)
		}
		if tx.Amount != types.UnitsPerPAR {
			t.Errorf("amount = %d", tx.Amount)
		}
	}

	none, err := s.TransactionsForAddress(newAccount(t).addr, 10)
	if err != nil {
		t.Fatalf("empty history: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected empty history, got %d entries", len(none))
	}
}

func TestRecordTaskCompletion(t *testing.T) {
	s := newTestStore(t)
	worker := newAccount(t)
	taskID := uuid.New()

	if err := s.RecordTaskCompletion(taskID, types.TaskOracle, worker.addr, "feed=btc_usd"); err != nil {
		t.Fatalf("record completion: %v", err)
	}
	// Recording twice must not error; completions are keyed by task id.
	if err := s.RecordTaskCompletion(taskID, types.TaskOracle, worker.addr, "feed=btc_usd"); err != nil {
		t.Fatalf("re-record completion: %v", err)
	}
}

func TestStoreReopenKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")
	alice := newAccount(t)

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := s.SeedGenesis(alice.addr, 42*types.UnitsPerPAR); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	bal, err := reopened.GetBalance(alice.addr)
	if err != nil {
		t.Fatalf("get balance after reopen: %v", err)
	}
	if bal != 42*types.UnitsPerPAR {
		t.Errorf("balance lost across reopen: %s", bal.Format())
	}
	height, _ := reopened.Height()
	if height != 1 {
		t.Errorf("height = %d after reopen, want 1", height)
	}
}
