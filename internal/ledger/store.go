// Package ledger provides the durable ledger store backed by SQLite. It is
// the single source of truth for balances, transactions, reward credits and
// task completion records. All mutating operations run inside a SQL
// transaction under the store lock, so a reader never observes a
// half-applied transfer (debited but not credited, or vice versa).
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"paradigm.network/pard/internal/types"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "paradigm.db"
	maxBusyTimeoutMs = 5000
)

// Store manages ledger state and persistence to a SQLite database file.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	file string
}

// NewStore opens (or creates) the ledger database at filePath.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{file: absPath}
	if err := s.openDB(); err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", filepath.Clean(s.file))

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			amount INTEGER NOT NULL,
			fee INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			memo TEXT,
			public_key BLOB NOT NULL,
			signature BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS balances (
			address TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reward_credits (
			task_id TEXT PRIMARY KEY,
			contributor TEXT NOT NULL,
			amount INTEGER NOT NULL,
			credited_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_completions (
			task_id TEXT PRIMARY KEY,
			task_type TEXT NOT NULL,
			contributor TEXT NOT NULL,
			result_summary TEXT,
			completed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_address)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_address)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SeedGenesis mints the initial treasury allocation into addr. It is applied
// at most once per database; subsequent calls are no-ops.
func (s *Store) SeedGenesis(addr types.Address, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return types.StorageError(err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT OR IGNORE INTO counters (name, value) VALUES ('genesis_applied', 1)`)
	if err != nil {
		return types.StorageError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.StorageError(err)
	}
	if n == 0 {
		return nil // already seeded
	}

	if err := creditBalanceTx(tx, addr.String(), int64(amount)); err != nil {
		return err
	}
	if err := bumpCounterTx(tx, "minted", int64(amount)); err != nil {
		return err
	}
	if err := bumpCounterTx(tx, "height", 1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.StorageError(err)
	}
	return nil
}

// ApplyTransaction atomically debits amount+fee from the sender and credits
// amount to the recipient. The fee is burned. Signature validity is the
// caller's concern; balance sufficiency is checked here under the write lock.
func (s *Store) ApplyTransaction(transaction *types.Transaction) error {
	if transaction.From.IsZero() || transaction.To.IsZero() {
		return types.ErrInvalidAddress
	}
	total, err := transaction.Total()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return types.StorageError(err)
	}
	defer tx.Rollback()

	from := transaction.From.String()
	balance, err := balanceTx(tx, from)
	if err != nil {
		return err
	}
	if balance < int64(total) {
		return types.ErrInsufficientBalance
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(
		`UPDATE balances SET balance = balance - ?, last_updated = ? WHERE address = ?`,
		int64(total), now, from,
	); err != nil {
		return types.StorageError(err)
	}
	if err := creditBalanceTx(tx, transaction.To.String(), int64(transaction.Amount)); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO transactions (id, from_address, to_address, amount, fee, timestamp, nonce, memo, public_key, signature)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transaction.ID.String(), from, transaction.To.String(),
		int64(transaction.Amount), int64(transaction.Fee),
		transaction.Timestamp.UTC().Format(time.RFC3339Nano),
		int64(transaction.Nonce), transaction.Memo,
		transaction.PublicKey, transaction.Signature,
	); err != nil {
		return types.StorageError(err)
	}

	if err := bumpCounterTx(tx, "burned", int64(transaction.Fee)); err != nil {
		return err
	}
	if err := bumpCounterTx(tx, "height", 1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.StorageError(err)
	}
	return nil
}

// CreditReward mints amount into contributor's balance for the given task.
// The reward_credits primary key makes the credit idempotent: a second credit
// for the same task id is rejected without touching any balance.
func (s *Store) CreditReward(taskID uuid.UUID, contributor types.Address, amount types.Amount) error {
	if contributor.IsZero() {
		return types.ErrInvalidAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return types.StorageError(err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT OR IGNORE INTO reward_credits (task_id, contributor, amount, credited_at) VALUES (?, ?, ?, ?)`,
		taskID.String(), contributor.String(), int64(amount), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.StorageError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.StorageError(err)
	}
	if n == 0 {
		return types.ConsensusError("reward already credited for task %s", taskID)
	}

	if err := creditBalanceTx(tx, contributor.String(), int64(amount)); err != nil {
		return err
	}
	if err := bumpCounterTx(tx, "minted", int64(amount)); err != nil {
		return err
	}
	if err := bumpCounterTx(tx, "height", 1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.StorageError(err)
	}
	return nil
}

// RewardCredited reports whether a reward has already been minted for the
// task.
func (s *Store) RewardCredited(taskID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow(`SELECT 1 FROM reward_credits WHERE task_id = ?`, taskID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, types.StorageError(err)
	}
	return true, nil
}

// RecordTaskCompletion stores an audit record for an accepted task result.
func (s *Store) RecordTaskCompletion(taskID uuid.UUID, taskType types.TaskType, contributor types.Address, resultSummary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO task_completions (task_id, task_type, contributor, result_summary, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		taskID.String(), string(taskType), contributor.String(), resultSummary,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.StorageError(err)
	}
	return nil
}

// GetBalance returns the balance for an address, zero for unknown accounts.
func (s *Store) GetBalance(addr types.Address) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM balances WHERE address = ?`, addr.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, types.StorageError(err)
	}
	return types.Amount(balance), nil
}

// SumBalances totals every account balance. Used by supply accounting and
// tests for the conservation property.
func (s *Store) SumBalances() (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(balance) FROM balances`).Scan(&sum); err != nil {
		return 0, types.StorageError(err)
	}
	return types.Amount(sum.Int64), nil
}

// TransactionCount reports how many transfers have been applied.
func (s *Store) TransactionCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, types.StorageError(err)
	}
	return uint64(count), nil
}

// Height reports the number of applied ledger entries (transfers, credits and
// the genesis seed). Peers compare heights during synchronization.
func (s *Store) Height() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter("height")
}

// TotalMinted reports the circulating supply added via genesis and rewards.
func (s *Store) TotalMinted() (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.counter("minted")
	return types.Amount(v), err
}

// TotalBurned reports the cumulative fees destroyed by transfers.
func (s *Store) TotalBurned() (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.counter("burned")
	return types.Amount(v), err
}

// RewardsMinted reports the total rewards credited for completed tasks.
func (s *Store) RewardsMinted() (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(amount) FROM reward_credits`).Scan(&sum); err != nil {
		return 0, types.StorageError(err)
	}
	return types.Amount(sum.Int64), nil
}

// TransactionsForAddress returns transfers touching addr, newest first,
// bounded by limit.
func (s *Store) TransactionsForAddress(addr types.Address, limit int) ([]types.Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, from_address, to_address, amount, fee, timestamp, nonce, memo, public_key, signature
		 FROM transactions WHERE from_address = ? OR to_address = ?
		 ORDER BY timestamp DESC LIMIT ?`,
		addr.String(), addr.String(), limit,
	)
	if err != nil {
		return nil, types.StorageError(err)
	}
	defer rows.Close()

	var out []types.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			continue
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(rows *sql.Rows) (types.Transaction, error) {
	var (
		tx                 types.Transaction
		id, from, to, ts   string
		amount, fee, nonce int64
		memo               sql.NullString
	)
	if err := rows.Scan(&id, &from, &to, &amount, &fee, &ts, &nonce, &memo, &tx.PublicKey, &tx.Signature); err != nil {
		return tx, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return tx, err
	}
	tx.ID = parsedID
	if tx.From, err = types.ParseAddress(from); err != nil {
		return tx, err
	}
	if tx.To, err = types.ParseAddress(to); err != nil {
		return tx, err
	}
	tx.Amount = types.Amount(amount)
	tx.Fee = types.Amount(fee)
	tx.Nonce = uint64(nonce)
	tx.Memo = memo.String
	if tx.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return tx, err
	}
	return tx, nil
}

// counter reads a named counter; missing counters read as zero. Callers hold
// the store lock.
func (s *Store) counter(name string) (uint64, error) {
	var value int64
	err := s.db.QueryRow(`SELECT value FROM counters WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, types.StorageError(err)
	}
	return uint64(value), nil
}

func bumpCounterTx(tx *sql.Tx, name string, delta int64) error {
	if _, err := tx.Exec(
		`INSERT INTO counters (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`,
		name, delta,
	); err != nil {
		return types.StorageError(err)
	}
	return nil
}

func balanceTx(tx *sql.Tx, address string) (int64, error) {
	var balance int64
	err := tx.QueryRow(`SELECT balance FROM balances WHERE address = ?`, address).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, types.StorageError(err)
	}
	return balance, nil
}

func creditBalanceTx(tx *sql.Tx, address string, amount int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(
		`INSERT INTO balances (address, balance, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET balance = balance + excluded.balance, last_updated = excluded.last_updated`,
		address, amount, now,
	); err != nil {
		return types.StorageError(err)
	}
	return nil
}
