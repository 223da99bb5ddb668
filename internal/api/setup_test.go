package api

import (
	"path/filepath"
	"testing"

	"paradigm.network/pard/internal/config"
	"paradigm.network/pard/internal/identity"
	"paradigm.network/pard/internal/ledger"
	"paradigm.network/pard/internal/logger"
	"paradigm.network/pard/internal/node"
)

// setupTest creates a freshly seeded node and API service over a temporary
// database.
func setupTest(t *testing.T) (*Service, *node.Node) {
	t.Helper()
	dir := t.TempDir()

	id, err := identity.LoadOrCreateIdentity(filepath.Join(dir, "key.pem"))
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	store, err := ledger.NewStore(filepath.Join(dir, "paradigm.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		MaxPeers:           8,
		TaskTimeoutSecs:    60,
		TickIntervalSecs:   1,
		PeerSendTimeoutMs:  500,
		EnableTreasurySeed: true,
		LogBuffer:          100,
	}
	log := logger.New(cfg.LogBuffer)
	n, err := node.New(cfg, id, store, log)
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}
	return NewService(n, log), n
}

// otherIdentity generates a second keypair for counterparty addresses.
func otherIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.LoadOrCreateIdentity(filepath.Join(t.TempDir(), "key.pem"))
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	return id
}
