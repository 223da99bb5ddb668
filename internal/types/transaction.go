package types

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// maxMemoLength bounds the optional transaction memo.
const maxMemoLength = 10

// Transaction is a signed transfer of Amount base units from one account to
// another. The fee is burned when the transaction is applied. A transaction
// is immutable once signed; mutating any signed field invalidates the
// signature.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	From      Address   `json:"from"`
	To        Address   `json:"to"`
	Amount    Amount    `json:"amount"`
	Fee       Amount    `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
	Nonce     uint64    `json:"nonce"`
	Memo      string    `json:"memo,omitempty"`
	// PublicKey is the sender's ed25519 key; the From address must be its
	// hash or verification fails.
	PublicKey []byte `json:"public_key"`
	Signature []byte `json:"signature"`
}

// NewTransaction builds and signs a transfer. The From address is derived
// from the supplied key, so callers cannot sign on behalf of another account.
func NewTransaction(to Address, amount, fee Amount, memo string, priv ed25519.PrivateKey) (*Transaction, error) {
	if len(memo) > maxMemoLength {
		return nil, InvalidInput("memo cannot exceed %d characters", maxMemoLength)
	}
	for _, c := range memo {
		if c > 126 || c < 32 {
			return nil, InvalidInput("memo must contain only printable ASCII")
		}
	}
	if to.IsZero() {
		return nil, &NodeError{Kind: KindInvalidAddress, Msg: "destination address is unset"}
	}

	pub := priv.Public().(ed25519.PublicKey)
	now := time.Now().UTC()
	tx := &Transaction{
		ID:        uuid.New(),
		From:      AddressFromPublicKey(pub),
		To:        to,
		Amount:    amount,
		Fee:       fee,
		Timestamp: now,
		Nonce:     uint64(now.UnixNano()),
		Memo:      memo,
		PublicKey: append([]byte(nil), pub...),
	}
	tx.Signature = ed25519.Sign(priv, tx.signingDigest())
	return tx, nil
}

// Verify checks the signature and that the sender address matches the
// embedded public key. It performs no balance checks.
func (tx *Transaction) Verify() error {
	if len(tx.PublicKey) != ed25519.PublicKeySize {
		return &NodeError{Kind: KindInvalidSignature, Msg: "bad public key length"}
	}
	derived := AddressFromPublicKey(ed25519.PublicKey(tx.PublicKey))
	if derived.Comparable() != tx.From.Comparable() {
		return &NodeError{Kind: KindInvalidSignature, Msg: "sender address does not match public key"}
	}
	if len(tx.Signature) != ed25519.SignatureSize {
		return &NodeError{Kind: KindInvalidSignature, Msg: "bad signature length"}
	}
	if !ed25519.Verify(ed25519.PublicKey(tx.PublicKey), tx.signingDigest(), tx.Signature) {
		return &NodeError{Kind: KindInvalidSignature, Msg: "signature verification failed"}
	}
	return nil
}

// Total returns amount+fee with overflow checking.
func (tx *Transaction) Total() (Amount, error) {
	return tx.Amount.Add(tx.Fee)
}

// signingDigest hashes the canonical transaction fields. The signature and
// the public key itself are excluded; everything else is covered.
func (tx *Transaction) signingDigest() []byte {
	// Addresses are hashed in comparable form so a transaction that has
	// round-tripped through its display encoding still verifies.
	from := tx.From.Comparable()
	to := tx.To.Comparable()

	var buf bytes.Buffer
	buf.Write(tx.ID[:])
	buf.Write(from[:])
	buf.Write(to[:])

	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(tx.Amount))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], uint64(tx.Fee))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], uint64(tx.Timestamp.UnixNano()))
	buf.Write(scratch[:])
	binary.LittleEndian.PutUint64(scratch[:], tx.Nonce)
	buf.Write(scratch[:])
	buf.WriteString(tx.Memo)

	sum := sha256.Sum256(buf.Bytes())
	return sum[:]
}
