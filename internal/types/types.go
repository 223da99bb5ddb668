// Package types defines the core domain models for the Paradigm node (pard).
// It contains the Address and Amount primitives, the network and economic
// constants, and the transaction, work-unit and synchronization models shared
// across the node. Amounts are integer counts of the smallest token unit
// (8 implied decimal places); floating point never enters amount arithmetic.
package types

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Version is the current version of pard
const Version = "0.1.0"

// BuildTime is set at build time via -ldflags
var BuildTime = "dev"

// Network constants
const (
	ProtocolVersion = "paradigm/1.0.0"
	DefaultPort     = 8080
	MaxPeers        = 50
)

// Economic constants. Amounts carry 8 implied decimal places, so one PAR is
// 100_000_000 base units.
const (
	Decimals            = 8
	UnitsPerPAR  Amount = 100_000_000
	TotalSupply  Amount = 8_000_000_000 * UnitsPerPAR
	BaseReward   Amount = 100 * UnitsPerPAR
	TreasurySeed Amount = 1_000_000 * UnitsPerPAR
)

// ML task and consensus constants
const (
	MinTaskDifficulty = 1
	MaxTaskDifficulty = 10
	ConsensusTimeout  = 30 * time.Second
)

// AddressLength is the raw byte length of an Address.
const AddressLength = 32

// addressDisplayBytes is how many leading bytes appear in the string form.
const addressDisplayBytes = 20

const addressPrefix = "PAR"

// Address identifies an account. It is derived from an ed25519 public key by
// a one-way hash and is stable for the lifetime of the key. Equality and map
// keying work on the raw bytes.
type Address [AddressLength]byte

// AddressFromPublicKey derives the canonical address for a public key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	var addr Address
	sum := sha256.Sum256(pub)
	copy(addr[:], sum[:])
	return addr
}

// ParseAddress parses the display form ("PAR" + 40 hex chars). The trailing
// 12 bytes of the raw address are not part of the display form and come back
// zeroed; comparisons between parsed and derived addresses must go through
// Comparable.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if !strings.HasPrefix(s, addressPrefix) {
		return addr, &NodeError{Kind: KindInvalidAddress, Msg: "address must start with " + addressPrefix}
	}
	hexPart := s[len(addressPrefix):]
	if len(hexPart) != addressDisplayBytes*2 {
		return addr, &NodeError{Kind: KindInvalidAddress, Msg: "invalid address length"}
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return addr, &NodeError{Kind: KindInvalidAddress, Msg: "address is not valid hex"}
	}
	copy(addr[:addressDisplayBytes], raw)
	return addr, nil
}

// String returns the display form: "PAR" followed by the first 20 bytes hex
// encoded.
func (a Address) String() string {
	return addressPrefix + hex.EncodeToString(a[:addressDisplayBytes])
}

// IsZero reports whether the address is entirely unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Comparable reduces an address to its display prefix so that parsed and
// derived forms of the same account compare equal.
func (a Address) Comparable() Address {
	var out Address
	copy(out[:addressDisplayBytes], a[:addressDisplayBytes])
	return out
}

// MarshalText implements encoding.TextMarshaler; addresses travel as their
// display form in JSON and in SQLite columns.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Amount counts base token units. All arithmetic must go through the checked
// helpers; a raw + or - on Amounts is a bug.
type Amount uint64

// Add returns a+b or an overflow error.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return 0, &NodeError{Kind: KindTransaction, Msg: "amount overflow"}
	}
	return sum, nil
}

// Sub returns a-b or an underflow error.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, &NodeError{Kind: KindTransaction, Msg: "amount underflow"}
	}
	return a - b, nil
}

// MulScore scales the amount by a fixed-point multiplier expressed in
// hundredths (150 = 1.5x). Integer arithmetic only.
func (a Amount) MulScore(hundredths int64) (Amount, error) {
	if hundredths < 0 {
		return 0, &NodeError{Kind: KindInvalidInput, Msg: "negative score multiplier"}
	}
	h := Amount(hundredths)
	if h != 0 && a > ^Amount(0)/h {
		return 0, &NodeError{Kind: KindTransaction, Msg: "amount overflow"}
	}
	return a * h / 100, nil
}

// Format renders the amount for humans, e.g. "100.00000000 PAR". This is the
// only place a decimal point appears; internally amounts stay integral.
func (a Amount) Format() string {
	return fmt.Sprintf("%d.%08d PAR", uint64(a)/uint64(UnitsPerPAR), uint64(a)%uint64(UnitsPerPAR))
}
