// Package ledger implements the local single-node ledger: account balances,
// deployed applications with global state, and atomic transaction groups
// evaluated through the approval-program VM.
package ledger

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/base32"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/keys"
)

// MaxGroupSize bounds how many transactions one group may carry.
const MaxGroupSize = 16

// MinBalance is the balance floor required to create or opt into an app.
const MinBalance = 100_000

// Errors.
var (
	ErrEmptyGroup     = errors.New("empty transaction group")
	ErrGroupTooLarge  = errors.New("transaction group too large")
	ErrInsufficient   = errors.New("insufficient balance")
	ErrAppNotFound    = errors.New("application not found")
	ErrNotOptedIn     = errors.New("account not opted in")
	ErrRejected       = errors.New("approval program rejected")
	ErrBadTransaction = errors.New("malformed transaction")
	ErrBelowMin       = errors.New("balance below minimum for app state")
)

// signingDomain separates transaction signatures from any other use of the key.
var signingDomain = []byte("CLTX")

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Transaction is one payment or application call. String and uint64 fields
// keep the struct canonical under RLP for signing and txid derivation.
type Transaction struct {
	Type         uint64 // avm.TypePay or avm.TypeAppl
	Sender       string
	Receiver     string // payments only
	Amount       uint64 // payments only
	AppID        uint64 // app calls; 0 means create
	OnCompletion uint64
	ApprovalSrc  string // app create/update: approval program assembly
	ClearSrc     string // app create/update: clear program assembly
	Note         []byte
}

// SignedTxn pairs a transaction with its ed25519 authorization.
type SignedTxn struct {
	Txn    Transaction
	PubKey []byte
	Sig    []byte
}

// SigningBytes returns the canonical byte string covered by the signature.
func (t *Transaction) SigningBytes() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(t)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return append(append([]byte(nil), signingDomain...), enc...), nil
}

// ID derives the transaction ID: base32(sha512/256(signing bytes)).
func (t *Transaction) ID() string {
	msg, err := t.SigningBytes()
	if err != nil {
		return ""
	}
	sum := sha512.Sum512_256(msg)
	return b32.EncodeToString(sum[:])
}

// Sign signs the transaction with kp and returns the signed wrapper.
func Sign(t Transaction, kp *keys.KeyPair) (SignedTxn, error) {
	if kp.Address() != t.Sender {
		return SignedTxn{}, fmt.Errorf("%w: signer %s is not sender %s",
			ErrBadTransaction, kp.Address(), t.Sender)
	}
	msg, err := t.SigningBytes()
	if err != nil {
		return SignedTxn{}, err
	}
	return SignedTxn{
		Txn:    t,
		PubKey: append([]byte(nil), kp.Pub...),
		Sig:    kp.Sign(msg),
	}, nil
}

// Verify checks the signature against the sender address.
func (s *SignedTxn) Verify() error {
	msg, err := s.Txn.SigningBytes()
	if err != nil {
		return err
	}
	return keys.Verify(s.Txn.Sender, ed25519.PublicKey(s.PubKey), msg, s.Sig)
}

// VMTxn converts the transaction to the VM's view at group index idx.
func (t *Transaction) VMTxn(idx int) avm.Txn {
	return avm.Txn{
		Type:         t.Type,
		Sender:       []byte(t.Sender),
		Receiver:     []byte(t.Receiver),
		Amount:       t.Amount,
		AppID:        t.AppID,
		OnCompletion: t.OnCompletion,
		GroupIndex:   uint64(idx),
	}
}

// App is a deployed application.
type App struct {
	ID       uint64
	Creator  string
	Approval string // approval program assembly source
	Clear    string
	Globals  avm.GlobalState
	OptedIn  map[string]bool
}

func (a *App) clone() *App {
	out := &App{
		ID:       a.ID,
		Creator:  a.Creator,
		Approval: a.Approval,
		Clear:    a.Clear,
		Globals:  a.Globals.Clone(),
		OptedIn:  make(map[string]bool, len(a.OptedIn)),
	}
	for k, v := range a.OptedIn {
		out.OptedIn[k] = v
	}
	return out
}

// TxRecord is one committed transaction in the ledger log.
type TxRecord struct {
	Round        uint64
	TxID         string
	Type         uint64
	Sender       string
	Receiver     string
	Amount       uint64
	AppID        uint64
	OnCompletion uint64
}

// GroupResult reports a committed group.
type GroupResult struct {
	Round   uint64
	TxIDs   []string
	AppIDs  []uint64 // nonzero at positions that created an app
	Records []TxRecord
}
