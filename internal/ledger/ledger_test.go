package ledger_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlab-dev/chainlab/internal/avm"
	"github.com/chainlab-dev/chainlab/internal/contract"
	"github.com/chainlab-dev/chainlab/internal/keys"
	"github.com/chainlab-dev/chainlab/internal/ledger"
)

func newAccount(t *testing.T) *keys.KeyPair {
	t.Helper()
	kp, err := keys.Generate()
	require.NoError(t, err)
	return kp
}

func pay(t *testing.T, kp *keys.KeyPair, to string, amount uint64) ledger.SignedTxn {
	t.Helper()
	stxn, err := ledger.Sign(ledger.Transaction{
		Type:     avm.TypePay,
		Sender:   kp.Address(),
		Receiver: to,
		Amount:   amount,
	}, kp)
	require.NoError(t, err)
	return stxn
}

func appCall(t *testing.T, kp *keys.KeyPair, appID, oc uint64) ledger.SignedTxn {
	t.Helper()
	stxn, err := ledger.Sign(ledger.Transaction{
		Type:         avm.TypeAppl,
		Sender:       kp.Address(),
		AppID:        appID,
		OnCompletion: oc,
	}, kp)
	require.NoError(t, err)
	return stxn
}

// deployCounter funds owner, deploys the contract, and returns the app ID.
func deployCounter(t *testing.T, l *ledger.Ledger, owner *keys.KeyPair, fixed bool) uint64 {
	t.Helper()
	l.Fund(owner.Address(), 100_000_000)

	id := "counter"
	if !fixed {
		id = "counter-buggy"
	}
	b, ok := contract.GetBuiltin(id)
	require.True(t, ok)
	approval, err := b.Approval()
	require.NoError(t, err)
	clear, err := b.Clear()
	require.NoError(t, err)

	stxn, err := ledger.Sign(ledger.Transaction{
		Type:        avm.TypeAppl,
		Sender:      owner.Address(),
		ApprovalSrc: approval,
		ClearSrc:    clear,
	}, owner)
	require.NoError(t, err)

	res, err := l.ApplyGroup([]ledger.SignedTxn{stxn})
	require.NoError(t, err)
	require.NotZero(t, res.AppIDs[0])
	return res.AppIDs[0]
}

// callGroup builds and signs the payment+call group.
func callGroup(t *testing.T, caller *keys.KeyPair, owner string, appID, amount uint64) []ledger.SignedTxn {
	t.Helper()
	return []ledger.SignedTxn{
		pay(t, caller, owner, amount),
		appCall(t, caller, appID, avm.OnNoOp),
	}
}

func counterOf(t *testing.T, l *ledger.Ledger, appID uint64) uint64 {
	t.Helper()
	app, err := l.App(appID)
	require.NoError(t, err)
	v := app.Globals[contract.KeyCounter]
	require.Equal(t, avm.KindUint, v.Kind)
	return v.Uint
}

func TestFundAndPay(t *testing.T) {
	l := ledger.New()
	alice := newAccount(t)
	bob := newAccount(t)

	l.Fund(alice.Address(), 1_000_000)
	assert.Equal(t, uint64(1_000_000), l.Balance(alice.Address()))

	_, err := l.ApplyGroup([]ledger.SignedTxn{pay(t, alice, bob.Address(), 300_000)})
	require.NoError(t, err)
	assert.Equal(t, uint64(700_000), l.Balance(alice.Address()))
	assert.Equal(t, uint64(300_000), l.Balance(bob.Address()))
}

func TestPaymentInsufficientBalance(t *testing.T) {
	l := ledger.New()
	alice := newAccount(t)
	bob := newAccount(t)
	l.Fund(alice.Address(), 100)

	_, err := l.ApplyGroup([]ledger.SignedTxn{pay(t, alice, bob.Address(), 200)})
	assert.ErrorIs(t, err, ledger.ErrInsufficient)
	assert.Equal(t, uint64(100), l.Balance(alice.Address()))
}

func TestSignatureRequired(t *testing.T) {
	l := ledger.New()
	alice := newAccount(t)
	mallory := newAccount(t)
	l.Fund(alice.Address(), 1_000_000)

	// Mallory cannot sign for Alice's address.
	stxn := pay(t, alice, mallory.Address(), 500_000)
	stxn.Sig = mallory.Sign([]byte("forged"))
	_, err := l.ApplyGroup([]ledger.SignedTxn{stxn})
	assert.Error(t, err)
	assert.Equal(t, uint64(1_000_000), l.Balance(alice.Address()))

	// Tampering with a signed txn invalidates it.
	stxn = pay(t, alice, mallory.Address(), 500_000)
	stxn.Txn.Amount = 999_999
	_, err = l.ApplyGroup([]ledger.SignedTxn{stxn})
	assert.Error(t, err)
}

func TestDeployAndIncrement(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, true)
	assert.Equal(t, uint64(0), counterOf(t, l, appID))

	l.Fund(bob.Address(), 50_000_000)
	_, err := l.ApplyGroup(callGroup(t, bob, owner.Address(), appID, contract.PaymentThreshold))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), counterOf(t, l, appID))
	// The payment landed with the owner.
	assert.Equal(t, uint64(100_000_000+contract.PaymentThreshold), l.Balance(owner.Address()))
}

func TestBuggyUnderflowRollsBackWholeGroup(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, false)
	l.Fund(bob.Address(), 50_000_000)

	ownerBefore := l.Balance(owner.Address())
	bobBefore := l.Balance(bob.Address())
	roundBefore := l.Round()

	// counter == 0, below-threshold payment: the buggy decrement underflows.
	_, err := l.ApplyGroup(callGroup(t, bob, owner.Address(), appID, 1_000_000))
	require.ErrorIs(t, err, avm.ErrUnderflow)

	// Atomicity: the payment in txn 0 must be rolled back too.
	assert.Equal(t, ownerBefore, l.Balance(owner.Address()))
	assert.Equal(t, bobBefore, l.Balance(bob.Address()))
	assert.Equal(t, roundBefore, l.Round())
	assert.Equal(t, uint64(0), counterOf(t, l, appID))
}

func TestFixedBuildClampsAtZeroOnLedger(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, true)
	l.Fund(bob.Address(), 50_000_000)

	// Below threshold at counter 0: approved, counter stays 0.
	_, err := l.ApplyGroup(callGroup(t, bob, owner.Address(), appID, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), counterOf(t, l, appID))
}

func TestUpdateReplacesBuggyBuild(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, false)
	l.Fund(bob.Address(), 50_000_000)

	fixed, ok := contract.GetBuiltin("counter")
	require.True(t, ok)
	approval, err := fixed.Approval()
	require.NoError(t, err)
	clear, err := fixed.Clear()
	require.NoError(t, err)

	update := ledger.Transaction{
		Type:         avm.TypeAppl,
		Sender:       owner.Address(),
		AppID:        appID,
		OnCompletion: avm.OnUpdate,
		ApprovalSrc:  approval,
		ClearSrc:     clear,
	}

	// A non-owner may not update.
	badUpdate := update
	badUpdate.Sender = bob.Address()
	badStxn, err := ledger.Sign(badUpdate, bob)
	require.NoError(t, err)
	_, err = l.ApplyGroup([]ledger.SignedTxn{badStxn})
	assert.ErrorIs(t, err, ledger.ErrRejected)

	// The owner may.
	stxn, err := ledger.Sign(update, owner)
	require.NoError(t, err)
	_, err = l.ApplyGroup([]ledger.SignedTxn{stxn})
	require.NoError(t, err)

	// The fault is gone: below-threshold at counter 0 now approves.
	_, err = l.ApplyGroup(callGroup(t, bob, owner.Address(), appID, 1_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), counterOf(t, l, appID))
}

func TestDeleteIsOwnerGated(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, true)
	l.Fund(bob.Address(), 1_000_000)

	_, err := l.ApplyGroup([]ledger.SignedTxn{appCall(t, bob, appID, avm.OnDelete)})
	assert.ErrorIs(t, err, ledger.ErrRejected)
	_, err = l.App(appID)
	require.NoError(t, err)

	_, err = l.ApplyGroup([]ledger.SignedTxn{appCall(t, owner, appID, avm.OnDelete)})
	require.NoError(t, err)
	_, err = l.App(appID)
	assert.ErrorIs(t, err, ledger.ErrAppNotFound)
}

func TestOptInAndCloseOut(t *testing.T) {
	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)

	appID := deployCounter(t, l, owner, true)
	l.Fund(bob.Address(), 1_000_000)

	_, err := l.ApplyGroup([]ledger.SignedTxn{appCall(t, bob, appID, avm.OnOptIn)})
	require.NoError(t, err)
	app, err := l.App(appID)
	require.NoError(t, err)
	assert.True(t, app.OptedIn[bob.Address()])

	_, err = l.ApplyGroup([]ledger.SignedTxn{appCall(t, bob, appID, avm.OnCloseOut)})
	require.NoError(t, err)
	app, err = l.App(appID)
	require.NoError(t, err)
	assert.False(t, app.OptedIn[bob.Address()])

	// Closing out twice fails.
	_, err = l.ApplyGroup([]ledger.SignedTxn{appCall(t, bob, appID, avm.OnCloseOut)})
	assert.ErrorIs(t, err, ledger.ErrNotOptedIn)
}

func TestCreateRequiresMinBalance(t *testing.T) {
	l := ledger.New()
	poor := newAccount(t)
	l.Fund(poor.Address(), ledger.MinBalance-1)

	b, ok := contract.GetBuiltin("counter")
	require.True(t, ok)
	approval, err := b.Approval()
	require.NoError(t, err)
	clear, err := b.Clear()
	require.NoError(t, err)

	stxn, err := ledger.Sign(ledger.Transaction{
		Type:        avm.TypeAppl,
		Sender:      poor.Address(),
		ApprovalSrc: approval,
		ClearSrc:    clear,
	}, poor)
	require.NoError(t, err)

	_, err = l.ApplyGroup([]ledger.SignedTxn{stxn})
	assert.ErrorIs(t, err, ledger.ErrBelowMin)
}

func TestGroupSizeLimits(t *testing.T) {
	l := ledger.New()
	alice := newAccount(t)
	l.Fund(alice.Address(), 100_000_000)

	_, err := l.ApplyGroup(nil)
	assert.ErrorIs(t, err, ledger.ErrEmptyGroup)

	group := make([]ledger.SignedTxn, 0, ledger.MaxGroupSize+1)
	for i := 0; i < ledger.MaxGroupSize+1; i++ {
		group = append(group, pay(t, alice, alice.Address(), 1))
	}
	_, err = l.ApplyGroup(group)
	assert.ErrorIs(t, err, ledger.ErrGroupTooLarge)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l := ledger.New()
	owner := newAccount(t)
	bob := newAccount(t)
	appID := deployCounter(t, l, owner, true)
	l.Fund(bob.Address(), 50_000_000)
	_, err := l.ApplyGroup(callGroup(t, bob, owner.Address(), appID, contract.PaymentThreshold))
	require.NoError(t, err)

	require.NoError(t, l.Save(path))

	loaded, err := ledger.Load(path)
	require.NoError(t, err)
	assert.Equal(t, l.Round(), loaded.Round())
	assert.Equal(t, l.Balance(owner.Address()), loaded.Balance(owner.Address()))
	assert.Equal(t, uint64(1), counterOf(t, loaded, appID))
	assert.Len(t, loaded.Log(), len(l.Log()))

	// The reloaded ledger keeps working.
	_, err = loaded.ApplyGroup(callGroup(t, bob, owner.Address(), appID, contract.PaymentThreshold))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), counterOf(t, loaded, appID))
}

func TestLoadMissingFileYieldsFreshLedger(t *testing.T) {
	l, err := ledger.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), l.Round())
}

func TestTxIDStableAndUnique(t *testing.T) {
	a := ledger.Transaction{Type: avm.TypePay, Sender: "A", Receiver: "B", Amount: 1}
	b := a
	assert.Equal(t, a.ID(), b.ID())

	b.Amount = 2
	assert.NotEqual(t, a.ID(), b.ID())
}
