package ledger

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/chainlab-dev/chainlab/internal/avm"
)

// Ledger is the in-process chain state. All mutation goes through ApplyGroup
// (or Fund), which is atomic: a failing transaction leaves no trace of the
// group.
type Ledger struct {
	mu       sync.Mutex
	round    uint64
	accounts map[string]uint64
	apps     map[uint64]*App
	nextApp  uint64
	txlog    []TxRecord
	budget   int
	log      *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger attaches a zap logger for internals tracing.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithBudget overrides the VM cost budget.
func WithBudget(budget int) Option {
	return func(l *Ledger) { l.budget = budget }
}

// New creates an empty ledger at round 0 with app IDs starting at 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]uint64),
		apps:     make(map[uint64]*App),
		nextApp:  1,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Round returns the current round.
func (l *Ledger) Round() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.round
}

// Balance returns the balance of addr (0 for unknown accounts).
func (l *Ledger) Balance(addr string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[addr]
}

// Fund mints amount into addr. It stands in for an external faucet and is
// recorded in the log with an empty sender.
func (l *Ledger) Fund(addr string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[addr] += amount
	l.round++
	l.txlog = append(l.txlog, TxRecord{
		Round:    l.round,
		Type:     avm.TypePay,
		Receiver: addr,
		Amount:   amount,
	})
	l.log.Debug("faucet fund", zap.String("addr", addr), zap.Uint64("amount", amount))
}

// App returns a deep copy of the app, so callers can't mutate ledger state.
func (l *Ledger) App(id uint64) (*App, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	app, ok := l.apps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAppNotFound, id)
	}
	return app.clone(), nil
}

// Apps returns copies of all deployed apps ordered by ID.
func (l *Ledger) Apps() []*App {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*App, 0, len(l.apps))
	for _, a := range l.apps {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Log returns the committed transaction records, oldest first.
func (l *Ledger) Log() []TxRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]TxRecord(nil), l.txlog...)
}

// ApplyGroup verifies and applies a transaction group atomically. On any
// failure the ledger is unchanged and the error names the offending
// transaction.
func (l *Ledger) ApplyGroup(group []SignedTxn) (*GroupResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(group) == 0 {
		return nil, ErrEmptyGroup
	}
	if len(group) > MaxGroupSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrGroupTooLarge, len(group), MaxGroupSize)
	}

	for i := range group {
		if err := group[i].Verify(); err != nil {
			return nil, fmt.Errorf("txn %d: %w", i, err)
		}
	}

	// Work on copies; swap in only when every transaction succeeds.
	accounts := make(map[string]uint64, len(l.accounts))
	for k, v := range l.accounts {
		accounts[k] = v
	}
	apps := make(map[uint64]*App, len(l.apps))
	for k, v := range l.apps {
		apps[k] = v.clone()
	}
	nextApp := l.nextApp

	vmGroup := make([]avm.Txn, len(group))
	for i := range group {
		vmGroup[i] = group[i].Txn.VMTxn(i)
	}

	result := &GroupResult{
		Round:  l.round + 1,
		TxIDs:  make([]string, len(group)),
		AppIDs: make([]uint64, len(group)),
	}

	for i := range group {
		txn := &group[i].Txn
		result.TxIDs[i] = txn.ID()

		var err error
		switch txn.Type {
		case avm.TypePay:
			err = applyPayment(accounts, txn)
		case avm.TypeAppl:
			var createdID uint64
			createdID, err = l.applyAppCall(accounts, apps, &nextApp, vmGroup, i, txn)
			result.AppIDs[i] = createdID
		default:
			err = fmt.Errorf("%w: unknown type %d", ErrBadTransaction, txn.Type)
		}
		if err != nil {
			l.log.Debug("group rejected",
				zap.Int("txn", i),
				zap.String("txid", result.TxIDs[i]),
				zap.Error(err),
			)
			return nil, fmt.Errorf("txn %d: %w", i, err)
		}
	}

	// Commit.
	l.accounts = accounts
	l.apps = apps
	l.nextApp = nextApp
	l.round++
	for i := range group {
		txn := &group[i].Txn
		rec := TxRecord{
			Round:        l.round,
			TxID:         result.TxIDs[i],
			Type:         txn.Type,
			Sender:       txn.Sender,
			Receiver:     txn.Receiver,
			Amount:       txn.Amount,
			AppID:        txn.AppID,
			OnCompletion: txn.OnCompletion,
		}
		if rec.AppID == 0 && result.AppIDs[i] != 0 {
			rec.AppID = result.AppIDs[i]
		}
		result.Records = append(result.Records, rec)
	}
	l.txlog = append(l.txlog, result.Records...)
	l.log.Debug("group committed", zap.Uint64("round", l.round), zap.Int("txns", len(group)))
	return result, nil
}

func applyPayment(accounts map[string]uint64, txn *Transaction) error {
	if txn.Receiver == "" {
		return fmt.Errorf("%w: payment without receiver", ErrBadTransaction)
	}
	if accounts[txn.Sender] < txn.Amount {
		return fmt.Errorf("%w: %s has %d, needs %d",
			ErrInsufficient, txn.Sender, accounts[txn.Sender], txn.Amount)
	}
	accounts[txn.Sender] -= txn.Amount
	accounts[txn.Receiver] += txn.Amount
	return nil
}

// applyAppCall runs the approval program against the staged state and, on
// approval, applies the OnCompletion effect. Returns the new app ID when the
// call was a create.
func (l *Ledger) applyAppCall(
	accounts map[string]uint64,
	apps map[uint64]*App,
	nextApp *uint64,
	vmGroup []avm.Txn,
	idx int,
	txn *Transaction,
) (uint64, error) {
	creating := txn.AppID == 0

	var app *App
	if creating {
		if txn.OnCompletion != avm.OnNoOp {
			return 0, fmt.Errorf("%w: create must be a NoOp call", ErrBadTransaction)
		}
		if txn.ApprovalSrc == "" || txn.ClearSrc == "" {
			return 0, fmt.Errorf("%w: create needs approval and clear programs", ErrBadTransaction)
		}
		if accounts[txn.Sender] < MinBalance {
			return 0, fmt.Errorf("%w: creator %s has %d", ErrBelowMin, txn.Sender, accounts[txn.Sender])
		}
		app = &App{
			Creator:  txn.Sender,
			Approval: txn.ApprovalSrc,
			Clear:    txn.ClearSrc,
			Globals:  make(avm.GlobalState),
			OptedIn:  make(map[string]bool),
		}
	} else {
		var ok bool
		app, ok = apps[txn.AppID]
		if !ok {
			return 0, fmt.Errorf("%w: %d", ErrAppNotFound, txn.AppID)
		}
	}

	prog, err := avm.Assemble(app.Approval)
	if err != nil {
		return 0, err
	}
	ctx := &avm.Context{
		Group:    vmGroup,
		TxnIndex: idx,
		Globals:  app.Globals.Clone(),
		Budget:   l.budget,
		Log:      l.log,
	}
	approved, err := avm.Eval(prog, ctx)
	if err != nil {
		return 0, err
	}
	if !approved {
		return 0, ErrRejected
	}
	app.Globals = ctx.Globals

	switch txn.OnCompletion {
	case avm.OnNoOp:
		if creating {
			app.ID = *nextApp
			*nextApp++
			apps[app.ID] = app
			return app.ID, nil
		}
	case avm.OnOptIn:
		if accounts[txn.Sender] < MinBalance {
			return 0, fmt.Errorf("%w: %s has %d", ErrBelowMin, txn.Sender, accounts[txn.Sender])
		}
		app.OptedIn[txn.Sender] = true
	case avm.OnCloseOut:
		if !app.OptedIn[txn.Sender] {
			return 0, fmt.Errorf("%w: %s in app %d", ErrNotOptedIn, txn.Sender, app.ID)
		}
		delete(app.OptedIn, txn.Sender)
	case avm.OnUpdate:
		if txn.ApprovalSrc == "" || txn.ClearSrc == "" {
			return 0, fmt.Errorf("%w: update needs approval and clear programs", ErrBadTransaction)
		}
		if _, err := avm.Assemble(txn.ApprovalSrc); err != nil {
			return 0, err
		}
		if _, err := avm.Assemble(txn.ClearSrc); err != nil {
			return 0, err
		}
		app.Approval = txn.ApprovalSrc
		app.Clear = txn.ClearSrc
	case avm.OnDelete:
		delete(apps, app.ID)
	default:
		return 0, fmt.Errorf("%w: unknown OnCompletion %d", ErrBadTransaction, txn.OnCompletion)
	}
	return 0, nil
}

// Simulate evaluates the app call at index idx of an unsigned group against
// a snapshot of current state, committing nothing. It returns the VM context
// it ran under and the app, for dry-run capture and debugging.
func (l *Ledger) Simulate(group []Transaction, idx int) (*avm.Context, *App, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx < 0 || idx >= len(group) {
		return nil, nil, fmt.Errorf("%w: txn index %d of %d", ErrBadTransaction, idx, len(group))
	}
	txn := &group[idx]
	if txn.Type != avm.TypeAppl {
		return nil, nil, fmt.Errorf("%w: txn %d is not an app call", ErrBadTransaction, idx)
	}
	app, ok := l.apps[txn.AppID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrAppNotFound, txn.AppID)
	}

	vmGroup := make([]avm.Txn, len(group))
	for i := range group {
		vmGroup[i] = group[i].VMTxn(i)
	}
	ctx := &avm.Context{
		Group:    vmGroup,
		TxnIndex: idx,
		Globals:  app.Globals.Clone(),
		Budget:   l.budget,
		Log:      l.log,
	}
	return ctx, app.clone(), nil
}
