package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// snapshot is the at-rest form of the ledger, one JSON file.
type snapshot struct {
	Round    uint64            `json:"round"`
	Accounts map[string]uint64 `json:"accounts"`
	NextApp  uint64            `json:"next_app"`
	Apps     []*App            `json:"apps"`
	TxLog    []TxRecord        `json:"tx_log"`
}

// Save writes the full ledger state to path.
func (l *Ledger) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := snapshot{
		Round:    l.round,
		Accounts: l.accounts,
		NextApp:  l.nextApp,
		TxLog:    l.txlog,
	}
	ids := make([]uint64, 0, len(l.apps))
	for id := range l.apps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		snap.Apps = append(snap.Apps, l.apps[id])
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads ledger state from path. A missing file yields a fresh ledger.
func Load(path string, opts ...Option) (*Ledger, error) {
	l := New(opts...)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing ledger: %w", err)
	}

	l.round = snap.Round
	l.nextApp = snap.NextApp
	if l.nextApp == 0 {
		l.nextApp = 1
	}
	if snap.Accounts != nil {
		l.accounts = snap.Accounts
	}
	l.txlog = snap.TxLog
	for _, a := range snap.Apps {
		if a.OptedIn == nil {
			a.OptedIn = make(map[string]bool)
		}
		l.apps[a.ID] = a
	}
	return l, nil
}
