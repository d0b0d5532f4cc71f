package keys

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

// Account types.
const (
	TypeWatchOnly = "watch-only"
	TypeSigning   = "signing"
)

// Errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// Account holds metadata for a single named account.
type Account struct {
	Name      string
	Address   string
	Type      string
	KeyRef    string // keystore reference for signing accounts
	IsDefault bool
	CreatedAt string
}

// Store is an interface for persisting accounts.
type Store interface {
	Load() ([]*Account, error)
	Save([]*Account) error
}

// Manager handles account CRUD.
type Manager struct {
	store    Store
	keystore SeedStore
	accounts map[string]*Account
	loaded   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithInMemoryStore uses in-memory account and seed stores (useful for tests).
func WithInMemoryStore() Option {
	return func(m *Manager) {
		m.store = &memStore{}
		m.keystore = NewInMemoryKeystore()
	}
}

// WithStore sets a custom account store.
func WithStore(s Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithKeystore sets a custom seed store.
func WithKeystore(ks SeedStore) Option {
	return func(m *Manager) {
		m.keystore = ks
	}
}

// NewManager creates a new account manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		accounts: make(map[string]*Account),
		store:    &memStore{},
		keystore: NewInMemoryKeystore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers a watch-only (or pre-built) account.
func (m *Manager) Add(name string, a *Account) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, exists := m.accounts[name]; exists {
		return ErrAccountExists
	}
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.accounts[name] = a
	return m.persist()
}

// AddWithSeed derives an address from a hex seed and stores the account.
// The seed goes into the keystore, never the account file.
func (m *Manager) AddWithSeed(name, hexSeed string) (*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	if _, exists := m.accounts[name]; exists {
		return nil, ErrAccountExists
	}

	kp, err := FromHexSeed(hexSeed)
	if err != nil {
		return nil, err
	}

	ref, err := m.keystore.Store(name, kp.SeedHex())
	if err != nil {
		return nil, err
	}

	a := &Account{
		Name:      name,
		Address:   kp.Address(),
		Type:      TypeSigning,
		KeyRef:    ref,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.accounts[name] = a
	return a, m.persist()
}

// New generates a fresh keypair and stores it under name.
func (m *Manager) New(name string) (*Account, error) {
	kp, err := Generate()
	if err != nil {
		return nil, err
	}
	return m.AddWithSeed(name, kp.SeedHex())
}

// Signer returns the keypair for a signing account.
func (m *Manager) Signer(name string) (*KeyPair, error) {
	a, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	if a.Type != TypeSigning {
		return nil, errors.New("account is watch-only — it has no stored key")
	}
	hexSeed, err := m.keystore.Retrieve(a.KeyRef)
	if err != nil {
		return nil, err
	}
	return FromHexSeed(hexSeed)
}

// Get returns an account by name.
func (m *Manager) Get(name string) (*Account, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	a, ok := m.accounts[name]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// Remove deletes an account by name and drops its seed from the keystore.
func (m *Manager) Remove(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	a, ok := m.accounts[name]
	if !ok {
		return ErrAccountNotFound
	}
	if a.KeyRef != "" {
		m.keystore.Delete(a.KeyRef) //nolint:errcheck
	}
	delete(m.accounts, name)
	return m.persist()
}

// List returns all accounts.
func (m *Manager) List() []*Account {
	m.load() //nolint:errcheck
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out
}

// SetDefault marks an account as the default.
func (m *Manager) SetDefault(name string) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, ok := m.accounts[name]; !ok {
		return ErrAccountNotFound
	}
	for _, a := range m.accounts {
		a.IsDefault = a.Name == name
	}
	return m.persist()
}

// Default returns the default account, or nil if none.
func (m *Manager) Default() *Account {
	m.load() //nolint:errcheck
	for _, a := range m.accounts {
		if a.IsDefault {
			return a
		}
	}
	// Fallback: return first account if only one exists.
	if len(m.accounts) == 1 {
		for _, a := range m.accounts {
			return a
		}
	}
	return nil
}

// --- internal ---

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	accounts, err := m.store.Load()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		m.accounts[a.Name] = a
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	accounts := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	return m.store.Save(accounts)
}

// --- in-memory store ---

type memStore struct {
	accounts []*Account
}

func (s *memStore) Load() ([]*Account, error) {
	return s.accounts, nil
}

func (s *memStore) Save(accounts []*Account) error {
	s.accounts = accounts
	return nil
}

// --- JSON file store ---

// JSONStore persists accounts to a JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed account store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Load() ([]*Account, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var accounts []*Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *JSONStore) Save(accounts []*Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
