package keys

import (
	"fmt"
	"runtime"

	"github.com/99designs/keyring"
)

const keychainService = "chainlab"

// SeedStore stores private key seeds by reference. The reference, not the
// seed, is what lands in the accounts file.
type SeedStore interface {
	Store(name, hexSeed string) (string, error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// DefaultKeystore opens the OS keychain. On headless systems where no
// keychain service is reachable it falls back to keyring's encrypted file
// backend under ~/.chainlab; if even that fails, seeds are held in memory
// for the life of the process.
func DefaultKeystore() SeedStore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  "~/.chainlab/keys",
		FilePasswordFunc:         keyring.FixedStringPrompt(keychainService),
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		if ring, err = keyring.Open(cfg); err != nil {
			return NewInMemoryKeystore()
		}
	}
	return &keychainStore{ring: ring}
}

// keychainStore backs SeedStore with a keyring.
type keychainStore struct {
	ring keyring.Keyring
}

func (s *keychainStore) Store(name, hexSeed string) (string, error) {
	ref := keychainService + "." + name
	err := s.ring.Set(keyring.Item{
		Key:  ref,
		Data: []byte(hexSeed),
	})
	if err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

func (s *keychainStore) Retrieve(ref string) (string, error) {
	item, err := s.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

func (s *keychainStore) Delete(ref string) error {
	return s.ring.Remove(ref)
}

// InMemoryKeystore stores seeds in memory (for tests).
type InMemoryKeystore struct {
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexSeed string) (string, error) {
	ref := keychainService + "." + name
	k.data[ref] = hexSeed
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("key not found: %s", ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	delete(k.data, ref)
	return nil
}
