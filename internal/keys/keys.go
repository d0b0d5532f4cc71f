package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Errors.
var (
	ErrInvalidSeed    = errors.New("invalid private key seed")
	ErrInvalidAddress = errors.New("invalid address")
)

const (
	addrDigestLen   = 20 // blake2b-160 of the public key
	addrChecksumLen = 4
)

// b32 is the address alphabet: uppercase base32, no padding.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// KeyPair is an ed25519 signing keypair.
type KeyPair struct {
	Pub  ed25519.PublicKey
	Priv ed25519.PrivateKey
}

// Generate creates a fresh random keypair.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Pub: pub, Priv: priv}, nil
}

// FromHexSeed derives a keypair from a 32-byte hex-encoded seed.
func FromHexSeed(hexSeed string) (*KeyPair, error) {
	seed, err := hex.DecodeString(stripHexPrefix(hexSeed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidSeed, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{Pub: priv.Public().(ed25519.PublicKey), Priv: priv}, nil
}

// SeedHex returns the hex-encoded 32-byte seed of the private key.
func (k *KeyPair) SeedHex() string {
	return hex.EncodeToString(k.Priv.Seed())
}

// Address returns the account address for the public key.
func (k *KeyPair) Address() string {
	return AddressFromPubKey(k.Pub)
}

// Sign signs msg with the private key.
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Priv, msg)
}

// AddressFromPubKey derives the textual address of an ed25519 public key:
// base32(blake2b-160(pub) || checksum). The checksum is the first 4 bytes of
// blake2b-256 over the 20-byte digest.
func AddressFromPubKey(pub ed25519.PublicKey) string {
	digest := addrDigest(pub)
	return b32.EncodeToString(append(digest, checksum(digest)...))
}

// DecodeAddress validates addr and returns the 20-byte account digest.
func DecodeAddress(addr string) ([]byte, error) {
	raw, err := b32.DecodeString(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != addrDigestLen+addrChecksumLen {
		return nil, fmt.Errorf("%w: wrong length %d", ErrInvalidAddress, len(raw))
	}
	digest := raw[:addrDigestLen]
	if string(raw[addrDigestLen:]) != string(checksum(digest)) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return digest, nil
}

// IsValidAddress reports whether addr parses and checksums correctly.
func IsValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

// Verify checks an ed25519 signature and that the public key matches addr.
func Verify(addr string, pub ed25519.PublicKey, msg, sig []byte) error {
	if AddressFromPubKey(pub) != addr {
		return fmt.Errorf("%w: public key does not match sender", ErrInvalidAddress)
	}
	if !ed25519.Verify(pub, msg, sig) {
		return errors.New("signature verification failed")
	}
	return nil
}

func addrDigest(pub ed25519.PublicKey) []byte {
	h, _ := blake2b.New(addrDigestLen, nil)
	h.Write(pub)
	return h.Sum(nil)
}

func checksum(digest []byte) []byte {
	sum := blake2b.Sum256(digest)
	return sum[:addrChecksumLen]
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
