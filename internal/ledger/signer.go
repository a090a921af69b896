package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/services"
)

// ErrNotRequiredSigner indicates the cosigner key has no signature slot in the transaction.
var ErrNotRequiredSigner = errors.New("cosigner is not a required signer")

// Signer holds the service key and appends its signature to transactions.
type Signer struct {
	key solana.PrivateKey
}

// NewSigner wraps an existing private key.
func NewSigner(key solana.PrivateKey) (*Signer, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("%w: cosigner key must be 64 bytes, got %d", services.ErrConfiguration, len(key))
	}
	return &Signer{key: key}, nil
}

// LoadSigner reads the cosigner key from a base58 secret or a solana-keygen
// JSON file. The inline secret wins when both are set.
func LoadSigner(secret, keypairPath string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	keypairPath = strings.TrimSpace(keypairPath)
	switch {
	case secret != "":
		key, err := solana.PrivateKeyFromBase58(secret)
		if err != nil {
			return nil, fmt.Errorf("%w: parse cosigner key: %v", services.ErrConfiguration, err)
		}
		return NewSigner(key)
	case keypairPath != "":
		key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read cosigner keypair %s: %v", services.ErrConfiguration, keypairPath, err)
		}
		return NewSigner(key)
	default:
		return nil, fmt.Errorf("%w: no cosigner key configured", services.ErrConfiguration)
	}
}

// PublicKey returns the cosigner address.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Cosign signs the transaction message and stores the signature at the
// cosigner's required-signer slot. Every other signature, the fee payer, and
// the instructions are left untouched.
func (s *Signer) Cosign(tx *solana.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", services.ErrValidation)
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: malformed signer header", services.ErrValidation)
	}

	pub := s.key.PublicKey()
	slot := -1
	for i, key := range tx.Message.AccountKeys[:required] {
		if key.Equals(pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("%w: %s", ErrNotRequiredSigner, pub)
	}

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	signature, err := s.key.Sign(message)
	if err != nil {
		return fmt.Errorf("sign message: %w", err)
	}

	if len(tx.Signatures) < required {
		padded := make([]solana.Signature, required)
		copy(padded, tx.Signatures)
		tx.Signatures = padded
	}
	tx.Signatures[slot] = signature
	return nil
}
