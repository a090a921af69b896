package testsupport

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/ledger"
)

// NewKey returns a fresh ed25519 key.
func NewKey(t testing.TB) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key
}

// PartialTransaction builds a transaction paid and signed by requester that
// also requires cosigner's signature, returning it in wire format.
func PartialTransaction(t testing.TB, requester solana.PrivateKey, cosigner solana.PublicKey, data []byte) []byte {
	t.Helper()
	tx := UnsignedTransaction(t, requester.PublicKey(), cosigner, data)
	signer, err := ledger.NewSigner(requester)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if err := signer.Cosign(tx); err != nil {
		t.Fatalf("requester sign: %v", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal transaction: %v", err)
	}
	return raw
}

// UnsignedTransaction builds a two-signer transaction without signatures.
func UnsignedTransaction(t testing.TB, payer, cosigner solana.PublicKey, data []byte) *solana.Transaction {
	t.Helper()
	programID := solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	instruction := solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(cosigner, false, true),
		},
		data,
	)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	return tx
}
