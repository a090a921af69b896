package ledger_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/ledger"
	"cosigner/internal/services"
	"cosigner/internal/testsupport"
)

func TestCosignFillsOnlyCosignerSlot(t *testing.T) {
	requester := testsupport.NewKey(t)
	cosignerKey := testsupport.NewKey(t)
	raw := testsupport.PartialTransaction(t, requester, cosignerKey.PublicKey(), []byte{7, 7})

	tx, err := ledger.DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("DecodeTransaction returned error: %v", err)
	}
	before := tx.Signatures[0]
	messageBefore, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	signer, err := ledger.NewSigner(cosignerKey)
	if err != nil {
		t.Fatalf("NewSigner returned error: %v", err)
	}
	if err := signer.Cosign(tx); err != nil {
		t.Fatalf("Cosign returned error: %v", err)
	}

	if tx.Signatures[0] != before {
		t.Fatal("expected requester signature untouched")
	}
	if tx.Signatures[1] == (solana.Signature{}) {
		t.Fatal("expected cosigner signature in slot 1")
	}
	messageAfter, err := tx.Message.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if string(messageBefore) != string(messageAfter) {
		t.Fatal("expected message unchanged by cosigning")
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("expected fully signed transaction to verify: %v", err)
	}
}

func TestCosignRejectsNonSigner(t *testing.T) {
	requester := testsupport.NewKey(t)
	raw := testsupport.PartialTransaction(t, requester, testsupport.NewKey(t).PublicKey(), nil)
	tx, err := ledger.DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("DecodeTransaction returned error: %v", err)
	}

	outsider, err := ledger.NewSigner(testsupport.NewKey(t))
	if err != nil {
		t.Fatalf("NewSigner returned error: %v", err)
	}
	if err := outsider.Cosign(tx); !errors.Is(err, ledger.ErrNotRequiredSigner) {
		t.Fatalf("expected ErrNotRequiredSigner, got %v", err)
	}
}

func TestLoadSignerSources(t *testing.T) {
	key := testsupport.NewKey(t)

	fromSecret, err := ledger.LoadSigner(key.String(), "")
	if err != nil {
		t.Fatalf("LoadSigner(secret) returned error: %v", err)
	}
	if !fromSecret.PublicKey().Equals(key.PublicKey()) {
		t.Fatal("unexpected public key from base58 secret")
	}

	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, keygenJSON(t, key), 0o600); err != nil {
		t.Fatalf("write keypair: %v", err)
	}
	fromFile, err := ledger.LoadSigner("", path)
	if err != nil {
		t.Fatalf("LoadSigner(file) returned error: %v", err)
	}
	if !fromFile.PublicKey().Equals(key.PublicKey()) {
		t.Fatal("unexpected public key from keypair file")
	}

	if _, err := ledger.LoadSigner("", ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := ledger.LoadSigner("not-base58-0OIl", ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad secret, got %v", err)
	}
}

func keygenJSON(t *testing.T, key solana.PrivateKey) []byte {
	t.Helper()
	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	out, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal keypair: %v", err)
	}
	return out
}
