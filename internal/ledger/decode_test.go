package ledger_test

import (
	"errors"
	"testing"

	"cosigner/internal/ledger"
	"cosigner/internal/services"
	"cosigner/internal/testsupport"
)

func TestDecodePayloadAcceptsPartialTransaction(t *testing.T) {
	requester := testsupport.NewKey(t)
	cosigner := testsupport.NewKey(t)
	raw := testsupport.PartialTransaction(t, requester, cosigner.PublicKey(), []byte{1})

	decoded, err := ledger.DecodePayload(ledger.EncodePayload(raw))
	if err != nil {
		t.Fatalf("DecodePayload returned error: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatal("expected decoded bytes to match wire bytes")
	}

	tx, err := ledger.DecodeTransaction(decoded)
	if err != nil {
		t.Fatalf("DecodeTransaction returned error: %v", err)
	}
	if tx.Message.Header.NumRequiredSignatures != 2 {
		t.Fatalf("expected two required signers, got %d", tx.Message.Header.NumRequiredSignatures)
	}
	if !tx.Message.AccountKeys[0].Equals(requester.PublicKey()) {
		t.Fatal("expected requester as fee payer")
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: "  "},
		{name: "not base64", payload: "%%%"},
		{name: "not a transaction", payload: "bm90LWEtdHJhbnNhY3Rpb24="},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ledger.DecodePayload(tc.payload); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
