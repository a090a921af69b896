package ledger

import (
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"cosigner/internal/services"
)

// DecodePayload converts the base64 boundary encoding into wire bytes and
// checks that they parse as a transaction.
func DecodePayload(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: payload is empty", services.ErrValidation)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", services.ErrValidation, err)
	}
	if _, err := DecodeTransaction(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// EncodePayload renders wire bytes in the boundary encoding.
func EncodePayload(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeTransaction parses wire bytes into a transaction.
func DecodeTransaction(raw []byte) (*solana.Transaction, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: transaction is empty", services.ErrValidation)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", services.ErrValidation, err)
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return nil, fmt.Errorf("%w: transaction declares %d required signers for %d accounts",
			services.ErrValidation, required, len(tx.Message.AccountKeys))
	}
	if len(tx.Signatures) > required {
		return nil, fmt.Errorf("%w: transaction carries %d signatures for %d required signers",
			services.ErrValidation, len(tx.Signatures), required)
	}
	return tx, nil
}
