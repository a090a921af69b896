package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/ledger"
	"cosigner/internal/services"
)

// FakeLedger records submissions and outcomes keyed by instruction data.
type FakeLedger struct {
	mu sync.Mutex
	// Reject fails Submit for transactions whose first instruction data matches.
	Reject map[string]string
	// Revert makes AwaitConfirmation report an execution error.
	Revert map[string]string
	// OnSubmit runs before Submit returns, outside the lock.
	OnSubmit func(data string)

	submitted []string
	sigs      map[solana.Signature]string
	verifyErr error
}

// NewFakeLedger returns an accepting ledger.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		Reject: map[string]string{},
		Revert: map[string]string{},
		sigs:   map[solana.Signature]string{},
	}
}

// Submit implements relay.Ledger.
func (f *FakeLedger) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	data := instructionData(tx)
	if f.OnSubmit != nil {
		f.OnSubmit(data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, data)
	if err := tx.VerifySignatures(); err != nil && f.verifyErr == nil {
		f.verifyErr = err
	}
	if reason, ok := f.Reject[data]; ok {
		return solana.Signature{}, services.Wrap(services.ErrSubmission, "ledger", "send transaction", reason, nil)
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("unsigned transaction")
	}
	sig := tx.Signatures[0]
	f.sigs[sig] = data
	return sig, nil
}

// AwaitConfirmation implements relay.Ledger.
func (f *FakeLedger) AwaitConfirmation(ctx context.Context, sig solana.Signature) (ledger.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.sigs[sig]
	if !ok {
		return ledger.Confirmation{}, fmt.Errorf("unknown signature %s", sig)
	}
	if reason, ok := f.Revert[data]; ok {
		return ledger.Confirmation{}, fmt.Errorf("%w: %s", ledger.ErrExecutionFailed, reason)
	}
	return ledger.Confirmation{Signature: sig.String(), Status: "confirmed", Slot: 1}, nil
}

// Submitted returns instruction data in submission order.
func (f *FakeLedger) Submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

// SignatureError returns the first signature verification failure seen.
func (f *FakeLedger) SignatureError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyErr
}

func instructionData(tx *solana.Transaction) string {
	if tx == nil || len(tx.Message.Instructions) == 0 {
		return ""
	}
	return string(tx.Message.Instructions[0].Data)
}
