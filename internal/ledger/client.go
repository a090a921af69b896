package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"cosigner/internal/logging"
	"cosigner/internal/services"
)

// ErrExecutionFailed indicates the ledger recorded the transaction with an error.
var ErrExecutionFailed = errors.New("transaction execution failed")

// RPC is the subset of the Solana JSON-RPC client used by Client.
// *rpc.Client satisfies it.
type RPC interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetHealth(ctx context.Context) (string, error)
}

// Confirmation describes a transaction that reached the target commitment.
type Confirmation struct {
	Signature string
	Status    string
	Slot      uint64
}

// Option configures the client.
type Option func(*Client)

// WithPollInterval overrides how often signature status is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "ledger")
	}
}

// Client submits transactions and awaits their confirmation.
type Client struct {
	rpc        RPC
	commitment rpc.CommitmentType
	poll       time.Duration
	logger     *slog.Logger
}

// Dial constructs a client for the JSON-RPC endpoint at url.
func Dial(url, commitment string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: rpc url required", services.ErrConfiguration)
	}
	return New(rpc.New(url), commitment, opts...)
}

// New wraps an RPC implementation. commitment must be confirmed or finalized.
func New(client RPC, commitment string, opts ...Option) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: rpc client required", services.ErrConfiguration)
	}
	level, err := parseCommitment(commitment)
	if err != nil {
		return nil, err
	}
	c := &Client{
		rpc:        client,
		commitment: level,
		poll:       500 * time.Millisecond,
		logger:     logging.NewComponentLogger(nil, "ledger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseCommitment(value string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("%w: unsupported commitment %q", services.ErrConfiguration, value)
	}
}

// Commitment returns the configured confirmation level.
func (c *Client) Commitment() string {
	return string(c.commitment)
}

// Submit sends a fully signed transaction with preflight simulation enabled.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, services.Wrap(services.ErrSubmission, "ledger", "send transaction", "", err)
	}
	logging.WithContext(ctx, c.logger).Debug("transaction submitted", logging.String(logging.FieldSignature, sig.String()))
	return sig, nil
}

// AwaitConfirmation polls until the signature reaches the configured commitment,
// the ledger reports an execution error, or ctx ends.
func (c *Client) AwaitConfirmation(ctx context.Context, sig solana.Signature) (Confirmation, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	var lastErr error
	for {
		result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		switch {
		case err != nil:
			lastErr = err
			logging.WithContext(ctx, c.logger).Debug("signature status poll failed", logging.Error(err))
		case result != nil && len(result.Value) > 0 && result.Value[0] != nil:
			status := result.Value[0]
			if status.Err != nil {
				return Confirmation{}, fmt.Errorf("%w: %s", ErrExecutionFailed, formatTxError(status.Err))
			}
			if c.reached(status.ConfirmationStatus) {
				return Confirmation{
					Signature: sig.String(),
					Status:    string(status.ConfirmationStatus),
					Slot:      status.Slot,
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			detail := fmt.Sprintf("signature %s not %s", sig, c.commitment)
			if lastErr != nil {
				detail += ": last poll error: " + lastErr.Error()
			}
			return Confirmation{}, services.Wrap(services.ErrTimeout, "ledger", "await confirmation", detail, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return c.commitment == rpc.CommitmentConfirmed
	default:
		return false
	}
}

// Health returns nil when the RPC node reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("rpc health: %w", err)
	}
	if out != "ok" {
		return fmt.Errorf("rpc health: %s", out)
	}
	return nil
}

func formatTxError(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
