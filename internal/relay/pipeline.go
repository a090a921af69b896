package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"cosigner/internal/ledger"
	"cosigner/internal/logging"
	"cosigner/internal/queue"
	"cosigner/internal/services"
)

// Signer appends the service signature to a transaction.
type Signer interface {
	Cosign(tx *solana.Transaction) error
}

// Ledger submits transactions and waits for them to land.
type Ledger interface {
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitConfirmation(ctx context.Context, sig solana.Signature) (ledger.Confirmation, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfirmTimeout bounds submit plus confirmation for one item.
func WithConfirmTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.NewComponentLogger(logger, "relay")
	}
}

// Pipeline turns queue items into ledger outcomes. It never retries.
type Pipeline struct {
	signer  Signer
	ledger  Ledger
	timeout time.Duration
	logger  *slog.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(signer Signer, l Ledger, opts ...Option) *Pipeline {
	p := &Pipeline{
		signer:  signer,
		ledger:  l,
		timeout: 60 * time.Second,
		logger:  logging.NewComponentLogger(nil, "relay"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessOne runs item through the pipeline. Ledger calls are detached from
// ctx cancellation and bounded by the confirmation timeout so an item is never
// abandoned between submission and classification.
func (p *Pipeline) ProcessOne(ctx context.Context, item *queue.Item) queue.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	if item == nil {
		return queue.Failed("no item", "")
	}
	ctx = services.WithItemID(ctx, item.ID)
	logger := logging.WithContext(ctx, p.logger)

	tx, err := ledger.DecodeTransaction(item.Payload)
	if err != nil {
		return p.fail(logger, "decode", services.Wrap(services.ErrSubmission, "relay", "decode", "", err), "")
	}
	if err := p.signer.Cosign(tx); err != nil {
		return p.fail(logger, "cosign", services.Wrap(services.ErrSubmission, "relay", "cosign", "", err), "")
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	started := time.Now()
	sig, err := p.ledger.Submit(runCtx, tx)
	if err != nil {
		return p.fail(logger, "submit", err, "")
	}
	logger.Info("transaction submitted", logging.String(logging.FieldSignature, sig.String()))

	conf, err := p.ledger.AwaitConfirmation(runCtx, sig)
	if err != nil {
		if !errors.Is(err, services.ErrSubmission) {
			err = services.Wrap(services.ErrSubmission, "relay", "confirm", "", err)
		}
		return p.fail(logger, "confirm", err, sig.String())
	}

	logger.Info("transaction confirmed",
		logging.String(logging.FieldSignature, sig.String()),
		logging.String("commitment", conf.Status),
		logging.Duration("elapsed", time.Since(started)),
	)
	return queue.Confirmed(sig.String())
}

func (p *Pipeline) fail(logger *slog.Logger, step string, err error, signature string) queue.Outcome {
	attrs := []logging.Attr{
		logging.String("step", step),
		logging.Error(err),
		logging.String(logging.FieldImpact, "transaction marked failed, queue continues"),
	}
	if signature != "" {
		attrs = append(attrs, logging.String(logging.FieldSignature, signature))
	}
	logging.WarnWithContext(logger, "transaction failed", "relay_item_failed", attrs...)
	return queue.Failed(err.Error(), signature)
}
