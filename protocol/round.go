package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// RoundState is one stage of a directional round's lifecycle. States
// advance strictly forward; Failed is terminal and reachable from any
// non-terminal state.
type RoundState int32

const (
	StateInit RoundState = iota
	StateKeysGenerated
	StateEncrypted
	StateTransmitted
	StateEvaluated
	StateResultReturned
	StateDecrypted
	StateFailed
)

func (s RoundState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateKeysGenerated:
		return "keys-generated"
	case StateEncrypted:
		return "encrypted"
	case StateTransmitted:
		return "transmitted"
	case StateEvaluated:
		return "evaluated"
	case StateResultReturned:
		return "result-returned"
	case StateDecrypted:
		return "decrypted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// RoundOutcome is the terminal result of one directional round.
type RoundOutcome struct {
	// Owner labels the party whose data was screened in this round.
	Owner string

	// Collided is true iff the predicate held at any timestep.
	Collided bool

	// CollidingTimesteps lists the matching indices, in order.
	CollidingTimesteps []int

	// Err is the failure reason for a round that ended in Failed, nil for
	// a round that reached Decrypted.
	Err error
}

// Failed reports whether the round terminated without a decrypted result.
func (o RoundOutcome) Failed() bool { return o.Err != nil }

// Round executes one directional exchange between a data owner and an
// evaluator. The same Round value is shared by both halves when they run
// in-process, so the recorded state reflects the furthest stage reached.
//
// A Round is single-use: fresh keys, one envelope, one verdict sequence.
type Round struct {
	owner string
	sch   scheme.Scheme
	cfg   Config
	log   *slog.Logger
	state atomic.Int32
}

// NewRound creates a round whose data owner is labeled owner.
func NewRound(sch scheme.Scheme, cfg Config, owner string) *Round {
	cfg = cfg.withDefaults()
	return &Round{
		owner: owner,
		sch:   sch,
		cfg:   cfg,
		log:   cfg.Logger.With(slog.String("round", owner+"-owns")),
	}
}

// State returns the furthest lifecycle stage the round has reached. Safe
// to call from any goroutine.
func (r *Round) State() RoundState {
	return RoundState(r.state.Load())
}

// advance moves the state forward, never backward; once Failed, the
// state is frozen.
func (r *Round) advance(to RoundState) {
	for {
		cur := r.state.Load()
		if RoundState(cur) == StateFailed || int32(to) <= cur {
			return
		}
		if r.state.CompareAndSwap(cur, int32(to)) {
			r.log.Debug("round state", slog.String("state", to.String()))
			return
		}
	}
}

func (r *Round) fail(err error) RoundOutcome {
	r.state.Store(int32(StateFailed))
	r.log.Warn("round failed", slog.Any("err", err))
	return RoundOutcome{Owner: r.owner, Err: err}
}

// RunOwner drives the data-owner half: key generation, encryption,
// envelope transmission, then decryption of the returned verdicts. The
// channel endpoint is closed on exit so the counterpart never blocks on
// a dead round.
func (r *Round) RunOwner(ctx context.Context, tr Trajectory, ch Channel) RoundOutcome {
	defer ch.Close()

	pair, err := NewKeyManager(r.sch).GenerateKeyPair()
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateKeysGenerated)
	r.log.Debug("key pair issued", slog.String("fingerprint", pair.Fingerprint()))

	env, err := BuildEnvelope(tr, pair)
	if err != nil {
		return r.fail(err)
	}
	encoded, err := env.Encode()
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateEncrypted)

	if err := r.sendWithRetry(ctx, ch, encoded); err != nil {
		return r.fail(err)
	}
	r.advance(StateTransmitted)

	returned, err := r.receiveWithRetry(ctx, ch)
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateResultReturned)

	verdicts, err := DecodeVerdicts(returned)
	if err != nil {
		return r.fail(err)
	}
	if verdicts.Timesteps() != tr.Shape().Timesteps {
		return r.fail(fmt.Errorf("%w: %d verdicts for %d timesteps",
			ErrDeserialization, verdicts.Timesteps(), tr.Shape().Timesteps))
	}
	flags, err := DecryptVerdicts(verdicts, pair)
	if err != nil {
		return r.fail(err)
	}
	r.advance(StateDecrypted)

	colliding := CollidingTimesteps(flags)
	r.log.Info("round decrypted",
		slog.Bool("collided", len(colliding) > 0),
		slog.Int("timesteps", len(flags)))
	return RoundOutcome{
		Owner:              r.owner,
		Collided:           len(colliding) > 0,
		CollidingTimesteps: colliding,
	}
}

// RunEvaluator drives the counterpart half: receive the envelope,
// evaluate under its key, return the encrypted verdicts. The channel
// endpoint is closed on exit, including failure, so the owner observes a
// dead counterpart instead of blocking.
func (r *Round) RunEvaluator(ctx context.Context, local Trajectory, ch Channel) error {
	defer ch.Close()

	received, err := r.receiveWithRetry(ctx, ch)
	if err != nil {
		return err
	}
	env, err := DecodeEnvelope(received)
	if err != nil {
		r.log.Warn("envelope rejected", slog.Any("err", err))
		return err
	}

	verdicts, err := Evaluate(ctx, r.sch, env, local, r.cfg.Predicate)
	if err != nil {
		r.log.Warn("evaluation failed", slog.Any("err", err))
		return err
	}
	r.advance(StateEvaluated)

	encoded, err := verdicts.Encode()
	if err != nil {
		return err
	}
	return r.sendWithRetry(ctx, ch, encoded)
}

func (r *Round) sendWithRetry(ctx context.Context, ch Channel, msg []byte) error {
	return r.withRetry(ctx, func() error { return ch.Send(ctx, msg) })
}

func (r *Round) receiveWithRetry(ctx context.Context, ch Channel) ([]byte, error) {
	var msg []byte
	err := r.withRetry(ctx, func() error {
		var err error
		msg, err = ch.Receive(ctx)
		return err
	})
	return msg, err
}

// withRetry retries transient channel failures only; cancellation, closed
// channels and everything cryptographic are terminal on first occurrence.
func (r *Round) withRetry(ctx context.Context, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= r.cfg.ChannelAttempts {
			return err
		}
		r.log.Debug("transient channel failure",
			slog.Int("attempt", attempt), slog.Any("err", err))
		select {
		case <-time.After(r.cfg.RetryBackoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
	}
}

// FailureClass maps a round failure to its sentinel for reporting.
func FailureClass(err error) error {
	for _, sentinel := range []error{
		ErrShape, ErrKeyGeneration, ErrDeserialization, ErrDimensionMismatch,
		ErrEvaluation, ErrDecryption, ErrCancelled, ErrChannelClosed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}
