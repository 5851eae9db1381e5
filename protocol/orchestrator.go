package protocol

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
)

// Orchestrator composes directional rounds into a mutual trajectory
// intersection check between two parties.
type Orchestrator struct {
	sch scheme.Scheme
	cfg Config
	log *slog.Logger

	// newPipe is the channel factory for in-process rounds, keyed by the
	// owning party's label. Overridable in tests.
	newPipe func(owner string) (ownerEnd, evaluatorEnd Channel)
}

// NewOrchestrator creates an orchestrator over the given backend.
func NewOrchestrator(sch scheme.Scheme, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		sch:     sch,
		cfg:     cfg,
		log:     cfg.Logger,
		newPipe: func(string) (Channel, Channel) { return Pipe(1) },
	}
}

// MutualResult carries the outcome of both directional rounds. Each
// party learns only its own round's verdicts.
type MutualResult struct {
	// AOwns is the round where party A's trajectory was encrypted and
	// party B evaluated; its verdicts were decrypted by A.
	AOwns RoundOutcome

	// BOwns is the reversed round.
	BOwns RoundOutcome
}

// Collided reports whether any completed round detected an intersection.
func (m MutualResult) Collided() bool {
	return (!m.AOwns.Failed() && m.AOwns.Collided) ||
		(!m.BOwns.Failed() && m.BOwns.Collided)
}

// MutualCheck runs the A-owns and B-owns directional rounds with
// reversed roles and distinct key pairs. The rounds share nothing and run
// concurrently; one round's failure leaves the other's outcome intact.
func (o *Orchestrator) MutualCheck(ctx context.Context, partyA, partyB Trajectory) MutualResult {
	var result MutualResult
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.AOwns = o.runDirectional(ctx, "A", partyA, partyB)
	}()
	go func() {
		defer wg.Done()
		result.BOwns = o.runDirectional(ctx, "B", partyB, partyA)
	}()
	wg.Wait()
	return result
}

// CheckOneWay runs a single directional round: owner's trajectory is
// encrypted, the counterpart evaluates against local, and the owner
// decrypts the verdicts.
func (o *Orchestrator) CheckOneWay(ctx context.Context, owner string, ownerTr, local Trajectory) RoundOutcome {
	return o.runDirectional(ctx, owner, ownerTr, local)
}

func (o *Orchestrator) runDirectional(ctx context.Context, owner string, ownerTr, evalTr Trajectory) RoundOutcome {
	ownerEnd, evalEnd := o.newPipe(owner)
	round := NewRound(o.sch, o.cfg, owner)

	evalErr := make(chan error, 1)
	go func() {
		evalErr <- round.RunEvaluator(ctx, evalTr, evalEnd)
	}()

	outcome := round.RunOwner(ctx, ownerTr, ownerEnd)
	counterpartErr := <-evalErr

	// The owner only sees a closed channel when the evaluator dies;
	// surface the evaluator's actual failure as the round's reason.
	if outcome.Err != nil && counterpartErr != nil && errors.Is(outcome.Err, ErrChannelClosed) {
		outcome.Err = counterpartErr
	}
	o.log.Info("directional round finished",
		slog.String("owner", owner),
		slog.String("state", round.State().String()),
		slog.Bool("failed", outcome.Failed()))
	return outcome
}
