// Command screening-demo runs a mutual private trajectory intersection
// check between two simulated satellites.
//
// Each party's trajectory is encrypted under its own key pair and screened
// against the counterpart's plaintext positions homomorphically; neither
// party ever sees the other's coordinates, only per-timestep collision
// booleans for its own round.
//
// By default the check runs on the plaintext stub backend, which
// demonstrates the protocol flow instantly. With -bgv it runs on the real
// lattigo backend; expect minutes of compute for the equality circuits.
//
// # Usage
//
//	go run ./cmd/screening-demo [-bgv] [-threshold N]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/partylikeits1983/satelite-trajectory-fhe/protocol"
	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme"
	bgvscheme "github.com/partylikeits1983/satelite-trajectory-fhe/scheme/bgv"
	"github.com/partylikeits1983/satelite-trajectory-fhe/scheme/schemetest"
)

func main() {
	var (
		useBGV    = flag.Bool("bgv", false, "Use the lattigo BGV backend instead of the plaintext stub")
		threshold = flag.Uint64("threshold", 0, "Match positions within this distance per axis (0 = exact equality)")
		verbose   = flag.Bool("v", false, "Log round progress")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var sch scheme.Scheme
	if *useBGV {
		var err error
		sch, err = bgvscheme.New(bgvscheme.DefaultConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "BGV backend: %v\n", err)
			os.Exit(1)
		}
	} else {
		sch = schemetest.New()
	}

	satA, err := protocol.NewTrajectory(
		[]uint64{100, 101, 102},
		[]uint64{200, 201, 202},
		[]uint64{300, 301, 302},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "satellite A trajectory: %v\n", err)
		os.Exit(1)
	}
	satB, err := protocol.NewTrajectory(
		[]uint64{101, 401, 102},
		[]uint64{200, 201, 202},
		[]uint64{300, 601, 602},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "satellite B trajectory: %v\n", err)
		os.Exit(1)
	}

	pred := protocol.Equality()
	if *threshold > 0 {
		pred = protocol.WithinThreshold(*threshold)
	}

	orch := protocol.NewOrchestrator(sch, protocol.Config{
		Predicate: pred,
		Logger:    log,
	})

	fmt.Printf("Backend: %s, predicate: %s\n", sch.Name(), pred)
	result := orch.MutualCheck(context.Background(), satA, satB)

	printOutcome("A->B (A's data, B evaluates)", result.AOwns)
	printOutcome("B->A (B's data, A evaluates)", result.BOwns)
	fmt.Printf("Mutual collision detected: %v\n", result.Collided())
}

func printOutcome(label string, out protocol.RoundOutcome) {
	if out.Failed() {
		fmt.Printf("%s: failed: %v\n", label, protocol.FailureClass(out.Err))
		return
	}
	fmt.Printf("%s: collided=%v colliding_timesteps=%v\n", label, out.Collided, out.CollidingTimesteps)
}
