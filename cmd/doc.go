// Package cmd provides CLI commands for trajectory screening.
//
// # Commands
//
// screening-demo: Runs a full mutual screening between two in-process
// parties over a pair of in-memory channels. Each party keeps its
// trajectory local; the demo prints the per-direction outcomes and the
// combined verdict.
//
//	go run ./cmd/screening-demo
//	go run ./cmd/screening-demo -threshold 2 -v
//	go run ./cmd/screening-demo -bgv
//
// By default the demo uses the plaintext stub backend so it runs in
// milliseconds; -bgv switches to the lattice backend with full
// homomorphic evaluation.
package cmd
