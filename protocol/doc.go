// Package protocol implements a two-party private trajectory intersection
// check on top of a pluggable homomorphic encryption backend.
//
// Two mutually distrusting parties, each holding an object trajectory,
// determine at which timesteps their positions coincide (or come within a
// threshold) without either party revealing plaintext positions. Privacy
// comes from the capability split in the scheme package: only evaluation
// capability ever crosses the boundary, never secret keys.
//
// # Directional rounds
//
// One directional round runs owner -> evaluator -> owner:
//
//  1. The owner generates a fresh key pair and encrypts its trajectory,
//     scalar by scalar, in canonical (dimension, timestep) order.
//  2. The ciphertexts, the evaluation key and the trajectory shape travel
//     to the evaluator as an Envelope over an opaque message channel.
//  3. The evaluator activates the envelope's evaluation key as a scoped
//     context, compares each received ciphertext against its own local
//     plaintext scalar, and conjoins the per-dimension results into one
//     encrypted collision flag per timestep.
//  4. The encrypted verdicts travel back and only the owner, holding the
//     secret key, can read them.
//
// The evaluator learns nothing about the owner's positions and cannot
// decrypt its own output; the owner learns one boolean per timestep and
// nothing about the evaluator's positions beyond those booleans.
//
// A mutual check (Orchestrator.MutualCheck) is two independent rounds
// with reversed roles and distinct key pairs. The rounds share no state
// and no keys; failure of one leaves the other's outcome intact.
//
// # Failure model
//
// Every error is terminal for the round that produced it and surfaces as
// a Failed state with the cause preserved. Cryptographic mismatches are
// reported, never retried. Channel errors marked Transient are retried a
// bounded number of times at the two transfer points.
package protocol
