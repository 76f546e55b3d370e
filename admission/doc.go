// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package admission implements the vote admission gate.

A submission is checked before any durable write and recorded after it:

	gate := admission.NewGate(redisClient, admission.WithTTL(cfg.VoterTTL))

	decision := gate.Evaluate(ctx, surveyID, voterHash, survey.MaxResponses)
	if !decision.Allowed() {
		// RejectedDuplicate or RejectedQuotaExceeded
	}
	// ... insert response rows ...
	gate.Commit(ctx, surveyID, voterHash, submissionID, payload)

# Outcomes

  - Admitted: no record for the voter and the counter is below the ceiling
  - RejectedDuplicate: the voter already has a record for this survey
  - RejectedQuotaExceeded: the counter has reached the ceiling

# Failure Handling

Evaluate fails open: any Redis error or timeout yields Admitted with
Degraded set. Commit is best effort and only logs failures. The durable
store's distinct-submission count remains the authoritative ceiling.

# Soft Cap

Evaluate and Commit are separate round trips, so two voters racing for the
last slot can both be admitted. The gate deliberately does not lock.
*/
package admission
