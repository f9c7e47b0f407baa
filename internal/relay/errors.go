package relay

import (
	"errors"

	"github.com/interchainlabs/eureka-relayer/internal/codec"
)

// Error kinds surfaced by the lower layers. The orchestrator alone decides
// retry vs. permanent failure based on these; providers and adapters never
// retry on their own.
var (
	// ErrHeightNotAvailable: the queried node has pruned the height.
	// Retryable against a different node, not against the same one.
	ErrHeightNotAvailable = errors.New("height not available on this node")

	// ErrProverUnavailable: the prover service is overloaded or rate limited.
	ErrProverUnavailable = errors.New("prover unavailable")

	// ErrSubmissionRaced: the destination reverted because a competing relayer
	// got there first or the fee was insufficient. The task re-enters from
	// Discovered to re-check destination state.
	ErrSubmissionRaced = errors.New("submission raced")

	// ErrSignerNonceConflict: the signer's nonce was consumed out from under
	// us. Triggers a nonce resync before the next attempt.
	ErrSignerNonceConflict = errors.New("signer nonce conflict")

	// ErrClientUpdateUnavailable: no valid header chain exists between the
	// trusted and target heights. Fatal for the task.
	ErrClientUpdateUnavailable = errors.New("client update unavailable")

	// ErrTrustingPeriodExpired: the light client can no longer be updated.
	// Fatal for the task.
	ErrTrustingPeriodExpired = errors.New("trusting period expired")

	// ErrProofRejected: the prover service deemed the request unexecutable.
	// Fatal for the task; resubmitting the same request cannot succeed.
	ErrProofRejected = errors.New("proof request rejected")

	// ErrAlreadyRelayed: the destination has already processed the packet.
	// Terminal, but informational rather than a failure.
	ErrAlreadyRelayed = errors.New("packet already relayed")

	// ErrPacketUnrelayable: the packet can no longer be delivered on either
	// end. Terminal.
	ErrPacketUnrelayable = errors.New("packet permanently unrelayable")
)

// IsRetryable reports whether the orchestrator may re-attempt a task after
// this error.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrHeightNotAvailable),
		errors.Is(err, ErrProverUnavailable),
		errors.Is(err, ErrSubmissionRaced),
		errors.Is(err, ErrSignerNonceConflict):
		return true
	}
	if errors.Is(err, ErrAlreadyRelayed) || IsPermanent(err) {
		return false
	}
	// Unclassified transport errors (timeouts, connection resets) are assumed
	// transient.
	return true
}

// IsPermanent reports whether the error is fatal for the task.
func IsPermanent(err error) bool {
	var encErr *codec.EncodingError
	var decErr *codec.DecodingError
	switch {
	case errors.Is(err, ErrClientUpdateUnavailable),
		errors.Is(err, ErrTrustingPeriodExpired),
		errors.Is(err, ErrPacketUnrelayable),
		errors.Is(err, ErrProofRejected),
		errors.As(err, &encErr),
		errors.As(err, &decErr):
		return true
	}
	return false
}
