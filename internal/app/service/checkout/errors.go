package checkout

import "errors"

var (
	// ErrUnknownTransaction means the callback's transaction id matches no
	// staged purchase. Fails closed: nothing is committed.
	ErrUnknownTransaction = errors.New("unknown or expired transaction")

	// ErrAlreadyProcessed marks a replayed callback for a transaction that
	// has already committed or aborted.
	ErrAlreadyProcessed = errors.New("transaction already processed")

	// ErrPaymentPending means the gateway has not settled yet. The staged
	// purchase is kept so the callback can be retried.
	ErrPaymentPending = errors.New("payment not settled yet")

	// ErrPaymentFailed is the gateway reporting a non-successful outcome,
	// including amount or order-id mismatches.
	ErrPaymentFailed = errors.New("payment verification failed")

	// ErrDemoForbidden gates the verification-skipping demo path out of
	// production.
	ErrDemoForbidden = errors.New("demo payments are disabled in this environment")
)
