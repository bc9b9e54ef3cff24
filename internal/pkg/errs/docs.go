// Package errs provides standardized error types for the fulfillment application.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used throughout the application.
//
// The package includes generic error types for common scenarios:
//   - ValueIsRequiredError: For when a required value is missing
//   - ValueIsInvalidError: For when a value is invalid
//   - ObjectNotFoundError: For when an object cannot be found
//
// and the workflow orchestration taxonomy:
//   - ConflictError: optimistic-concurrency failure on a status transition
//   - InvalidTransitionError: requested edge not in the transition graph
//   - RuleConfigurationError: automation rule references an unknown name
//   - TransportError: realtime channel failure (absorbed by reconnection)
//   - RetryBudgetExhaustedError: reconnection gave up on a channel
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g., ErrConflict)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method so errors.Is classifies against the sentinel
//
// This standardized approach makes error classification uniform: callers
// branch on errors.Is(err, errs.ErrConflict) rather than on concrete types.
package errs
