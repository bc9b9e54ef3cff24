package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the workflow orchestration error taxonomy.
var (
	// ErrConflict indicates an optimistic-concurrency failure: the entity's
	// stored status no longer matches the caller's last observed status.
	// Recoverable; the caller should refetch and decide whether to retry.
	ErrConflict = errors.New("state conflict")

	// ErrInvalidTransition indicates the requested edge is not present in the
	// order status transition graph. Fatal to the request.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRuleConfiguration indicates an automation rule references an unknown
	// condition or action name.
	ErrRuleConfiguration = errors.New("rule configuration is invalid")

	// ErrTransport indicates a failure on a realtime subscription channel.
	ErrTransport = errors.New("transport failure")

	// ErrRetryBudgetExhausted indicates the reconnection manager gave up on a
	// channel after exhausting its retry budget.
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// ConflictError is returned when a conditional update matched zero rows
// because the stored status changed since the caller last read it.
// The user-facing mapping is "order state changed, please refresh".
type ConflictError struct {
	Entity         string
	ID             any
	ExpectedStatus string
}

// NewConflictError creates a ConflictError for the given entity and the
// status the caller expected to find.
func NewConflictError(entity string, id any, expectedStatus string) *ConflictError {
	return &ConflictError{Entity: entity, ID: id, ExpectedStatus: expectedStatus}
}

func (e *ConflictError) Error() string {
	return sanitize(fmt.Sprintf("%s: %s %v is no longer in status %q",
		ErrConflict, e.Entity, e.ID, e.ExpectedStatus))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InvalidTransitionError is returned before any store round-trip when the
// requested action has no edge from the caller's expected status.
type InvalidTransitionError struct {
	Action     string
	FromStatus string
}

// NewInvalidTransitionError creates an InvalidTransitionError for an action
// attempted from a status that does not permit it.
func NewInvalidTransitionError(action, fromStatus string) *InvalidTransitionError {
	return &InvalidTransitionError{Action: action, FromStatus: fromStatus}
}

func (e *InvalidTransitionError) Error() string {
	return sanitize(fmt.Sprintf("%s: action %q is not allowed from status %q",
		ErrInvalidTransition, e.Action, e.FromStatus))
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// RuleConfigurationError is returned at rule-load time when a condition or
// action name does not resolve against the known vocabulary.
type RuleConfigurationError struct {
	RuleID string
	Field  string
	Value  string
}

// NewRuleConfigurationError creates a RuleConfigurationError naming the
// offending rule, field, and unresolvable value.
func NewRuleConfigurationError(ruleID, field, value string) *RuleConfigurationError {
	return &RuleConfigurationError{RuleID: ruleID, Field: field, Value: value}
}

func (e *RuleConfigurationError) Error() string {
	return sanitize(fmt.Sprintf("%s: rule %q has unknown %s %q",
		ErrRuleConfiguration, e.RuleID, e.Field, e.Value))
}

func (e *RuleConfigurationError) Unwrap() error {
	return ErrRuleConfiguration
}

// TransportError wraps a failure reported by a subscription channel. It feeds
// the reconnection manager's backoff state machine and is not surfaced to
// subscribers directly.
type TransportError struct {
	Channel string
	Cause   error
}

// NewTransportError creates a TransportError for the named channel.
func NewTransportError(channel string, cause error) *TransportError {
	return &TransportError{Channel: channel, Cause: cause}
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return sanitize(fmt.Sprintf("%s: channel %q (cause: %s)", ErrTransport, e.Channel, e.Cause))
	}
	return sanitize(fmt.Sprintf("%s: channel %q", ErrTransport, e.Channel))
}

func (e *TransportError) Unwrap() error {
	return ErrTransport
}

// RetryBudgetExhaustedError is surfaced to a subscriber's error handler once
// all reconnection attempts for its channel have failed. The channel stays
// disconnected until a manual re-subscribe.
type RetryBudgetExhaustedError struct {
	Channel  string
	Attempts int
	Cause    error
}

// NewRetryBudgetExhaustedError creates a RetryBudgetExhaustedError recording
// how many attempts were made and the last transport failure.
func NewRetryBudgetExhaustedError(channel string, attempts int, cause error) *RetryBudgetExhaustedError {
	return &RetryBudgetExhaustedError{Channel: channel, Attempts: attempts, Cause: cause}
}

func (e *RetryBudgetExhaustedError) Error() string {
	if e.Cause != nil {
		return sanitize(fmt.Sprintf("%s: channel %q after %d attempts (cause: %s)",
			ErrRetryBudgetExhausted, e.Channel, e.Attempts, e.Cause))
	}
	return sanitize(fmt.Sprintf("%s: channel %q after %d attempts",
		ErrRetryBudgetExhausted, e.Channel, e.Attempts))
}

func (e *RetryBudgetExhaustedError) Unwrap() error {
	return ErrRetryBudgetExhausted
}
