// Package order provides domain entities and business logic for order
// management in the fulfillment system. It implements the Order aggregate
// root with lifecycle management and state transitions.
//
// The package includes:
//   - Order: The aggregate root that manages order identity, payment state,
//     phase timestamps, and the shopper assignment
//   - Status: A state machine that enforces valid order status transitions
//   - Item: A line of the order with its per-item shopping outcome
//
// Key business rules:
//   - Order status follows the defined workflow
//     pending -> confirmed -> assigned -> shopping -> packed -> in_transit -> delivered,
//     with the arrived -> stocking -> completed extension for the
//     property-handoff flow and cancelled reachable from every non-terminal state
//   - Rollbacks are limited to a fixed whitelist of reverse edges and are
//     recorded as rollback_status in the audit trail
//   - Phase timestamps are set exactly once, at the transition that causes them
//   - Item shopping statuses are independent of the order status
//
// The authoritative concurrency control for the status column is the store's
// conditional update (compare-and-swap on the expected status); the aggregate
// only validates edges and computes the patch to apply.
package order
