// Package services contains stateless domain services that encapsulate
// business policies spanning multiple aggregates.
//
// AssignmentSelector decides which available stakeholder an order is offered
// to during auto-assignment. It is a pure policy object: candidates come
// from the AssignmentResolver port, persistence happens in the caller's
// transaction.
package services
