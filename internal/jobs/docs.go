// Package jobs provides scheduled background tasks for the fulfillment
// system.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic operations the event-driven automation cannot cover on
// its own.
//
// # Available Jobs
//
// 1. EscalationJob - Runs every minute to escalate orders stuck in the
// shopping phase beyond the stalled threshold. The sweep is the durable
// backstop behind the automation engine's delayed escalation rule: the
// rule's timer lives in process memory and its triggering event can be
// missed while the change stream is down, while the sweep reads the store
// directly.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	// Create job manager with required dependencies
//	jobManager := jobs.NewJobManager(uowFactory, dispatcher, logger)
//
//	// Start all jobs
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down
//	defer jobManager.StopAll()
//
// # Error Handling
//
// - A failure on one stalled order does not stop the rest of the batch
// - Escalations are deduplicated through the workflow log, so the sweep and
// the automation rule never double-escalate the same order
package jobs
