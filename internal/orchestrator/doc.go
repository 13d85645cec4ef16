// Package orchestrator connects a job run to the baseline artifact cache.
//
// Before the expensive baseline stages run, TryRestore rehydrates a job's
// stage-output directories from the store when the media's content
// fingerprint matches a cached baseline. After the stages succeed,
// StoreBaseline gathers their outputs from the job directory and persists
// them for the next run. Cache failures of any kind degrade to uncached
// execution; they never abort the job.
package orchestrator
