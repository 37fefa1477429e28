// Package execution owns the life of one code execution request.
//
// It validates and normalizes incoming requests, creates the execution
// record, hands the job to a sandbox runner on a detached goroutine and
// writes the single terminal outcome back to the record store. Callers
// observe progress only by polling the record.
package execution
