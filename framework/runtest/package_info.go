// Package runtest runs a catalog of test functions, each on its own OS thread, and reports
// their lifecycle as telemetry records.
//
// It is similar to Go's testing package in that a test function receives a *T with which
// it can log and fail, but tests are regular application code. A run goes through three
// stages: the launcher registers and starts every test, a single poller goroutine sweeps
// the running tests with non-blocking joins until all have finished, and the classifier
// turns each finished test's completion value into an Outcome and the matching Status
// (and, for failures, Log) records.
package runtest
