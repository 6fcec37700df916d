// Package framework contains shared infrastructure for running test programs under the
// harness. The base package holds the Logger types; the other components are in the
// subpackages:
//
// 1. catalog declares the ordered list of tests a program runs.
//
// 2. runtest launches one OS thread per test, polls for completion, and classifies each
// test's outcome.
//
// 3. telemetry encodes the Register, Status and Log records that runtest writes to the
// program's output stream, and decodes them on the consumer side.
//
// 4. metrics exposes harness counters for Prometheus.
//
// 5. config loads harness settings from YAML or TOML files, and report renders a decoded
// stream as a table or JSON.
package framework
