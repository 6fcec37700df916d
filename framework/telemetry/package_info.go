// Package telemetry implements the binary record stream that a test program writes for an
// external consumer: the record types, their fixed-width wire encoding, a goroutine-safe
// Emitter, and the consumer-side Decoder and Collector.
package telemetry
