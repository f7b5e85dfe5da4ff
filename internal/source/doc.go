// Package source provides the Source Reader: it owns the serial connection,
// turns inbound chunks into samples and hands each sample to a sink.
//
// The reader opens its transport exactly once and never reconnects. Chunks
// that do not carry a sample are discarded silently; transport errors are
// logged and never propagate to the sink.
//
// Users of the adcbridge library should not need to interact with this
// package directly. The reader is started by [adcbridge.Bridge.Start].
package source
