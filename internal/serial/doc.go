// Package serial provides a minimal, Linux-only serial port reader for
// line-oriented embedded devices.
//
// A [Port] is opened in raw mode at a fixed baud rate and read by a single
// [Port.ReadLoop] that hands each inbound chunk to a callback. Chunks are
// split on [Config.Delimiter]; an empty delimiter delivers every read as its
// own chunk, leaving framing to the caller.
//
// The read loop waits in poll(2) on both the device and a self-pipe, so
// [Port.Close] from another goroutine wakes and ends it promptly.
//
// On platforms other than Linux, [Open] always fails.
package serial
