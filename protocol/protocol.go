// Package protocol implements the controller's line-oriented ASCII wire
// format: a line buffer, single-byte realtime command interception, and the
// scratch/FIFO byte buffers the serial HAL and status reporter build frames
// with.
package protocol

// Version is the reported firmware version string ([VER:...]).
const Version = "0.1.0"

// LineMax is the maximum accepted length of one buffered NC-program line,
// matching the 80-byte line buffer in spec.md §6.
const LineMax = 80

// MessageMax bounds a single outbound status/report frame built with
// ScratchOutput.
const MessageMax = 256
