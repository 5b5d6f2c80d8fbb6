package archive2

import "errors"

// Fatal errors abort the current decode. Recoverable ones are logged via
// logrus and decoding continues, per the error taxonomy this package
// follows.
var (
	// ErrNoRadialsFound is returned when a file contains no type-1 or
	// type-31 records after decoding.
	ErrNoRadialsFound = errors.New("archive2: no radial (type 1 or 31) records found")

	// ErrGzipClosedReopen is returned when a caller re-enters a closed
	// gzip source for a ranged read. Unlike bzip2, a closed gzip source
	// cannot be reopened because its decompression state isn't
	// checkpointed.
	ErrGzipClosedReopen = errors.New("archive2: cannot re-read a closed gzip source")

	// ErrUnknownReadMode is returned for a read mode that is neither
	// "all", "all-meta", "min-meta", nor a list of byte ranges.
	ErrUnknownReadMode = errors.New("archive2: unknown read mode")
)

// Recoverable warnings, logged once per occurrence via logrus.Warn and never
// returned to the caller.
const (
	warnIncompleteMessage5   = "archive2: MSG_5 unpack truncated, VCP marked empty"
	warnUnsupportedWordSize  = "archive2: unsupported moment word size, treating as 8-bit"
	warnUnknownMessageType29 = "archive2: message type 29 encountered, not parsed"
	warnMissingVCP           = "archive2: no MSG_5 seen, target elevation angles will fall back to 0.0"
	warnBzipStreamDecode     = "archive2: bzip2 stream failed to decompress, substituting empty buffer"
	warnCorruptedConcat      = "archive2: concatenated volume detected, dropping earlier incomplete volume"
)
