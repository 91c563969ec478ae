package automerge

import "errors"

// Sentinel errors returned (wrapped) by Load and the chunk parsers.
var (
	ErrEmptyInput       = errors.New("empty input: no automerge chunks")
	ErrInvalidMagic     = errors.New("invalid magic bytes")
	ErrBadChecksum      = errors.New("checksum mismatch")
	ErrUnknownChunkType = errors.New("unknown chunk type")
	ErrTruncated        = errors.New("unexpected end of data")
	ErrOverflow         = errors.New("leb128 value overflows 64 bits")
	ErrMalformed        = errors.New("malformed data")
)
