package mobi

import "errors"

// Sentinel errors forming the caller-visible error surface. Every error
// the decoder returns wraps one of these so callers can classify a
// failure with errors.Is instead of string matching.
var (
	// ErrBufferEnd is returned when a read or seek runs past the end of
	// a buffer. Distinct from ErrDataCorrupt so tests can tell "ran out
	// of bytes" apart from "the bytes we had made no sense".
	ErrBufferEnd = errors.New("mobi: buffer end")

	// ErrDataCorrupt covers bad magic, illegal back-references, bad
	// CP1252 bytes, inflate mismatches, and any other structural
	// violation that isn't simple exhaustion.
	ErrDataCorrupt = errors.New("mobi: data corrupt")

	// ErrFileUnsupported is returned when the PDB type/creator pair
	// isn't the Mobipocket "BOOK"/"MOBI" combination.
	ErrFileUnsupported = errors.New("mobi: unsupported file")

	// ErrFileEncrypted is returned by text decompression (not by
	// Load) when Record 0's encryption type is non-zero.
	ErrFileEncrypted = errors.New("mobi: file is DRM encrypted")

	// ErrParamError covers invalid arguments: nil buffers, output
	// buffers too small for a declared length, and similar caller
	// mistakes.
	ErrParamError = errors.New("mobi: invalid parameter")
)
