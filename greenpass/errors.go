package greenpass

import "errors"

// Decode and trust-list ingestion errors. Signature outcomes are not errors;
// see SignatureValidity.
var (
	// ErrInvalidPrefix means the input does not start with "HC1:".
	ErrInvalidPrefix = errors.New(`greenpass: missing "HC1:" prefix`)

	// ErrInvalidBase45 means the payload after the prefix is not valid
	// base45 data (bad glyph or bad group length).
	ErrInvalidBase45 = errors.New("greenpass: invalid base45 data")

	// ErrDeflateFailure means the zlib-wrapped certificate body could not
	// be inflated.
	ErrDeflateFailure = errors.New("greenpass: cannot inflate certificate body")

	// ErrInvalidCose means the decoded bytes are not a COSE_Sign1
	// structure (tag 18 or a bare 4-element array).
	ErrInvalidCose = errors.New("greenpass: data is not a COSE_Sign1 structure")

	// ErrInvalidCbor means a header or the payload carries malformed CBOR.
	ErrInvalidCbor = errors.New("greenpass: malformed CBOR content")

	// ErrTooLarge means the envelope or the inflated body exceeds the
	// decoder size limits.
	ErrTooLarge = errors.New("greenpass: input exceeds size limit")

	// ErrUnsupportedCurve means a key uses a curve (or explicit curve
	// parameters, or a non-EC algorithm) this library does not support.
	ErrUnsupportedCurve = errors.New("greenpass: unsupported elliptic curve")

	// ErrMalformedKey means a public key could not be parsed.
	ErrMalformedKey = errors.New("greenpass: malformed public key")

	// ErrMalformedCertificate means an X.509 certificate could not be
	// parsed.
	ErrMalformedCertificate = errors.New("greenpass: malformed certificate")
)
