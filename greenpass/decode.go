// Package greenpass decodes and validates EU Digital Green Certificates:
// the "HC1:"-prefixed, base45-encoded, zlib-compressed COSE_Sign1 payloads
// recovered from health-certificate QR codes.
//
// Decode recovers the claim data without touching the signature; Validate
// additionally verifies the ECDSA signature against a TrustList of issuer
// public keys. Signature outcomes are reported as a SignatureValidity value
// rather than an error so callers can apply policy to each case.
package greenpass

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/minvws/base45-go/eubase45"
)

const (
	hcertPrefix = "HC1:"

	// zlibMagic is the first byte of a zlib stream with deflate
	// compression; uncompressed certificate bodies skip the wrapper.
	zlibMagic = 0x78

	// maxEnvelopeSize caps the base45 text, maxInflatedSize the inflated
	// body. The caps bound memory against zip-bomb inputs.
	maxEnvelopeSize = 64 << 10
	maxInflatedSize = 256 << 10
)

// Decode parses raw certificate text and returns the claim container
// without verifying the signature. The container still exposes the key
// identifier and algorithm found in the COSE headers.
func Decode(raw string) (*DGCContainer, error) {
	cwt, err := DecodeCWT(raw)
	if err != nil {
		return nil, err
	}
	return cwt.Payload, nil
}

// Validate parses raw certificate text and verifies its signature against
// trustlist. Decoding failures return an error; signature outcomes,
// including unknown signers and unsupported algorithms, are reported in the
// returned SignatureValidity alongside the decoded container.
func Validate(raw string, trustlist *TrustList) (*DGCContainer, SignatureValidity, error) {
	cwt, err := DecodeCWT(raw)
	if err != nil {
		return nil, SignatureValidity{}, err
	}
	return cwt.Payload, cwt.VerifySignature(trustlist), nil
}

// DecodeCWT parses raw certificate text down to the COSE_Sign1 level,
// exposing the preserved protected header bytes, payload and signature for
// callers doing out-of-band verification.
func DecodeCWT(raw string) (*CWT, error) {
	body, err := unprefix(raw)
	if err != nil {
		return nil, err
	}

	decoded, err := eubase45.EUBase45Decode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase45, err)
	}

	if len(decoded) > 0 && decoded[0] == zlibMagic {
		if decoded, err = inflate(decoded); err != nil {
			return nil, err
		}
	}

	return ParseCWT(decoded)
}

func unprefix(raw string) (string, error) {
	if !strings.HasPrefix(raw, hcertPrefix) {
		return "", ErrInvalidPrefix
	}
	body := raw[len(hcertPrefix):]
	if len(body) > maxEnvelopeSize {
		return "", fmt.Errorf("%w: envelope is %d bytes", ErrTooLarge, len(body))
	}
	return body, nil
}

func inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeflateFailure, err)
	}
	defer zr.Close()

	inflated, err := io.ReadAll(io.LimitReader(zr, maxInflatedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeflateFailure, err)
	}
	if len(inflated) > maxInflatedSize {
		return nil, fmt.Errorf("%w: inflated body exceeds %d bytes", ErrTooLarge, maxInflatedSize)
	}
	return inflated, nil
}
