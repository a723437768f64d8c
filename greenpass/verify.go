package greenpass

import (
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"

	"github.com/veraison/go-cose"
)

// COSE algorithm identifiers accepted for certificate signatures.
const (
	AlgES256 = int64(-7)
	AlgES384 = int64(-35)
	AlgES512 = int64(-36)
)

// ValidityStatus enumerates the possible signature verification outcomes.
type ValidityStatus int

const (
	// StatusValid means the signature verified against a trusted key.
	StatusValid ValidityStatus = iota
	// StatusInvalid means verification ran against at least one located
	// key and failed.
	StatusInvalid
	// StatusSignerUnknown means the certificate names a kid that is not
	// in the trust list.
	StatusSignerUnknown
	// StatusMissingKid means the certificate carries no kid and the trust
	// list offers no keys to try.
	StatusMissingKid
	// StatusMissingAlg means neither header names a signing algorithm.
	StatusMissingAlg
	// StatusUnsupportedAlg means the named algorithm is not ES256, ES384
	// or ES512.
	StatusUnsupportedAlg
)

// SignatureValidity is the outcome of verifying a certificate signature.
// It is a value, not an error: policy layers need to distinguish an unknown
// signer from a bad signature from an algorithm this library does not
// implement, without string matching.
type SignatureValidity struct {
	Status ValidityStatus
	// Kid is the unresolvable key identifier when Status is
	// StatusSignerUnknown.
	Kid []byte
	// Alg is the offending algorithm identifier when Status is
	// StatusUnsupportedAlg.
	Alg int64
}

// IsValid reports whether the signature verified.
func (v SignatureValidity) IsValid() bool {
	return v.Status == StatusValid
}

func (v SignatureValidity) String() string {
	switch v.Status {
	case StatusValid:
		return "valid signature"
	case StatusInvalid:
		return "invalid signature"
	case StatusSignerUnknown:
		return fmt.Sprintf("signer %s not in trust list", base64.StdEncoding.EncodeToString(v.Kid))
	case StatusMissingKid:
		return "certificate carries no key identifier"
	case StatusMissingAlg:
		return "certificate names no signing algorithm"
	case StatusUnsupportedAlg:
		return fmt.Sprintf("unsupported signing algorithm %d", v.Alg)
	}
	return fmt.Sprintf("unknown validity status %d", int(v.Status))
}

// coseAlgorithm maps a COSE alg identifier to the go-cose algorithm, which
// fixes both the curve and the hash: ES256 is P-256/SHA-256, ES384 is
// P-384/SHA-384, ES512 is P-521/SHA-512.
func coseAlgorithm(alg int64) (cose.Algorithm, bool) {
	switch alg {
	case AlgES256:
		return cose.AlgorithmES256, true
	case AlgES384:
		return cose.AlgorithmES384, true
	case AlgES512:
		return cose.AlgorithmES512, true
	}
	return 0, false
}

// VerifySignature checks the CWT signature against the trust list.
//
// When the certificate carries a kid, the key is looked up directly and a
// miss reports StatusSignerUnknown. A kid-less certificate is tried against
// every key in the list: lookup is fail-open, verification stays
// fail-closed, and exhausting the list reports StatusInvalid.
func (c *CWT) VerifySignature(trustlist *TrustList) SignatureValidity {
	if c.Alg == nil {
		return SignatureValidity{Status: StatusMissingAlg}
	}
	alg, ok := coseAlgorithm(*c.Alg)
	if !ok {
		return SignatureValidity{Status: StatusUnsupportedAlg, Alg: *c.Alg}
	}

	sigStructure, err := c.MakeSigStructure()
	if err != nil {
		return SignatureValidity{Status: StatusInvalid}
	}

	if len(c.Kid) > 0 {
		key, ok := trustlist.Get(c.Kid)
		if !ok {
			return SignatureValidity{Status: StatusSignerUnknown, Kid: c.Kid}
		}
		if verifyECDSA(alg, key, sigStructure, c.Signature) {
			return SignatureValidity{Status: StatusValid}
		}
		return SignatureValidity{Status: StatusInvalid}
	}

	if trustlist.Len() == 0 {
		return SignatureValidity{Status: StatusMissingKid}
	}
	for _, key := range trustlist.Keys() {
		if verifyECDSA(alg, key, sigStructure, c.Signature) {
			return SignatureValidity{Status: StatusValid}
		}
	}
	return SignatureValidity{Status: StatusInvalid}
}

// verifyECDSA runs one ECDSA verification. go-cose splits the fixed-width
// r||s signature at the curve midpoint and does not reject high-s forms,
// which the DGC specification leaves unnormalised. A key whose curve does
// not match the algorithm simply fails to verify.
func verifyECDSA(alg cose.Algorithm, key *ecdsa.PublicKey, content, signature []byte) bool {
	verifier, err := cose.NewVerifier(alg, key)
	if err != nil {
		return false
	}
	return verifier.Verify(content, signature) == nil
}
