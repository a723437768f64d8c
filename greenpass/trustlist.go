package greenpass

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// kidSize is the length of a derived key identifier: the first 8 bytes of
// the SHA-256 over the certificate DER.
const kidSize = 8

var (
	oidECPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidCurveP256   = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidCurveP384   = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	oidCurveP521   = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
)

// TrustList maps key identifiers to issuer EC public keys. It is mutable
// while being populated and must be treated as read-only once verification
// starts; it does no internal locking.
type TrustList struct {
	keys map[string]*ecdsa.PublicKey
}

// NewTrustList returns an empty trust list.
func NewTrustList() *TrustList {
	return &TrustList{keys: make(map[string]*ecdsa.PublicKey)}
}

// AddKey inserts key under kid, replacing any previous entry.
func (t *TrustList) AddKey(kid []byte, key *ecdsa.PublicKey) {
	t.keys[string(kid)] = key
}

// AddRawPoint inserts the affine point encoded in SEC 1 format
// (uncompressed or compressed) on the given curve.
func (t *TrustList) AddRawPoint(kid []byte, curve elliptic.Curve, point []byte) error {
	x, y, err := unmarshalPoint(curve, point)
	if err != nil {
		return err
	}
	t.AddKey(kid, &ecdsa.PublicKey{Curve: curve, X: x, Y: y})
	return nil
}

// AddPublicKey parses a SubjectPublicKeyInfo, given as DER or as a
// PEM-wrapped "PUBLIC KEY" block, and inserts it. A nil kid derives one
// from the SHA-256 of the SPKI DER. The effective kid is returned.
func (t *TrustList) AddPublicKey(kid []byte, data []byte) ([]byte, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "PUBLIC KEY" {
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrMalformedKey, block.Type)
		}
		der = block.Bytes
	}

	key, err := parsePublicKeyDER(der)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		kid = deriveKid(der)
	}
	t.AddKey(kid, key)
	return kid, nil
}

// AddCertificate parses an X.509 certificate, given as DER, PEM, or bare
// base64 DER, and inserts its public key. A PEM "PUBLIC KEY" block is
// tolerated and delegated to AddPublicKey. A nil kid derives one as the
// first 8 bytes of SHA-256 over the certificate DER. The effective kid is
// returned.
func (t *TrustList) AddCertificate(kid []byte, data []byte) ([]byte, error) {
	if block, _ := pem.Decode(data); block != nil {
		switch block.Type {
		case "CERTIFICATE":
			data = block.Bytes
		case "PUBLIC KEY":
			return t.AddPublicKey(kid, block.Bytes)
		default:
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrMalformedCertificate, block.Type)
		}
	} else if len(data) > 0 && data[0] != 0x30 {
		// Trust-list distributions often carry the certificate as bare
		// base64 DER without PEM delimiters.
		decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
		}
		data = decoded
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCertificate, err)
	}
	key, err := parsePublicKeyDER(cert.RawSubjectPublicKeyInfo)
	if err != nil {
		return nil, err
	}

	if kid == nil {
		kid = deriveKid(cert.Raw)
	}
	t.AddKey(kid, key)
	return kid, nil
}

// Get returns the key stored under kid.
func (t *TrustList) Get(kid []byte) (*ecdsa.PublicKey, bool) {
	key, ok := t.keys[string(kid)]
	return key, ok
}

// Keys returns every stored key. Used when a certificate omits its kid and
// the verifier has to try them all.
func (t *TrustList) Keys() []*ecdsa.PublicKey {
	keys := make([]*ecdsa.PublicKey, 0, len(t.keys))
	for _, key := range t.keys {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of stored keys.
func (t *TrustList) Len() int {
	return len(t.keys)
}

// trustListKeyDef is one entry of the community trust-list JSON document:
// the map key is the base64 kid, publicKeyPem the base64 SPKI DER.
type trustListKeyDef struct {
	PublicKeyAlgorithm struct {
		Name       string `mapstructure:"name"`
		NamedCurve string `mapstructure:"namedCurve"`
	} `mapstructure:"publicKeyAlgorithm"`
	PublicKeyPem string `mapstructure:"publicKeyPem"`
}

// TrustListFromJSON builds a trust list from a JSON document of the shape
// published by the community trust-list mirrors:
//
//	{ "<base64 kid>": { "publicKeyAlgorithm": {"name": "ECDSA", ...},
//	                    "publicKeyPem": "<base64 SPKI>", ... }, ... }
//
// Only ECDSA entries are accepted.
func TrustListFromJSON(data []byte) (*TrustList, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("trust list is not a JSON object: %w", err)
	}

	tl := NewTrustList()
	for kidB64, rawDef := range root {
		var def trustListKeyDef
		if err := mapstructure.Decode(rawDef, &def); err != nil {
			return nil, fmt.Errorf("key %q: %w", kidB64, err)
		}
		if def.PublicKeyAlgorithm.Name != "ECDSA" {
			return nil, fmt.Errorf("key %q: %w: algorithm %q", kidB64, ErrUnsupportedCurve, def.PublicKeyAlgorithm.Name)
		}
		kid, err := base64.StdEncoding.DecodeString(kidB64)
		if err != nil {
			return nil, fmt.Errorf("key %q: cannot decode kid: %w", kidB64, err)
		}
		der, err := base64.StdEncoding.DecodeString(def.PublicKeyPem)
		if err != nil {
			return nil, fmt.Errorf("key %q: cannot decode publicKeyPem: %w", kidB64, err)
		}
		if _, err := tl.AddPublicKey(kid, der); err != nil {
			return nil, fmt.Errorf("key %q: %w", kidB64, err)
		}
	}
	return tl, nil
}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

// parsePublicKeyDER parses a SubjectPublicKeyInfo into an EC public key.
// The stdlib parser rejects compressed points, which trust-list SPKI
// entries may carry, so the SPKI is walked manually: the algorithm must be
// id-ecPublicKey with a named-curve parameter (explicit curve parameters
// are rejected), and the bit string holds the SEC 1 point.
func parsePublicKeyDER(der []byte) (*ecdsa.PublicKey, error) {
	var spki struct {
		Algorithm        algorithmIdentifier
		SubjectPublicKey asn1.BitString
	}
	if rest, err := asn1.Unmarshal(der, &spki); err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("%w: not a SubjectPublicKeyInfo", ErrMalformedKey)
	}
	if !spki.Algorithm.Algorithm.Equal(oidECPublicKey) {
		return nil, fmt.Errorf("%w: algorithm %v is not id-ecPublicKey", ErrUnsupportedCurve, spki.Algorithm.Algorithm)
	}

	var curveOID asn1.ObjectIdentifier
	if rest, err := asn1.Unmarshal(spki.Algorithm.Parameters.FullBytes, &curveOID); err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("%w: curve parameters are not a named curve", ErrUnsupportedCurve)
	}
	curve, err := curveForOID(curveOID)
	if err != nil {
		return nil, err
	}

	x, y, err := unmarshalPoint(curve, spki.SubjectPublicKey.Bytes)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func curveForOID(oid asn1.ObjectIdentifier) (elliptic.Curve, error) {
	switch {
	case oid.Equal(oidCurveP256):
		return elliptic.P256(), nil
	case oid.Equal(oidCurveP384):
		return elliptic.P384(), nil
	case oid.Equal(oidCurveP521):
		return elliptic.P521(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedCurve, oid)
}

func unmarshalPoint(curve elliptic.Curve, point []byte) (*big.Int, *big.Int, error) {
	if len(point) == 0 {
		return nil, nil, fmt.Errorf("%w: empty point", ErrMalformedKey)
	}
	var x, y *big.Int
	switch point[0] {
	case 0x04:
		x, y = elliptic.Unmarshal(curve, point)
	case 0x02, 0x03:
		x, y = elliptic.UnmarshalCompressed(curve, point)
	default:
		return nil, nil, fmt.Errorf("%w: unknown point format 0x%02x", ErrMalformedKey, point[0])
	}
	if x == nil {
		return nil, nil, fmt.Errorf("%w: point is not on the curve", ErrMalformedKey)
	}
	return x, y, nil
}

func deriveKid(der []byte) []byte {
	sum := sha256.Sum256(der)
	return sum[:kidSize]
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
