package greenpass

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	coseSign1Tag = 18
	cwtTag       = 61

	headerLabelAlg = int64(1)
	headerLabelKid = int64(4)
)

// rawSign1 is the COSE_Sign1 wire layout per RFC 8152 section 4.2:
//
//	COSE_Sign1 = [
//	    protected:   bstr,
//	    unprotected: header_map,
//	    payload:     bstr,
//	    signature:   bstr
//	]
type rawSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// CWT is a parsed COSE_Sign1 CBOR web token carrying a health certificate.
//
// ProtectedRaw keeps the protected header bytes exactly as transmitted. The
// signature covers those bytes, canonical encoding or not, so they must
// never be re-encoded from the parsed map.
type CWT struct {
	// ProtectedRaw is the content of the bstr-wrapped protected header,
	// verbatim. Empty iff the wrapped map was empty.
	ProtectedRaw []byte
	// Protected and Unprotected are the decoded header maps.
	Protected   map[interface{}]interface{}
	Unprotected map[interface{}]interface{}
	// PayloadRaw is the bstr-wrapped payload, verbatim.
	PayloadRaw []byte
	// Signature is the raw signature: r || s, fixed width per curve.
	Signature []byte

	// Kid and Alg are resolved from the headers, protected first. Alg is
	// nil when neither header carries label 1; Kid is nil when neither
	// carries label 4.
	Kid []byte
	Alg *int64

	// Payload is the decoded claim set.
	Payload *DGCContainer
}

// ParseCWT parses envelope bytes into a CWT. It accepts an optional outer
// CWT tag (61), an optional COSE_Sign1 tag (18), or a bare 4-element array;
// any other tag fails.
func ParseCWT(data []byte) (*CWT, error) {
	body := cbor.RawMessage(data)
	for isCBORTag(body) {
		var tag cbor.RawTag
		if err := cbor.Unmarshal(body, &tag); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCose, err)
		}
		switch tag.Number {
		case cwtTag, coseSign1Tag:
			body = tag.Content
		default:
			return nil, fmt.Errorf("%w: unexpected tag %d", ErrInvalidCose, tag.Number)
		}
	}

	var raw rawSign1
	if err := cbor.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCose, err)
	}

	protected, err := decodeProtected(raw.Protected)
	if err != nil {
		return nil, err
	}
	unprotected, err := decodeUnprotected(raw.Unprotected)
	if err != nil {
		return nil, err
	}

	cwt := &CWT{
		ProtectedRaw: raw.Protected,
		Protected:    protected,
		Unprotected:  unprotected,
		PayloadRaw:   raw.Payload,
		Signature:    raw.Signature,
		Kid:          resolveKid(protected, unprotected),
		Alg:          resolveAlg(protected, unprotected),
	}

	var payload DGCContainer
	if err := cbor.Unmarshal(raw.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalidCbor, err)
	}
	payload.Kid = cwt.Kid
	payload.Alg = cwt.Alg
	cwt.Payload = &payload

	return cwt, nil
}

// MakeSigStructure returns the byte string the COSE signature is computed
// over: the CBOR encoding of ["Signature1", protected, external_aad,
// payload] per RFC 8152 section 4.4. The external AAD is empty for hcert.
func (c *CWT) MakeSigStructure() ([]byte, error) {
	protected := c.ProtectedRaw
	if protected == nil {
		protected = []byte{}
	}
	payload := c.PayloadRaw
	if payload == nil {
		payload = []byte{}
	}
	return cbor.Marshal([]interface{}{
		"Signature1",
		protected,
		[]byte{},
		payload,
	})
}

func isCBORTag(data []byte) bool {
	return len(data) > 0 && data[0]>>5 == 6
}

// decodeProtected unwraps the protected header. A zero-length byte string
// stands for an empty map; anything else must decode to a CBOR map.
func decodeProtected(raw []byte) (map[interface{}]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[interface{}]interface{}
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: protected header: %v", ErrInvalidCbor, err)
	}
	return m, nil
}

// decodeUnprotected decodes the unprotected header, which must be a map.
// Some producers encode an absent header as an empty byte string; that is
// tolerated and treated as an empty map.
func decodeUnprotected(raw cbor.RawMessage) (map[interface{}]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[interface{}]interface{}
	if err := cbor.Unmarshal(raw, &m); err == nil {
		return m, nil
	}
	var b []byte
	if err := cbor.Unmarshal(raw, &b); err == nil && len(b) == 0 {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unprotected header is not a map", ErrInvalidCose)
}

// headerValue fetches an integer-labelled entry from a decoded header map.
// CBOR integer keys surface as int64 or uint64 depending on sign.
func headerValue(m map[interface{}]interface{}, label int64) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[label]; ok {
		return v, true
	}
	if label >= 0 {
		if v, ok := m[uint64(label)]; ok {
			return v, true
		}
	}
	return nil, false
}

// resolveKid reads the kid (label 4) from the protected header first, then
// the unprotected one. Wrong-typed values are ignored, as the wild contains
// certificates with junk headers next to usable ones.
func resolveKid(protected, unprotected map[interface{}]interface{}) []byte {
	for _, m := range []map[interface{}]interface{}{protected, unprotected} {
		if v, ok := headerValue(m, headerLabelKid); ok {
			if kid, ok := v.([]byte); ok && len(kid) > 0 {
				return kid
			}
		}
	}
	return nil
}

// resolveAlg reads the signing algorithm (label 1), protected header first.
func resolveAlg(protected, unprotected map[interface{}]interface{}) *int64 {
	for _, m := range []map[interface{}]interface{}{protected, unprotected} {
		v, ok := headerValue(m, headerLabelAlg)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			return &n
		case uint64:
			alg := int64(n)
			return &alg
		}
	}
	return nil
}
