package greenpass

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/kokukuma/greenpass-verifier/valueset"
)

// EpochTime is a unix timestamp claim. Certificates in the wild carry these
// as CBOR integers or, from some issuers, as floats; both are accepted.
type EpochTime int64

// UnmarshalCBOR implements cbor.Unmarshaler.
func (t *EpochTime) UnmarshalCBOR(data []byte) error {
	var i int64
	if err := cbor.Unmarshal(data, &i); err == nil {
		*t = EpochTime(i)
		return nil
	}
	var f float64
	if err := cbor.Unmarshal(data, &f); err == nil {
		*t = EpochTime(int64(f))
		return nil
	}
	return fmt.Errorf("timestamp is neither an integer nor a float")
}

// Time returns the timestamp as a UTC time.Time.
func (t EpochTime) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// DGCContainer is the CWT claim set wrapping one or more health
// certificates, keyed per the hcert specification: issuer (1), expiration
// (4), issued-at (6) and the -260 health-certificate claim, whose entry 1 is
// the "HCERT v1" certificate.
type DGCContainer struct {
	Issuer    string         `cbor:"1,keyasint,omitempty" json:"iss,omitempty"`
	ExpiresAt EpochTime      `cbor:"4,keyasint,omitempty" json:"exp,omitempty"`
	IssuedAt  EpochTime      `cbor:"6,keyasint,omitempty" json:"iat,omitempty"`
	Certs     map[int64]*DGC `cbor:"-260,keyasint,omitempty" json:"hcert,omitempty"`

	// Kid and Alg are the signature metadata found in the COSE headers,
	// kept here so a caller holding only the decoded container can fetch
	// verification keys before validating.
	Kid []byte `cbor:"-" json:"kid,omitempty"`
	Alg *int64 `cbor:"-" json:"alg,omitempty"`
}

// Certificate returns the HCERT v1 entry, or nil if the container carries
// none.
func (c *DGCContainer) Certificate() *DGC {
	if c == nil {
		return nil
	}
	return c.Certs[1]
}

// ExpandValues resolves the coded fields of every embedded certificate
// through the value-set catalogue. Raw codes are never touched; unknown
// codes leave the display fields empty.
func (c *DGCContainer) ExpandValues() {
	for _, dgc := range c.Certs {
		dgc.ExpandValues()
	}
}

// Name holds the subject name, plain and ICAO 9303 transliterated.
type Name struct {
	FamilyName    string `cbor:"fn,omitempty" json:"fn,omitempty"`
	GivenName     string `cbor:"gn,omitempty" json:"gn,omitempty"`
	FamilyNameStd string `cbor:"fnt" json:"fnt"`
	GivenNameStd  string `cbor:"gnt,omitempty" json:"gnt,omitempty"`
}

// DGC is a single HCERT v1 health certificate. Exactly one of the
// vaccination, test and recovery groups is populated on a conforming
// certificate; the decoder does not enforce that so callers can inspect
// non-conforming data.
type DGC struct {
	Version      string        `cbor:"ver" json:"ver"`
	Name         Name          `cbor:"nam" json:"nam"`
	DateOfBirth  string        `cbor:"dob" json:"dob"`
	Vaccinations []Vaccination `cbor:"v,omitempty" json:"v,omitempty"`
	Tests        []Test        `cbor:"t,omitempty" json:"t,omitempty"`
	Recoveries   []Recovery    `cbor:"r,omitempty" json:"r,omitempty"`
}

// ExpandValues resolves the coded fields of every entry in the certificate.
func (d *DGC) ExpandValues() {
	if d == nil {
		return
	}
	for i := range d.Vaccinations {
		d.Vaccinations[i].expandValues()
	}
	for i := range d.Tests {
		d.Tests[i].expandValues()
	}
	for i := range d.Recoveries {
		d.Recoveries[i].expandValues()
	}
}

// Vaccination is one entry of the vaccination group.
type Vaccination struct {
	Target        string `cbor:"tg" json:"tg"`
	Prophylaxis   string `cbor:"vp" json:"vp"`
	Product       string `cbor:"mp" json:"mp"`
	Manufacturer  string `cbor:"ma" json:"ma"`
	DoseNumber    int    `cbor:"dn" json:"dn"`
	DoseSeries    int    `cbor:"sd" json:"sd"`
	Date          string `cbor:"dt" json:"dt"`
	Country       string `cbor:"co" json:"co"`
	Issuer        string `cbor:"is" json:"is"`
	CertificateID string `cbor:"ci" json:"ci"`

	TargetDisplay       string `cbor:"-" json:"tgDisplay,omitempty"`
	ProphylaxisDisplay  string `cbor:"-" json:"vpDisplay,omitempty"`
	ProductDisplay      string `cbor:"-" json:"mpDisplay,omitempty"`
	ManufacturerDisplay string `cbor:"-" json:"maDisplay,omitempty"`
	CountryDisplay      string `cbor:"-" json:"coDisplay,omitempty"`
}

func (v *Vaccination) expandValues() {
	v.TargetDisplay = valueset.Display(valueset.DiseaseAgentTargeted, v.Target)
	v.ProphylaxisDisplay = valueset.Display(valueset.VaccineProphylaxis, v.Prophylaxis)
	v.ProductDisplay = valueset.Display(valueset.VaccineProduct, v.Product)
	v.ManufacturerDisplay = valueset.Display(valueset.VaccineAuthHolder, v.Manufacturer)
	v.CountryDisplay = valueset.Display(valueset.CountryCodes, v.Country)
}

// Test is one entry of the test group.
type Test struct {
	Target        string `cbor:"tg" json:"tg"`
	Type          string `cbor:"tt" json:"tt"`
	Name          string `cbor:"nm,omitempty" json:"nm,omitempty"`
	Manufacturer  string `cbor:"ma,omitempty" json:"ma,omitempty"`
	SampleDate    string `cbor:"sc" json:"sc"`
	ResultDate    string `cbor:"dr,omitempty" json:"dr,omitempty"`
	Result        string `cbor:"tr" json:"tr"`
	TestingCentre string `cbor:"tc,omitempty" json:"tc,omitempty"`
	Country       string `cbor:"co" json:"co"`
	Issuer        string `cbor:"is" json:"is"`
	CertificateID string `cbor:"ci" json:"ci"`

	TargetDisplay       string `cbor:"-" json:"tgDisplay,omitempty"`
	TypeDisplay         string `cbor:"-" json:"ttDisplay,omitempty"`
	ManufacturerDisplay string `cbor:"-" json:"maDisplay,omitempty"`
	ResultDisplay       string `cbor:"-" json:"trDisplay,omitempty"`
	CountryDisplay      string `cbor:"-" json:"coDisplay,omitempty"`
}

func (t *Test) expandValues() {
	t.TargetDisplay = valueset.Display(valueset.DiseaseAgentTargeted, t.Target)
	t.TypeDisplay = valueset.Display(valueset.TestType, t.Type)
	t.ManufacturerDisplay = valueset.Display(valueset.TestManufacturerAndName, t.Manufacturer)
	t.ResultDisplay = valueset.Display(valueset.TestResult, t.Result)
	t.CountryDisplay = valueset.Display(valueset.CountryCodes, t.Country)
}

// Recovery is one entry of the recovery group.
type Recovery struct {
	Target            string `cbor:"tg" json:"tg"`
	FirstPositiveDate string `cbor:"fr" json:"fr"`
	Country           string `cbor:"co" json:"co"`
	Issuer            string `cbor:"is" json:"is"`
	ValidFrom         string `cbor:"df" json:"df"`
	ValidUntil        string `cbor:"du" json:"du"`
	CertificateID     string `cbor:"ci" json:"ci"`

	TargetDisplay  string `cbor:"-" json:"tgDisplay,omitempty"`
	CountryDisplay string `cbor:"-" json:"coDisplay,omitempty"`
}

func (r *Recovery) expandValues() {
	r.TargetDisplay = valueset.Display(valueset.DiseaseAgentTargeted, r.Target)
	r.CountryDisplay = valueset.Display(valueset.CountryCodes, r.Country)
}
