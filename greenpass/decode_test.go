package greenpass

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/minvws/base45-go/eubase45"
)

// Test data generated at https://dgc.a-sit.at/ehn/generate.
const (
	testHC1 = "HC1:NCFOXN%TS3DH3ZSUZK+.V0ETD%65NL-AH-R6IOO6+IDOEZ/18WAV$E3+3AT4V22F/8X*G3M9JUPY0BX/KR96R/S09T./0LWTKD33236J3TA3M*4VV2 73-E3GG396B-43O058YIB73A*G3W19UEBY5:PI0EGSP4*2DN43U*0CEBQ/GXQFY73CIBC:G 7376BXBJBAJ UNFMJCRN0H3PQN*E33H3OA70M3FMJIJN523.K5QZ4A+2XEN QT QTHC31M3+E32R44$28A9H0D3ZCL4JMYAZ+S-A5$XKX6T2YC 35H/ITX8GL2-LH/CJTK96L6SR9MU9RFGJA6Q3QR$P2OIC0JVLA8J3ET3:H3A+2+33U SAAUOT3TPTO4UBZIC0JKQTL*QDKBO.AI9BVYTOCFOPS4IJCOT0$89NT2V457U8+9W2KQ-7LF9-DF07U$B97JJ1D7WKP/HLIJLRKF1MFHJP7NVDEBU1J*Z222E.GJI77N IKXN9+6J5DG3VWU5ZXT$ZRWP7++KM5MMUN/7UTFEEZPBK8C 7KMBI.3ZDBDREY7IM*N1KS3UI$6JD.JKLKA3UBJM-SJ9:OHBURZEF50WAQ 3"

	testCompressedHex = "78dabbd4e2bb88c5e3a6a479fcc1e7db3631aa2d8864345ec222957073030f9b54c2755e1ec624c7104b46e6858c4b12cb1a5725a5e43126e526e6fa07b9eb1a1a1818181b18199a26951564191a1a5a1a9b581a189827a59464190185750d8c740d2d9292f3810624256756188606f9598586397b5a19185a398658191a5818985b9818bb599a38baba1ab8ba9a1a581abb39391b999a38b958181a2b3b25e516e4b886ea1bea1b19e81b9a1a592465165748fb66e665169714552ae4a72978a426e69464e828389602453213938a5398924ad2332d4c0c4c8d814e314bce4bcc5d929c965752ea1b1a1ce21ae416e4186ae3eeef1a1cece9e7ee1a94949657ea0bd49a5a94569458aaeb7e78dbe1f99979e9a945c9e9792519ee8e4e419eae3eae49e97919ee89494599a939a9c965a945a9867a467a86c929f9495986969616206f1a994538ac94cdbbd0368767c9f5ce2cf3eb55dbdf3be4a564aefdbb4beeb4717ecbf642d73dbf5af51f2f596f738a8fbfbce0e10193ab977e9dbaa1f9eddfb1689b60c59def4e750000f0cf8cab"

	testCoseHex = "d2844da20448d919375fc1e7b6b20126a0590133a4041a60d9b00c061a60d70d0c01624154390103a101a4617681aa62646e01626d616d4f52472d3130303033303231356276706a313131393334393030376264746a323032312d30322d313862636f624154626369783155524e3a555643493a30313a41543a31303830373834334639344145453045453530393346424332353442443831332342626d706c45552f312f32302f31353238626973781b4d696e6973747279206f66204865616c74682c20417573747269616273640262746769383430353339303036636e616da463666e74754d5553544552465241553c474f455353494e47455262666e754d7573746572667261752d47c3b6c39f696e67657263676e74684741425249454c4562676e684761627269656c656376657265312e322e3163646f626a313939382d30322d32365840a91d6ed0869c0ca4d7896a37d77ab7ef406e6469adfdba1ecb336f84b77145bcfa852fe3a4af3cca0e0f7770e1c034d5d2facad829f6fec65b3c5321b9eeca88"
)

func TestDecodeInvalidPrefix(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "wrong version digit", raw: "HC0:" + testHC1[4:]},
		{name: "missing prefix", raw: testHC1[4:]},
		{name: "lowercase prefix", raw: "hc1:" + testHC1[4:]},
		{name: "empty input", raw: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.raw); !errors.Is(err, ErrInvalidPrefix) {
				t.Errorf("Decode() error = %v, want ErrInvalidPrefix", err)
			}
		})
	}
}

func TestDecodeInvalidBase45(t *testing.T) {
	if _, err := Decode("HC1:~~~not-base45~~~"); !errors.Is(err, ErrInvalidBase45) {
		t.Errorf("Decode() error = %v, want ErrInvalidBase45", err)
	}
}

func TestBase45RoundTrip(t *testing.T) {
	for _, data := range [][]byte{
		{},
		{0x00},
		{0xff, 0x00, 0x78},
		[]byte("the quick brown fox"),
		mustHex(t, testCompressedHex),
	} {
		encoded := eubase45.EUBase45Encode(data)
		decoded, err := eubase45.EUBase45Decode(encoded)
		if err != nil {
			t.Fatalf("EUBase45Decode(%q) error = %v", encoded, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("round trip mismatch: got %x, want %x", decoded, data)
		}
	}
}

func TestDecodeBase45Vector(t *testing.T) {
	body, err := unprefix(testHC1)
	if err != nil {
		t.Fatalf("unprefix() error = %v", err)
	}
	decoded, err := eubase45.EUBase45Decode([]byte(body))
	if err != nil {
		t.Fatalf("EUBase45Decode() error = %v", err)
	}
	if got := hex.EncodeToString(decoded); got != testCompressedHex {
		t.Errorf("base45 decode mismatch:\ngot  %s\nwant %s", got, testCompressedHex)
	}
}

func TestInflateVector(t *testing.T) {
	inflated, err := inflate(mustHex(t, testCompressedHex))
	if err != nil {
		t.Fatalf("inflate() error = %v", err)
	}
	if got := hex.EncodeToString(inflated); got != testCoseHex {
		t.Errorf("inflate mismatch:\ngot  %s\nwant %s", got, testCoseHex)
	}
}

func TestInflateFailure(t *testing.T) {
	if _, err := inflate([]byte{0x78, 0x9c, 0xde, 0xad, 0xbe, 0xef}); !errors.Is(err, ErrDeflateFailure) {
		t.Errorf("inflate() error = %v, want ErrDeflateFailure", err)
	}
}

// An uncompressed envelope must pass through untouched: re-encoding the
// bare COSE bytes without the zlib wrapper decodes to the same claims.
func TestDecodeUncompressedEnvelope(t *testing.T) {
	cose := mustHex(t, testCoseHex)
	raw := "HC1:" + string(eubase45.EUBase45Encode(cose))

	container, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if container.Issuer != "AT" {
		t.Errorf("issuer = %q, want AT", container.Issuer)
	}
}

func TestDecode(t *testing.T) {
	container, err := Decode(testHC1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if container.Issuer != "AT" {
		t.Errorf("issuer = %q, want AT", container.Issuer)
	}
	if container.IssuedAt != 1624706316 {
		t.Errorf("iat = %d, want 1624706316", container.IssuedAt)
	}
	if container.ExpiresAt != 1624879116 {
		t.Errorf("exp = %d, want 1624879116", container.ExpiresAt)
	}
	if container.Kid == nil {
		t.Error("kid not exposed on the container")
	}
	if container.Alg == nil || *container.Alg != AlgES256 {
		t.Errorf("alg = %v, want %d", container.Alg, AlgES256)
	}

	cert := container.Certificate()
	if cert == nil {
		t.Fatal("no HCERT v1 entry in container")
	}
	if cert.Version != "1.2.1" {
		t.Errorf("ver = %q, want 1.2.1", cert.Version)
	}
	if cert.DateOfBirth != "1998-02-26" {
		t.Errorf("dob = %q, want 1998-02-26", cert.DateOfBirth)
	}
	if cert.Name.FamilyName != "Musterfrau-Gößinger" || cert.Name.GivenName != "Gabriele" {
		t.Errorf("unexpected name: %+v", cert.Name)
	}
	if cert.Name.FamilyNameStd != "MUSTERFRAU<GOESSINGER" || cert.Name.GivenNameStd != "GABRIELE" {
		t.Errorf("unexpected transliterated name: %+v", cert.Name)
	}

	if len(cert.Tests) != 0 || len(cert.Recoveries) != 0 {
		t.Errorf("unexpected test/recovery groups: %d/%d entries", len(cert.Tests), len(cert.Recoveries))
	}
	if len(cert.Vaccinations) != 1 {
		t.Fatalf("vaccination group has %d entries, want 1", len(cert.Vaccinations))
	}
	v := cert.Vaccinations[0]
	if v.Target != "840539006" || v.Prophylaxis != "1119349007" || v.Product != "EU/1/20/1528" {
		t.Errorf("unexpected vaccination codes: %+v", v)
	}
	if v.Manufacturer != "ORG-100030215" || v.DoseNumber != 1 || v.DoseSeries != 2 {
		t.Errorf("unexpected vaccination details: %+v", v)
	}
	if v.Date != "2021-02-18" || v.Country != "AT" || v.Issuer != "Ministry of Health, Austria" {
		t.Errorf("unexpected vaccination provenance: %+v", v)
	}
	if v.CertificateID != "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B" {
		t.Errorf("unexpected certificate id: %q", v.CertificateID)
	}
}

func TestDecodeEnvelopeTooLarge(t *testing.T) {
	raw := "HC1:" + strings.Repeat("0", maxEnvelopeSize+1)
	if _, err := Decode(raw); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Decode() error = %v, want ErrTooLarge", err)
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return data
}
