// Validates a certificate from stdin against issuer certificates loaded
// from a directory.
//
//	echo "HC1:..." | go run ./cmd/validate -trust ./pems
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/kokukuma/greenpass-verifier/greenpass"
	"github.com/kokukuma/greenpass-verifier/pkg/pki"
)

func main() {
	trustDir := flag.String("trust", "", "directory of issuer certificates (PEM, DER or base64)")
	trustJSON := flag.String("trustjson", "", "trust-list JSON document")
	flag.Parse()

	var trustlist *greenpass.TrustList
	var err error
	switch {
	case *trustDir != "":
		trustlist, err = pki.LoadTrustList(*trustDir)
	case *trustJSON != "":
		trustlist, err = pki.LoadTrustListJSON(*trustJSON)
	default:
		log.Fatal("either -trust or -trustjson is required")
	}
	if err != nil {
		log.Fatalf("could not load trust list: %v", err)
	}

	code, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("could not read from stdin: %v", err)
	}

	container, validity, err := greenpass.Validate(strings.TrimSpace(string(code)), trustlist)
	if err != nil {
		log.Fatalf("could not decode certificate: %v", err)
	}
	container.ExpandValues()
	spew.Dump(container)

	log.Printf("signature: %s", validity)
	if !validity.IsValid() {
		os.Exit(1)
	}
}
