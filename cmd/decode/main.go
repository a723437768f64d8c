// Decodes a certificate from stdin without verifying its signature.
//
//	echo "HC1:..." | go run ./cmd/decode
package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/kokukuma/greenpass-verifier/greenpass"
)

func main() {
	code, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("could not read from stdin: %v", err)
	}

	container, err := greenpass.Decode(strings.TrimSpace(string(code)))
	if err != nil {
		log.Fatalf("could not decode certificate: %v", err)
	}
	container.ExpandValues()

	spew.Dump(container)
}
