// Package pki loads trust-list material from the filesystem: directories of
// issuer certificates and community trust-list JSON documents.
package pki

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kokukuma/greenpass-verifier/greenpass"
)

// LoadTrustList builds a trust list from every certificate file in dir.
// Files may be PEM, DER or bare base64 DER; the kid for each entry is
// derived from the certificate. Unreadable files are logged and skipped so
// a single rotten certificate does not take the whole list down.
func LoadTrustList(dir string) (*greenpass.TrustList, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust directory %s: %w", dir, err)
	}

	trustlist := greenpass.NewTrustList()
	for _, file := range files {
		if file.IsDir() || !isCertFile(file.Name()) {
			continue
		}
		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("failed to read %s: %v", path, err)
			continue
		}
		if _, err := trustlist.AddCertificate(nil, data); err != nil {
			log.Printf("failed to load %s: %v", path, err)
		}
	}
	return trustlist, nil
}

// LoadTrustListJSON reads a community trust-list JSON document from path.
func LoadTrustListJSON(path string) (*greenpass.TrustList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust list %s: %w", path, err)
	}
	return greenpass.TrustListFromJSON(data)
}

func isCertFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pem", ".crt", ".cer", ".der", ".b64":
		return true
	}
	return false
}
