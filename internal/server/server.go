// Package server implements the demo HTTP verification service: a thin JSON
// API over the greenpass library for decoding and validating certificates
// and managing the trust list.
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/mux"

	"github.com/kokukuma/greenpass-verifier/greenpass"
)

var debugDump = os.Getenv("GREENPASS_DEBUG") != ""

type Server struct {
	mu          sync.RWMutex
	trustlist   *greenpass.TrustList
	validations *Validations
}

func NewServer(trustlist *greenpass.TrustList) *Server {
	if trustlist == nil {
		trustlist = greenpass.NewTrustList()
	}
	return &Server{
		trustlist:   trustlist,
		validations: NewValidations(),
	}
}

type DecodeRequest struct {
	Data string `json:"data"`
	// Expand resolves value-set codes into display names on the response.
	Expand bool `json:"expand,omitempty"`
}

type DecodeResponse struct {
	Certificate *greenpass.DGCContainer `json:"certificate"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Decode handles POST /decode: decode without signature verification.
func (s *Server) Decode(w http.ResponseWriter, r *http.Request) {
	req := DecodeRequest{}
	if err := parseJSON(r, &req); err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	container, err := greenpass.Decode(req.Data)
	if err != nil {
		jsonErrorResponse(w, err, http.StatusUnprocessableEntity)
		return
	}
	if req.Expand {
		container.ExpandValues()
	}

	jsonResponse(w, DecodeResponse{Certificate: container}, http.StatusOK)
}

// Validate handles POST /validate: decode plus signature verification
// against the server's trust list. The outcome is recorded and returned
// with an identifier for later retrieval.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	req := DecodeRequest{}
	if err := parseJSON(r, &req); err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	container, validity, err := greenpass.Validate(req.Data, s.trustlist)
	s.mu.RUnlock()
	if err != nil {
		jsonErrorResponse(w, err, http.StatusUnprocessableEntity)
		return
	}
	if req.Expand {
		container.ExpandValues()
	}

	jsonResponse(w, s.validations.Save(container, validity), http.StatusOK)
}

// GetValidation handles GET /validations/{id}.
func (s *Server) GetValidation(w http.ResponseWriter, r *http.Request) {
	entry, err := s.validations.Get(mux.Vars(r)["id"])
	if err != nil {
		jsonErrorResponse(w, err, http.StatusNotFound)
		return
	}
	jsonResponse(w, entry, http.StatusOK)
}

type AddCertificateRequest struct {
	// Certificate is the issuer certificate: PEM, or base64 DER.
	Certificate string `json:"certificate"`
	// Kid optionally overrides the derived key identifier (base64).
	Kid string `json:"kid,omitempty"`
}

type AddCertificateResponse struct {
	Kid string `json:"kid"`
}

// AddCertificate handles POST /certificates: add one issuer certificate to
// the trust list.
func (s *Server) AddCertificate(w http.ResponseWriter, r *http.Request) {
	req := AddCertificateRequest{}
	if err := parseJSON(r, &req); err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to parse request: %v", err), http.StatusBadRequest)
		return
	}

	var kid []byte
	if req.Kid != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Kid)
		if err != nil {
			jsonErrorResponse(w, fmt.Errorf("failed to decode kid: %v", err), http.StatusBadRequest)
			return
		}
		kid = decoded
	}

	s.mu.Lock()
	kid, err := s.trustlist.AddCertificate(kid, []byte(req.Certificate))
	s.mu.Unlock()
	if err != nil {
		jsonErrorResponse(w, err, http.StatusBadRequest)
		return
	}

	jsonResponse(w, AddCertificateResponse{Kid: base64.StdEncoding.EncodeToString(kid)}, http.StatusOK)
}

// ListKeys handles GET /certificates: the number of loaded keys. Key
// material itself is not echoed back.
func (s *Server) ListKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := s.trustlist.Len()
	s.mu.RUnlock()
	jsonResponse(w, map[string]int{"keys": n}, http.StatusOK)
}

func parseJSON(r *http.Request, v interface{}) error {
	if r == nil || r.Body == nil {
		return errors.New("no request given")
	}

	defer r.Body.Close()
	defer io.Copy(io.Discard, r.Body)

	return json.NewDecoder(r.Body).Decode(v)
}

func jsonResponse(w http.ResponseWriter, d interface{}, c int) {
	dj, err := json.Marshal(d)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	if debugDump {
		spew.Dump(d)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c)
	fmt.Fprintf(w, "%s", dj)
}

func jsonErrorResponse(w http.ResponseWriter, e error, c int) {
	dj, err := json.Marshal(ErrorResponse{Error: e.Error()})
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c)
	fmt.Fprintf(w, "%s", dj)
}
