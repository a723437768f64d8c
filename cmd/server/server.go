package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/kokukuma/greenpass-verifier/greenpass"
	"github.com/kokukuma/greenpass-verifier/internal/server"
	"github.com/kokukuma/greenpass-verifier/pkg/pki"
)

func main() {
	trustlist := greenpass.NewTrustList()
	if dir := os.Getenv("TRUST_DIR"); dir != "" {
		loaded, err := pki.LoadTrustList(dir)
		if err != nil {
			log.Fatalf("failed to load trust list from %s: %v", dir, err)
		}
		trustlist = loaded
	}
	log.Printf("trust list holds %d keys", trustlist.Len())

	srv := server.NewServer(trustlist)

	r := mux.NewRouter()
	r.Use(handlers.CORS(
		handlers.AllowedMethods([]string{"POST", "GET"}),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedOrigins([]string{"*"}),
	))

	r.HandleFunc("/decode", srv.Decode).Methods("POST", "OPTIONS")
	r.HandleFunc("/validate", srv.Validate).Methods("POST", "OPTIONS")
	r.HandleFunc("/validations/{id}", srv.GetValidation).Methods("GET", "OPTIONS")
	r.HandleFunc("/certificates", srv.ListKeys).Methods("GET", "OPTIONS")
	r.HandleFunc("/certificates", srv.AddCertificate).Methods("POST", "OPTIONS")

	serverAddress := ":8080"
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		serverAddress = addr
	}
	log.Println("starting greenpass verifier at", serverAddress)
	log.Fatal(http.ListenAndServe(serverAddress, r))
}
