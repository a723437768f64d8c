package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kokukuma/greenpass-verifier/greenpass"
)

// Validation records one validate call so clients can fetch the outcome
// again by its identifier.
type Validation struct {
	ID          string                  `json:"id"`
	Requested   time.Time               `json:"requested"`
	Certificate *greenpass.DGCContainer `json:"certificate"`
	Validity    string                  `json:"validity"`
	Valid       bool                    `json:"valid"`
}

type Validations struct {
	mu      sync.RWMutex
	entries map[string]*Validation
}

func NewValidations() *Validations {
	return &Validations{entries: make(map[string]*Validation)}
}

func (v *Validations) Save(container *greenpass.DGCContainer, validity greenpass.SignatureValidity) *Validation {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry := &Validation{
		ID:          uuid.New().String(),
		Requested:   time.Now().UTC(),
		Certificate: container,
		Validity:    validity.String(),
		Valid:       validity.IsValid(),
	}
	v.entries[entry.ID] = entry
	return entry
}

func (v *Validations) Get(id string) (*Validation, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, ok := v.entries[id]
	if !ok {
		return nil, errors.New("validation not found")
	}
	return entry, nil
}
