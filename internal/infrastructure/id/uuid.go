package id

import "github.com/google/uuid"

// UUIDGenerator mints random (v4) identifiers.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// Valid reports whether s is a well-formed UUID.
func (UUIDGenerator) Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
