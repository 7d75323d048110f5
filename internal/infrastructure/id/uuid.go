package id

import "github.com/google/uuid"

// UUIDGenerator assigns random UUIDv4 order identifiers.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (*UUIDGenerator) NewID() string {
	return uuid.NewString()
}
