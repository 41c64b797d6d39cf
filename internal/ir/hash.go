package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainUnit    = "flatc/unit/v1"
	DomainListing = "flatc/listing/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// UnitHash computes the content hash of a unit's declarations and macros.
// Source positions are not part of the hash.
func UnitHash(u *Unit) (string, error) {
	canonical, err := MarshalCanonical(EncodeUnit(u))
	if err != nil {
		return "", fmt.Errorf("UnitHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainUnit, canonical), nil
}

// ListingHash hashes a rendered listing so runs can be compared by output.
func ListingHash(listing string) string {
	return hashWithDomain(DomainListing, []byte(listing))
}

// MustUnitHash is like UnitHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustUnitHash(u *Unit) string {
	h, err := UnitHash(u)
	if err != nil {
		panic(err)
	}
	return h
}
