package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainStatement = "starcube/statement/v1"
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

// StatementID computes the fingerprint of a compiled statement: the SQL
// text together with its bound parameters. Two plans with the same ID
// return the same rows against the same database.
func StatementID(sql string, params []IRValue) (string, error) {
	obj := IRObject{
		"sql":    IRString(sql),
		"params": IRArray(params),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StatementID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainStatement, canonical), nil
}

// MustStatementID is like StatementID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStatementID(sql string, params []IRValue) string {
	id, err := StatementID(sql, params)
	if err != nil {
		panic(err)
	}
	return id
}
