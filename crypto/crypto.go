// Copyright 2026 The simple-pow-chain Authors
// This file is part of simple-pow-chain.
//
// simple-pow-chain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// simple-pow-chain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with simple-pow-chain. If not, see <http://www.gnu.org/licenses/>.

// Package crypto provides the hashing, key generation, and signature
// primitives the rest of the chain builds on: SHA-256 digests for block
// and transaction hashes, and secp256k1 ECDSA for transfer signatures.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey is a secp256k1 signing key.
type PrivateKey = secp256k1.PrivateKey

// PublicKey is a secp256k1 verifying key.
type PublicKey = secp256k1.PublicKey

// GenerateKey creates a new random signing key.
func GenerateKey() (*PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// Sha256 returns the raw 32-byte SHA-256 digest of data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sha256Hex returns the hex-encoded SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Address derives the chain address of a public key: the hex encoding
// of its compressed SEC1 representation. Two different public keys
// never collide on an address, and the derivation is one-way only in
// the trivial sense that hex encoding is reversible -- the address IS
// the public key, which is why PublicKeyFromAddress below is exact.
func Address(pub *PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}

// PublicKeyFromAddress parses an address string back into a public key,
// failing if the bytes are not a valid point on secp256k1.
func PublicKeyFromAddress(address string) (*PublicKey, error) {
	raw, err := hex.DecodeString(address)
	if err != nil {
		return nil, err
	}
	return secp256k1.ParsePubKey(raw)
}

// ParsePublicKey parses raw compressed SEC1 bytes into a public key.
func ParsePublicKey(raw []byte) (*PublicKey, error) {
	return secp256k1.ParsePubKey(raw)
}

// Sign produces a DER-encoded ECDSA signature over hash using priv.
func Sign(priv *PrivateKey, hash []byte) ([]byte, error) {
	if len(hash) == 0 {
		return nil, errors.New("crypto: empty message hash")
	}
	sig := ecdsa.Sign(priv, hash)
	return sig.Serialize(), nil
}

// Verify reports whether sig is a valid DER-encoded ECDSA signature
// over hash by the holder of pub.
func Verify(pub *PublicKey, hash, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(hash, pub)
}

// RandomBytes returns n cryptographically random bytes, for callers
// that need a nonce unrelated to the mining nonce.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
