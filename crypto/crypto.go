// Package crypto is the capability spec.md §1 carves out as an external
// collaborator: keypair generation, detached signatures, SHA-256 digests,
// and PEM encoding of public keys. Grounded on
// NethermindEth-rollup-geth/crypto/secp256r1/verifier.go, which builds its
// verifier straight out of crypto/ecdsa + crypto/elliptic rather than a
// third-party curve package — the same precedent this adapts.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"

	"github.com/driftchain/driftchain/common"
)

// Curve is the elliptic curve every keypair in this system uses.
var Curve = elliptic.P256()

// GenerateKey creates a fresh ECDSA keypair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(Curve, rand.Reader)
}

// Hash256 computes the canonical SHA-256 digest over the concatenation of
// its arguments, the identity function for both Tx and Block.
func Hash256(parts ...[]byte) common.Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return common.BytesToHash(h.Sum(nil))
}

// Sign produces a detached ASN.1 signature of hash under sk.
func Sign(hash common.Hash, sk *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := ecdsa.SignASN1(rand.Reader, sk, hash.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of hash under the PEM
// encoded public key pubPEM.
func Verify(hash common.Hash, sig []byte, pubPEM []byte) bool {
	pub, err := ParsePublicKeyPEM(pubPEM)
	if err != nil {
		return false
	}
	return ecdsa.VerifyASN1(pub, hash.Bytes(), sig)
}

// MarshalPublicKeyPEM PEM-encodes a public key, the wire representation
// used for sender_pk/receiver_pk/mined_by/validator_pk everywhere in this
// system.
func MarshalPublicKeyPEM(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, errors.Wrap(err, "marshal public key")
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return pem.EncodeToMemory(block), nil
}

// ParsePublicKeyPEM is the inverse of MarshalPublicKeyPEM.
func ParsePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid PEM public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "parse public key")
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}
	return pub, nil
}

const (
	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = 32
	saltLen          = 16
)

// EncryptPrivateKey derives an AES-256-GCM key from password via PBKDF2
// (the same derivation family the teacher's go.mod already pulls in
// golang.org/x/crypto for) and seals the marshaled private key under it.
// The returned blob is salt || nonce || ciphertext.
func EncryptPrivateKey(sk *ecdsa.PrivateKey, password string) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(sk)
	if err != nil {
		return nil, errors.Wrap(err, "marshal private key")
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "read salt")
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "gcm")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "read nonce")
	}
	ciphertext := gcm.Seal(nil, nonce, der, nil)
	out := make([]byte, 0, saltLen+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptPrivateKey is the inverse of EncryptPrivateKey; a wrong password
// or tampered blob surfaces as an error, never a panic, per spec.md §7.
func DecryptPrivateKey(blob []byte, password string) (*ecdsa.PrivateKey, error) {
	if len(blob) < saltLen {
		return nil, errors.New("truncated key blob")
	}
	salt := blob[:saltLen]
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "gcm")
	}
	nonceSize := gcm.NonceSize()
	if len(blob) < saltLen+nonceSize {
		return nil, errors.New("truncated key blob")
	}
	nonce := blob[saltLen : saltLen+nonceSize]
	ciphertext := blob[saltLen+nonceSize:]
	der, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt private key: wrong password or tampered data")
	}
	sk, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return sk, nil
}
