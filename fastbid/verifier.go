package fastbid

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
)

// Production signing key for cached scripts. RSA with SHA-256 digests.
const (
	pubKeyE = 65537
	pubKeyN = "ztQYwCE5BU7T9CDM5he6rKoabstXRmkzx54zFPZkWbK530dwtLBDeaWBMxHBUT55CYyboR/EZ4efghPi3CoNGfGWezpjko9P6p2EwGArtHEeS4slhu/SpSIFMjG6fdrpRoNuIAMhq1Z+Pr/+HOd1pThFKeGFr2/NhtAg+TXAzaU="
)

// Verifier checks the asymmetric signature on a cached script blob.
type Verifier struct {
	key *rsa.PublicKey
}

// NewVerifier returns a Verifier pinned to the embedded production key.
func NewVerifier() *Verifier {
	n, err := base64.StdEncoding.DecodeString(pubKeyN)
	if err != nil {
		// Leaves the verifier without a key; every Verify call then reports
		// an indeterminate outcome instead of a hard failure.
		return &Verifier{}
	}
	return &Verifier{key: &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: pubKeyE}}
}

// NewVerifierFromPEM builds a Verifier from a PEM encoded PKIX public key,
// letting hosts pin a rotated key through configuration.
func NewVerifierFromPEM(block []byte) (*Verifier, error) {
	der, _ := pem.Decode(block)
	if der == nil {
		return nil, errors.New("fastbid: no PEM block in public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(der.Bytes)
	if err != nil {
		return nil, fmt.Errorf("fastbid: parsing public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("fastbid: unsupported public key type %T", parsed)
	}
	return &Verifier{key: key}, nil
}

// NewVerifierForKey wraps an already parsed key. Intended for tests.
func NewVerifierForKey(key *rsa.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// Verify reports whether signature is a valid RSA/SHA-256 signature of
// script. A non-nil error means the check could not be evaluated at all,
// which callers must treat differently from an explicit mismatch.
func (v *Verifier) Verify(script []byte, signature []byte) (bool, error) {
	if v == nil || v.key == nil {
		return false, errors.New("fastbid: no verification key available")
	}

	digest := sha256.Sum256(script)
	err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], signature)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, rsa.ErrVerification) {
		return false, nil
	}
	return false, err
}
