// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pion/dtls/v3/pkg/crypto/fingerprint"
)

const (
	certificateValidity   = 365 * 24 * time.Hour
	fingerprintAlgorithm  = "sha-256"
	certificateCommonName = "rtclite"
)

// Certificate is the self-signed DTLS identity of the process. Peers trust
// it through the fingerprint in the session description.
type Certificate struct {
	privateKey  crypto.PrivateKey
	x509Cert    *x509.Certificate
	fingerprint string
}

// NewCertificate generates a new x509 compliant Certificate to be used
// by DTLS for encrypting data sent over the wire.
func NewCertificate(key crypto.PrivateKey, tpl x509.Certificate) (*Certificate, error) {
	sk, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrPrivateKeyType
	}

	tpl.SignatureAlgorithm = x509.ECDSAWithSHA256
	certDER, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, sk.Public(), sk)
	if err != nil {
		return nil, err
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, err
	}

	value, err := fingerprint.Fingerprint(cert, crypto.SHA256)
	if err != nil {
		return nil, err
	}

	return &Certificate{privateKey: key, x509Cert: cert, fingerprint: strings.ToUpper(value)}, nil
}

// GenerateCertificate creates a P-256 key and a self-signed certificate
// valid for one year with a random serial number.
func GenerateCertificate() (*Certificate, error) {
	secretKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	// Max random value, a 130-bits integer, i.e 2^130 - 1
	maxBigInt := new(big.Int)
	maxBigInt.Exp(big.NewInt(2), big.NewInt(130), nil).Sub(maxBigInt, big.NewInt(1))
	serialNumber, err := rand.Int(rand.Reader, maxBigInt)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return NewCertificate(secretKey, x509.Certificate{
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageClientAuth,
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(certificateValidity),
		SerialNumber:          serialNumber,
		Version:               2,
		Subject:               pkix.Name{CommonName: certificateCommonName},
	})
}

// Fingerprint returns the SHA-256 fingerprint as uppercase colon-separated
// hex, the form used in a=fingerprint.
func (c *Certificate) Fingerprint() string {
	return c.fingerprint
}

// Expires returns the timestamp after which this certificate is no longer valid.
func (c *Certificate) Expires() time.Time {
	if c.x509Cert == nil {
		return time.Time{}
	}

	return c.x509Cert.NotAfter
}

func (c *Certificate) tlsCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{c.x509Cert.Raw},
		PrivateKey:  c.privateKey,
		Leaf:        c.x509Cert,
	}
}

// matchesFingerprint checks rawCert against a remote a=fingerprint value.
func matchesFingerprint(rawCert []byte, expected string) error {
	cert, err := x509.ParseCertificate(rawCert)
	if err != nil {
		return err
	}
	actual, err := fingerprint.Fingerprint(cert, crypto.SHA256)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: got %s", ErrFingerprintMismatch, actual)
	}

	return nil
}
