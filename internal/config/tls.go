package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"time"
)

// LoadServerTLS resolves the ServerConfig's TLS material into a
// tls.Certificate. If CertPath/KeyPath are set, they are loaded directly.
// Otherwise the self-signed pair is loaded if present at
// SelfSignedCertPath/SelfSignedKeyPath, or generated and persisted there.
// TLS.validate already guarantees CertPath and KeyPath are both set or both
// absent by the time this is called.
func (t TLSConfig) LoadServerTLS() (tls.Certificate, error) {
	if t.CertPath != "" {
		return tls.LoadX509KeyPair(t.CertPath, t.KeyPath)
	}

	if t.SelfSignedCertPath != "" {
		if _, err := os.Stat(t.SelfSignedCertPath); err == nil {
			return tls.LoadX509KeyPair(t.SelfSignedCertPath, t.SelfSignedKeyPath)
		}
	}

	return generateSelfSigned(t.SelfSignedCertPath, t.SelfSignedKeyPath)
}

// generateSelfSigned creates a new ECDSA self-signed certificate valid for
// one year and persists it at certPath/keyPath (when non-empty) so it is
// reused across restarts instead of regenerated every process start.
func generateSelfSigned(certPath, keyPath string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "aigatewayd self-signed"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshal key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if certPath != "" {
		if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
			return tls.Certificate{}, fmt.Errorf("persist cert: %w", err)
		}
		if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
			return tls.Certificate{}, fmt.Errorf("persist key: %w", err)
		}
	}

	return tls.X509KeyPair(certPEM, keyPEM)
}
