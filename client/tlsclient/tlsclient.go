// Package tlsclient builds the HTTP transport used to reach a CMIS server
// behind TLS: a private root CA, a client certificate, a pinned public key,
// or no validation at all for a throwaway test server.
package tlsclient

import (
	"bytes"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Options are the TLS settings of the connection to the server.
type Options struct {
	RootCAFile string
	CertFile   string
	KeyFile    string
	// Fingerprint is the hexadecimal SHA-256 of the public key of the server
	// certificate (or of one of its issuers).
	Fingerprint string
	Insecure    bool
}

// IsZero returns true if no TLS setting is given.
func (o Options) IsZero() bool {
	return o == Options{}
}

type tlsConfig struct {
	clientCertificates []tls.Certificate
	rootCAs            []*x509.Certificate
	pinnedKeys         [][]byte
	skipVerification   bool
}

// NewTransport returns an HTTP transport with the TLS options. The proxy is
// taken from the environment.
func NewTransport(opt Options) (*http.Transport, error) {
	c := &tlsConfig{}
	if opt.RootCAFile != "" {
		if err := c.LoadRootCAFile(opt.RootCAFile); err != nil {
			return nil, err
		}
	}
	if opt.CertFile != "" || opt.KeyFile != "" {
		if opt.CertFile == "" || opt.KeyFile == "" {
			return nil, errors.New("tlsclient: a client certificate needs both a cert and a key file")
		}
		if err := c.LoadClientCertificateFile(opt.CertFile, opt.KeyFile); err != nil {
			return nil, err
		}
	}
	if opt.Fingerprint != "" {
		if err := c.AddHexPinnedKey(opt.Fingerprint); err != nil {
			return nil, err
		}
	}
	if opt.Insecure {
		c.skipVerification = true
	}
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: c.Config(),
	}, nil
}

// LoadClientCertificateFile adds a client certificate from a PEM key pair.
func (s *tlsConfig) LoadClientCertificateFile(certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("tlsclient: could not load client certificate file: %s", err)
	}
	s.clientCertificates = append(s.clientCertificates, cert)
	return nil
}

// LoadRootCAFile adds the certificates of a PEM file to the trusted roots.
func (s *tlsConfig) LoadRootCAFile(rootCAFile string) error {
	pemCerts, err := os.ReadFile(rootCAFile)
	if err != nil {
		return fmt.Errorf("tlsclient: could not load root CA file %q: %s", rootCAFile, err)
	}
	ok := false
	for len(pemCerts) > 0 {
		var block *pem.Block
		block, pemCerts = pem.Decode(pemCerts)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" || len(block.Headers) != 0 {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		s.rootCAs = append(s.rootCAs, cert)
		ok = true
	}
	if !ok {
		return fmt.Errorf("tlsclient: no certificate found in root CA file %q", rootCAFile)
	}
	return nil
}

// AddHexPinnedKey pins the SHA-256 fingerprint of a public key. Colons, as
// printed by openssl, are accepted.
func (s *tlsConfig) AddHexPinnedKey(hexPinnedKey string) error {
	pinnedKey, err := hex.DecodeString(strings.ReplaceAll(hexPinnedKey, ":", ""))
	if err != nil {
		return fmt.Errorf("tlsclient: invalid hexadecimal fingerprint: %s", err)
	}
	if len(pinnedKey) != sha256.Size {
		return fmt.Errorf("tlsclient: invalid fingerprint size for %s, expected %d got %d",
			hexPinnedKey, sha256.Size, len(pinnedKey))
	}
	s.pinnedKeys = append(s.pinnedKeys, pinnedKey)
	return nil
}

func (s *tlsConfig) Config() *tls.Config {
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.skipVerification, // #nosec
	}
	if len(s.rootCAs) > 0 {
		rootCAs := x509.NewCertPool()
		for _, cert := range s.rootCAs {
			rootCAs.AddCert(cert)
		}
		conf.RootCAs = rootCAs
	}
	if len(s.clientCertificates) > 0 {
		conf.Certificates = make([]tls.Certificate, len(s.clientCertificates))
		copy(conf.Certificates, s.clientCertificates)
	}
	if len(s.pinnedKeys) > 0 {
		conf.VerifyPeerCertificate = verifyCertificatePinnedKey(s.pinnedKeys)
	}
	return conf
}

// Fingerprint returns the hexadecimal SHA-256 of the public key of a
// certificate, in the format accepted by Options.Fingerprint.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(sum[:])
}

func verifyCertificatePinnedKey(pinnedKeys [][]byte) func(certs [][]byte, verifiedChains [][]*x509.Certificate) error {
	matches := func(cert *x509.Certificate) bool {
		fingerPrint := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
		for _, pinnedKey := range pinnedKeys {
			if bytes.Equal(pinnedKey, fingerPrint[:]) {
				return true
			}
		}
		return false
	}
	return func(certs [][]byte, verifiedChains [][]*x509.Certificate) error {
		// Leaf pinning first
		for _, asn1 := range certs {
			cert, err := x509.ParseCertificate(asn1)
			if err != nil {
				return err
			}
			if matches(cert) {
				return nil
			}
		}
		for _, chain := range verifiedChains {
			if len(chain) > 0 && matches(chain[0]) {
				return nil
			}
		}
		return errors.New("tlsclient: could not find the valid pinned key from proposed ones")
	}
}
