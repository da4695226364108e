package httpservice

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	tlsKeyFile  = "key.pem"
	tlsCertFile = "cert.pem"
	tlsFolder   = "tls"

	tlsOrganization = "guest-relayer"
	tlsValidity     = 365 * 24 * time.Hour
)

// generateOperatorTLSKeyCert creates a self-signed certificate for the
// relayer in dir. An existing key is reused, an existing pair is kept.
func generateOperatorTLSKeyCert(dir string, extraIPs, extraDomains []string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	keyPath := filepath.Join(dir, tlsKeyFile)
	certPath := filepath.Join(dir, tlsCertFile)
	if pathExists(keyPath) && pathExists(certPath) {
		return nil
	}

	key, err := loadOrCreateTLSKey(keyPath)
	if err != nil {
		return err
	}
	template, err := certTemplate(extraIPs, extraDomains)
	if err != nil {
		return err
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %s", err)
	}
	keyDer, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}

	if err := writePEM(certPath, "CERTIFICATE", der, 0644); err != nil {
		return err
	}
	if err := writePEM(keyPath, "EC PRIVATE KEY", keyDer, 0600); err != nil {
		// nolint:all
		os.Remove(certPath)
		return err
	}
	return nil
}

func certTemplate(extraIPs, extraDomains []string) (*x509.Certificate, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %s", err)
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	dnsNames := []string{host}
	if host != "localhost" {
		dnsNames = append(dnsNames, "localhost")
	}
	dnsNames = append(dnsNames, extraDomains...)

	ips, err := certIPs(extraIPs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{tlsOrganization},
			CommonName:   host,
		},
		NotBefore: now.Add(-24 * time.Hour),
		NotAfter:  now.Add(tlsValidity),
		KeyUsage: x509.KeyUsageKeyEncipherment |
			x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}, nil
}

// certIPs returns loopback, the extra ips and the addresses of every local
// interface, without duplicates.
func certIPs(extraIPs []string) ([]net.IP, error) {
	ips := []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}
	add := func(ip net.IP) {
		if ip == nil {
			return
		}
		for _, known := range ips {
			if known.Equal(ip) {
				return
			}
		}
		ips = append(ips, ip)
	}

	for _, ip := range extraIPs {
		add(net.ParseIP(ip))
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if ip, _, err := net.ParseCIDR(a.String()); err == nil {
			add(ip)
		}
	}
	return ips, nil
}

func loadOrCreateTLSKey(keyPath string) (*ecdsa.PrivateKey, error) {
	if !pathExists(keyPath) {
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	buf, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(buf)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("tls: no EC private key found in %s", keyPath)
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	buf := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if buf == nil {
		return fmt.Errorf("failed to encode %s", blockType)
	}
	return os.WriteFile(path, buf, perm)
}
