package httpservice

import (
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/net/http2"
)

type Config struct {
	Datadir         string
	Port            uint32
	NoTLS           bool
	TLSExtraIPs     []string
	TLSExtraDomains []string
	AdminToken      string
}

func (c Config) Validate() error {
	lis, err := net.Listen("tcp", c.address())
	if err != nil {
		return fmt.Errorf("invalid port: %s", err)
	}
	// nolint:all
	defer lis.Close()

	if c.NoTLS {
		return nil
	}

	tlsDir := c.tlsDatadir()
	tlsKeyExists := pathExists(filepath.Join(tlsDir, tlsKeyFile))
	tlsCertExists := pathExists(filepath.Join(tlsDir, tlsCertFile))
	if !tlsKeyExists && tlsCertExists {
		return fmt.Errorf(
			"found %s file but %s is missing. Please delete %s to make the "+
				"relayer recreate both files in path %s",
			tlsCertFile, tlsKeyFile, tlsCertFile, tlsDir,
		)
	}
	for _, ip := range c.TLSExtraIPs {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("invalid operator extra ip %s", ip)
		}
	}
	return nil
}

func (c Config) insecure() bool {
	return c.NoTLS
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) tlsDatadir() string {
	return filepath.Join(c.Datadir, tlsFolder)
}

func (c Config) tlsConfig() (*tls.Config, error) {
	if c.NoTLS {
		return nil, nil
	}

	keyPath := filepath.Join(c.tlsDatadir(), tlsKeyFile)
	certPath := filepath.Join(c.tlsDatadir(), tlsCertFile)
	certificate, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{http2.NextProtoTLS, "http/1.1"},
		Certificates: []tls.Certificate{certificate},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		},
		Rand: rand.Reader,
	}, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
