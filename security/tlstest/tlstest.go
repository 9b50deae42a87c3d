// Package tlstest issues throwaway certificates for TLS tests. Everything
// is written under t.TempDir().
//
//	ca := tlstest.NewAuthority(t)
//	broker := ca.Issue("broker", "localhost")
//	// ca.CAFile, broker.CertFile and broker.KeyFile are PEM files
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Authority is a CA that lives for the duration of one test.
type Authority struct {
	// CAFile holds the CA certificate in PEM form.
	CAFile string

	t      testing.TB
	dir    string
	cert   *x509.Certificate
	key    *ecdsa.PrivateKey
	serial int64
}

// Leaf is a certificate issued by an Authority.
type Leaf struct {
	CertFile string
	KeyFile  string
	// Pair is the loaded key pair, ready for tls.Config.Certificates.
	Pair tls.Certificate
}

// NewAuthority creates a CA valid for one day.
func NewAuthority(t testing.TB) *Authority {
	t.Helper()
	a := &Authority{t: t, dir: t.TempDir(), serial: 1}
	a.key = newKey(t)
	tmpl := a.template("scribegate test CA")
	tmpl.IsCA = true
	tmpl.BasicConstraintsValid = true
	tmpl.KeyUsage = x509.KeyUsageCertSign

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &a.key.PublicKey, a.key)
	if err != nil {
		t.Fatalf("tlstest: self-sign CA: %v", err)
	}
	if a.cert, err = x509.ParseCertificate(der); err != nil {
		t.Fatalf("tlstest: parse CA: %v", err)
	}
	a.CAFile = a.write("ca.pem", "CERTIFICATE", der)
	return a
}

// Issue signs a certificate named name for the loopback addresses plus
// hosts. It is valid for both server and client authentication.
func (a *Authority) Issue(name string, hosts ...string) Leaf {
	a.t.Helper()
	key := newKey(a.t)
	tmpl := a.template(name)
	tmpl.DNSNames = append([]string{"localhost"}, hosts...)
	tmpl.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}
	tmpl.KeyUsage = x509.KeyUsageDigitalSignature
	tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.cert, &key.PublicKey, a.key)
	if err != nil {
		a.t.Fatalf("tlstest: issue %s: %v", name, err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		a.t.Fatalf("tlstest: encode key for %s: %v", name, err)
	}

	leaf := Leaf{
		CertFile: a.write(name+".pem", "CERTIFICATE", der),
		KeyFile:  a.write(name+"-key.pem", "EC PRIVATE KEY", keyDER),
	}
	if leaf.Pair, err = tls.LoadX509KeyPair(leaf.CertFile, leaf.KeyFile); err != nil {
		a.t.Fatalf("tlstest: load %s: %v", name, err)
	}
	return leaf
}

// Pool returns a pool that trusts only this authority.
func (a *Authority) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(a.cert)
	return pool
}

func (a *Authority) template(name string) *x509.Certificate {
	a.serial++
	return &x509.Certificate{
		SerialNumber: big.NewInt(a.serial),
		Subject:      pkix.Name{CommonName: name, Organization: []string{"scribegate tests"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
}

func (a *Authority) write(name, blockType string, der []byte) string {
	path := filepath.Join(a.dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		a.t.Fatalf("tlstest: write %s: %v", name, err)
	}
	return path
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}
