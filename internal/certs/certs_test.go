package certs

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.Len(t, cert.Certificate, 1)
	c, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return c
}

func TestGetOrCreateCertificate(t *testing.T) {
	tests := []struct {
		setup func(t *testing.T, m *FileManager)
		name  string
		reuse bool
	}{
		{
			name:  "creates when missing",
			setup: func(*testing.T, *FileManager) {},
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, m *FileManager) {
				_, err := m.GetOrCreateCertificate()
				require.NoError(t, err)
			},
			reuse: true,
		},
		{
			name: "replaces unreadable files",
			setup: func(t *testing.T, m *FileManager) {
				require.NoError(t, os.MkdirAll(m.certDir, 0o700))
				require.NoError(t, os.WriteFile(m.certFile, []byte("junk"), 0o600))
				require.NoError(t, os.WriteFile(m.keyFile, []byte("junk"), 0o600))
			},
		},
		{
			name: "replaces a certificate close to expiry",
			setup: func(t *testing.T, m *FileManager) {
				m.now = func() time.Time { return time.Now().Add(-Validity + RenewBefore/2) }
				_, err := m.GetOrCreateCertificate()
				require.NoError(t, err)
				m.now = time.Now
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
			tt.setup(t, m)

			var before []byte
			if tt.reuse {
				var err error
				before, err = os.ReadFile(m.certFile)
				require.NoError(t, err)
			}

			cert, err := m.GetOrCreateCertificate()
			require.NoError(t, err)
			c := leaf(t, cert)
			assert.Equal(t, Organization, c.Subject.Organization[0])
			assert.NoError(t, c.VerifyHostname("localhost"))
			assert.True(t, c.NotAfter.After(time.Now().Add(RenewBefore)))

			if tt.reuse {
				after, err := os.ReadFile(m.certFile)
				require.NoError(t, err)
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestExtraHosts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	m := NewFileManager(dir, "rdc.lan", "10.0.0.5", "localhost", "")
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1", "rdc.lan", "10.0.0.5"}, m.hosts)

	cert, err := m.GetOrCreateCertificate()
	require.NoError(t, err)
	c := leaf(t, cert)
	assert.Contains(t, c.DNSNames, "rdc.lan")
	assert.True(t, slicesContainIP(c.IPAddresses, net.ParseIP("10.0.0.5")))

	// A manager with a host the stored certificate lacks regenerates it.
	wider := NewFileManager(dir, "files.lan")
	cert, err = wider.GetOrCreateCertificate()
	require.NoError(t, err)
	assert.Contains(t, leaf(t, cert).DNSNames, "files.lan")
}

func slicesContainIP(ips []net.IP, want net.IP) bool {
	for _, ip := range ips {
		if ip.Equal(want) {
			return true
		}
	}
	return false
}

func TestCertificateExists(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
	exists, err := m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = m.GetOrCreateCertificate()
	require.NoError(t, err)
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, os.Remove(m.keyFile))
	exists, err = m.CertificateExists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFilePermissions(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
	_, err := m.GetOrCreateCertificate()
	require.NoError(t, err)

	info, err := os.Stat(m.keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestTLSConfig_ServesHTTPS(t *testing.T) {
	m := NewFileManager(filepath.Join(t.TempDir(), "certs"))
	cfg, err := m.TLSConfig()
	require.NoError(t, err)

	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	ts.TLS = cfg
	ts.StartTLS()
	t.Cleanup(ts.Close)

	pemData, err := os.ReadFile(m.CertFile())
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(pemData))

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}}
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
