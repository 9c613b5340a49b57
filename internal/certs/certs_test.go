package certs

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Certificate(t *testing.T) {
	tests := []struct {
		setup  func(t *testing.T, s *Store)
		name   string
		reused bool
	}{
		{
			name:  "generates when missing",
			setup: func(*testing.T, *Store) {},
		},
		{
			name: "reuses a valid certificate",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				_, err := s.Certificate()
				require.NoError(t, err)
			},
			reused: true,
		},
		{
			name: "replaces garbage files",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				require.NoError(t, os.MkdirAll(s.dir, 0o700))
				require.NoError(t, os.WriteFile(s.certFile, []byte("junk"), 0o600))
				require.NoError(t, os.WriteFile(s.keyFile, []byte("junk"), 0o600))
			},
		},
		{
			name: "renews an expiring certificate",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				s.now = func() time.Time { return time.Now().Add(-Validity) }
				_, err := s.Certificate()
				require.NoError(t, err)
				s.now = time.Now
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(filepath.Join(t.TempDir(), "certs"))
			tt.setup(t, s)

			var before []byte
			if tt.reused {
				before, _ = os.ReadFile(s.certFile)
			}

			cert, err := s.Certificate()
			require.NoError(t, err)
			require.Len(t, cert.Certificate, 1)

			leaf, err := x509.ParseCertificate(cert.Certificate[0])
			require.NoError(t, err)
			assert.Equal(t, []string{"RupeeFlow"}, leaf.Subject.Organization)
			require.NoError(t, leaf.VerifyHostname("localhost"))
			assert.True(t, leaf.NotAfter.After(time.Now().Add(300*24*time.Hour)))

			if tt.reused {
				after, err := os.ReadFile(s.certFile)
				require.NoError(t, err)
				assert.Equal(t, before, after)
			}

			info, err := os.Stat(s.keyFile)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})
	}
}

func TestStore_TLSConfig(t *testing.T) {
	cfg, err := NewStore(t.TempDir()).TLSConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.NotZero(t, cfg.MinVersion)
}
