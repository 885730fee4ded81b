package smtpcheck

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/pca/internal/models"
)

type testBackend struct {
	users map[string]string
}

func (b *testBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

type testSession struct {
	backend *testBackend
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if pass, ok := s.backend.users[username]; !ok || pass != password {
			return smtp.ErrAuthFailed
		}
		return nil
	}), nil
}

func (s *testSession) Mail(from string, opts *smtp.MailOptions) error { return nil }
func (s *testSession) Rcpt(to string, opts *smtp.RcptOptions) error   { return nil }
func (s *testSession) Data(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
func (s *testSession) Reset()        {}
func (s *testSession) Logout() error { return nil }

func startServer(t *testing.T, tlsConfig *tls.Config) string {
	t.Helper()

	srv := smtp.NewServer(&testBackend{users: map[string]string{"phisher": "secret"}})
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.TLSConfig = tlsConfig

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })

	return l.Addr().String()
}

// selfSignedTLS returns a server config with a throwaway certificate for 127.0.0.1
func selfSignedTLS(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "relay.test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	}
}

// startSilentRelay accepts connections and never sends a greeting
func startSilentRelay(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				c.Close()
			}
		}()
		for {
			c, err := l.Accept()
			if err != nil {
				<-done
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		l.Close()
		close(done)
	})

	return l.Addr().String()
}

func newChecker() *Checker {
	return newCheckerTimeout(2 * time.Second)
}

func newCheckerTimeout(d time.Duration) *Checker {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), d)
}

func TestAddr(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"postfix:587", "postfix:587"},
		{"mail.example.com", "mail.example.com:587"},
		{"127.0.0.1:2525", "127.0.0.1:2525"},
	}

	for _, tt := range tests {
		if got := Addr(tt.host); got != tt.want {
			t.Errorf("Addr(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestCheck(t *testing.T) {
	addr := startServer(t, nil)

	tests := []struct {
		name     string
		username string
		password string
		wantAuth bool
		wantErr  error
	}{
		{"no credentials", "", "", false, nil},
		{"good credentials", "phisher", "secret", true, nil},
		{"bad password", "phisher", "wrong", false, ErrAuthFailed},
		{"username only", "phisher", "", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.NewSMTP("RV0001-SP-1")
			profile.Host = addr
			profile.Username = tt.username
			profile.Password = tt.password

			res, err := newChecker().Check(context.Background(), profile)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if res.Authenticated != tt.wantAuth {
				t.Errorf("Authenticated = %v, want %v", res.Authenticated, tt.wantAuth)
			}
			if res.StartTLS {
				t.Error("StartTLS = true on a plain server")
			}
			if res.Addr != addr {
				t.Errorf("Addr = %q, want %q", res.Addr, addr)
			}
		})
	}
}

func TestCheckUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	profile := models.NewSMTP("RV0001-SP-1")
	profile.Host = addr

	if _, err := newChecker().Check(context.Background(), profile); !errors.Is(err, ErrConnect) {
		t.Fatalf("Check() error = %v, want ErrConnect", err)
	}
}

func TestCheckAssessment(t *testing.T) {
	addr := startServer(t, nil)

	a := models.NewAssessment("RV0001", "")
	for i, user := range []string{"phisher", "phisher", ""} {
		profile := models.NewSMTP(models.SMTPName("RV0001", i+1))
		profile.Host = addr
		profile.Username = user
		if user != "" {
			profile.Password = "secret"
		}
		a.Campaigns = append(a.Campaigns, models.Campaign{
			Name: models.CampaignName("RV0001", i+1),
			SMTP: profile,
		})
	}

	results, err := newChecker().CheckAssessment(context.Background(), a)
	if err != nil {
		t.Fatalf("CheckAssessment() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, r := range results {
		if want := models.SMTPName("RV0001", i+1); r.Profile != want {
			t.Errorf("results[%d].Profile = %q, want %q", i, r.Profile, want)
		}
	}
	if results[0].Result != results[1].Result || !results[1].Shared || results[0].Shared {
		t.Error("profiles sharing host and username should share a result")
	}
	if !results[0].Authenticated {
		t.Error("RV0001-SP-1 not authenticated")
	}
	if results[2].Authenticated {
		t.Error("RV0001-SP-3 authenticated without credentials")
	}
}

func TestCheckAssessmentStopsOnFailure(t *testing.T) {
	addr := startServer(t, nil)

	a := models.NewAssessment("RV0001", "")
	profile := models.NewSMTP("RV0001-SP-1")
	profile.Host = addr
	profile.Username = "phisher"
	profile.Password = "nope"
	a.Campaigns = []models.Campaign{{Name: "RV0001-C1", SMTP: profile}}

	_, err := newChecker().CheckAssessment(context.Background(), a)
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("CheckAssessment() error = %v, want ErrAuthFailed", err)
	}
}

func TestCheckStartTLS(t *testing.T) {
	addr := startServer(t, selfSignedTLS(t))

	tests := []struct {
		name       string
		ignoreCert bool
		wantErr    error
	}{
		{"self-signed accepted", true, nil},
		{"self-signed verified", false, ErrConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := models.NewSMTP("RV0001-SP-1")
			profile.Host = addr
			profile.Username = "phisher"
			profile.Password = "secret"
			profile.IgnoreCert = tt.ignoreCert

			res, err := newChecker().Check(context.Background(), profile)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Check() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if !res.StartTLS || res.TLSVersion == "" {
				t.Errorf("StartTLS = %v, TLSVersion = %q", res.StartTLS, res.TLSVersion)
			}
			if !res.Authenticated {
				t.Error("not authenticated over STARTTLS")
			}
		})
	}
}

func TestCheckSilentRelayTimesOut(t *testing.T) {
	profile := models.NewSMTP("RV0001-SP-1")
	profile.Host = startSilentRelay(t)

	start := time.Now()
	_, err := newCheckerTimeout(200*time.Millisecond).Check(context.Background(), profile)
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Check() error = %v, want ErrConnect", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Check() took %v", elapsed)
	}
}

func TestCheckCancelled(t *testing.T) {
	profile := models.NewSMTP("RV0001-SP-1")
	profile.Host = startSilentRelay(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := newCheckerTimeout(time.Minute).Check(ctx, profile)
	if !errors.Is(err, ErrConnect) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Check() error = %v, want ErrConnect and context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Check() took %v after cancel", elapsed)
	}
}

func TestCheckDialTimeout(t *testing.T) {
	profile := models.NewSMTP("RV0001-SP-1")
	// non-routable, the dial either hangs until the timeout or fails at once
	profile.Host = "10.255.255.1:25"

	start := time.Now()
	_, err := newCheckerTimeout(300*time.Millisecond).Check(context.Background(), profile)
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Check() error = %v, want ErrConnect", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("dial took %v with a 300ms timeout", elapsed)
	}
}
