// Package smtpcheck verifies that an SMTP profile from an assessment can reach
// its relay and log in before the profile is handed to Gophish.
package smtpcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/pca/internal/models"
)

const defaultPort = "587"

var (
	// ErrConnect is returned when the relay cannot be reached or greeted.
	ErrConnect = errors.New("smtp connect failed")
	// ErrAuthFailed is returned when the relay rejects the credentials.
	ErrAuthFailed = errors.New("smtp authentication failed")
)

// Result describes what the relay advertised during the check
type Result struct {
	Addr          string
	StartTLS      bool
	TLSVersion    string
	AuthAdvertise string
	Authenticated bool
	Latency       time.Duration
}

// Checker runs SMTP profile checks
type Checker struct {
	logger   *slog.Logger
	timeout  time.Duration
	hostname string
}

// New creates a checker. timeout bounds every SMTP command.
func New(logger *slog.Logger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		logger:   logger.With("component", "smtpcheck"),
		timeout:  timeout,
		hostname: "localhost",
	}
}

// Addr returns host with the default submission port added when missing
func Addr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultPort)
}

// ProfileResult pairs an SMTP profile with its check result. Shared is set
// when the result was reused from an earlier profile with the same host and
// username.
type ProfileResult struct {
	Profile string
	Shared  bool
	*Result
}

// Check dials the profile's host, upgrades with STARTTLS when offered and
// authenticates with PLAIN when the profile carries both username and password.
func (c *Checker) Check(ctx context.Context, profile *models.SMTP) (*Result, error) {
	res := &Result{Addr: Addr(profile.Host)}
	start := time.Now()

	client, release, err := c.connect(ctx, res.Addr)
	if err != nil {
		return nil, err
	}
	defer func() {
		release()
		client.Close()
	}()
	if err := client.Hello(c.hostname); err != nil {
		return nil, fmt.Errorf("%w: EHLO: %v", ErrConnect, err)
	}
	if err := client.Noop(); err != nil {
		return nil, c.connectErr(ctx, res.Addr, "EHLO", err)
	}
	res.Latency = time.Since(start)

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.Quit(); err != nil {
			c.logger.Debug("QUIT before STARTTLS failed", "addr", res.Addr, "error", err)
		}
		release()
		client.Close()

		host, _, _ := net.SplitHostPort(res.Addr)
		cfg := &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: profile.IgnoreCert,
		}
		tlsClient, tlsRelease, err := c.connectStartTLS(ctx, res.Addr, cfg)
		if err != nil {
			return nil, err
		}
		client, release = tlsClient, tlsRelease
		res.StartTLS = true
		if state, ok := client.TLSConnectionState(); ok {
			res.TLSVersion = tlsVersion(state.Version)
		}
	}

	_, res.AuthAdvertise = client.Extension("AUTH")

	if profile.Username != "" && profile.Password != "" {
		auth := sasl.NewPlainClient("", profile.Username, profile.Password)
		if err := client.Auth(auth); err != nil {
			var smtpErr *smtp.SMTPError
			if errors.As(err, &smtpErr) && smtpErr.Code == 535 {
				return res, fmt.Errorf("%w: %s", ErrAuthFailed, smtpErr.Message)
			}
			if ctx.Err() != nil {
				return res, c.connectErr(ctx, res.Addr, "AUTH", err)
			}
			return res, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		res.Authenticated = true
	}

	if err := client.Quit(); err != nil {
		c.logger.Debug("QUIT failed", "addr", res.Addr, "error", err)
	}

	c.logger.Info("smtp profile checked",
		"name", profile.Name,
		"addr", res.Addr,
		"starttls", res.StartTLS,
		"authenticated", res.Authenticated,
	)
	return res, nil
}

// dial opens a TCP connection bounded by the checker timeout and ctx. The
// returned release func stops closing the connection when ctx ends.
func (c *Checker) dial(ctx context.Context, addr string) (net.Conn, func() bool, error) {
	d := &net.Dialer{Timeout: c.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, c.connectErr(ctx, addr, "dial", err)
	}
	release := context.AfterFunc(ctx, func() { conn.Close() })
	return conn, release, nil
}

func (c *Checker) connect(ctx context.Context, addr string) (*smtp.Client, func() bool, error) {
	conn, release, err := c.dial(ctx, addr)
	if err != nil {
		return nil, nil, err
	}
	client := smtp.NewClient(conn)
	client.CommandTimeout = c.timeout
	return client, release, nil
}

// connectStartTLS reconnects and upgrades the session. The greeting and
// handshake run before CommandTimeout can be set, so they are bounded by
// a timeout of their own.
func (c *Checker) connectStartTLS(ctx context.Context, addr string, cfg *tls.Config) (*smtp.Client, func() bool, error) {
	conn, release, err := c.dial(ctx, addr)
	if err != nil {
		return nil, nil, err
	}

	hsCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	stopHandshake := context.AfterFunc(hsCtx, func() { conn.Close() })

	client, err := smtp.NewClientStartTLS(conn, cfg)
	if err == nil {
		client.CommandTimeout = c.timeout
		// the TLS handshake runs with the first command after STARTTLS
		err = client.Noop()
	}
	if !stopHandshake() || err != nil {
		release()
		conn.Close()
		if err == nil {
			err = hsCtx.Err()
		}
		return nil, nil, c.connectErr(hsCtx, addr, "STARTTLS", err)
	}
	return client, release, nil
}

func (c *Checker) connectErr(ctx context.Context, addr, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %s: %w", ErrConnect, addr, step, ctxErr)
	}
	return fmt.Errorf("%w: %s: %s: %v", ErrConnect, addr, step, err)
}

// CheckAssessment checks every distinct SMTP host/username pair used by the
// assessment's campaigns. Results follow campaign order and stop at the
// first failure.
func (c *Checker) CheckAssessment(ctx context.Context, a *models.Assessment) ([]ProfileResult, error) {
	var results []ProfileResult
	seen := make(map[string]*Result)

	for _, campaign := range a.Campaigns {
		profile := campaign.SMTP
		if profile == nil {
			continue
		}
		key := profile.Host + "\x00" + profile.Username
		if prev, ok := seen[key]; ok {
			results = append(results, ProfileResult{Profile: profile.Name, Shared: true, Result: prev})
			continue
		}

		res, err := c.Check(ctx, profile)
		if err != nil {
			return results, fmt.Errorf("check %s: %w", profile.Name, err)
		}
		seen[key] = res
		results = append(results, ProfileResult{Profile: profile.Name, Result: res})
	}
	return results, nil
}

func tlsVersion(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "1.0"
	case tls.VersionTLS11:
		return "1.1"
	case tls.VersionTLS12:
		return "1.2"
	case tls.VersionTLS13:
		return "1.3"
	default:
		return fmt.Sprintf("0x%04x", v)
	}
}
