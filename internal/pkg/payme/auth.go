package payme

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

// Authenticator checks the Basic credentials Payme sends with every call and,
// when configured, the source address of the request.
type Authenticator struct {
	login   string
	keys    []string
	allowed []netip.Prefix
}

// NewAuthenticator builds an Authenticator from the merchant settings. Keys
// may be plaintext or bcrypt hashes; PreviousKey stays valid during rotation.
func NewAuthenticator(cfg config.Payme) (*Authenticator, error) {
	keys := make([]string, 0, 2)
	for _, key := range []string{cfg.Key, cfg.PreviousKey} {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("payme: merchant key is required")
	}

	allowed := make([]netip.Prefix, 0, len(cfg.AllowedIPs))
	for _, raw := range cfg.AllowedIPs {
		prefix, err := parsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("payme: allowed ip %q: %w", raw, err)
		}
		allowed = append(allowed, prefix)
	}

	login := cfg.Login
	if login == "" {
		login = "Paycom"
	}
	return &Authenticator{login: login, keys: keys, allowed: allowed}, nil
}

// Verify fails closed on any missing or malformed credential.
func (a *Authenticator) Verify(authorization, remoteIP string) error {
	if !a.AllowsIP(remoteIP) {
		return fmt.Errorf("%w: source %s not allowed", ErrAuthFailure, remoteIP)
	}

	scheme, encoded, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return fmt.Errorf("%w: missing basic credentials", ErrAuthFailure)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("%w: bad encoding", ErrAuthFailure)
	}
	login, key, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return fmt.Errorf("%w: malformed credentials", ErrAuthFailure)
	}

	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(a.login)) == 1
	keyOK := a.matchKey(key)
	if !loginOK || !keyOK {
		return fmt.Errorf("%w: invalid credentials", ErrAuthFailure)
	}
	return nil
}

// AllowsIP reports whether ip may call the endpoint. An empty allow-list
// admits every address.
func (a *Authenticator) AllowsIP(ip string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range a.allowed {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (a *Authenticator) matchKey(candidate string) bool {
	matched := false
	for _, key := range a.keys {
		if isBcryptHash(key) {
			if bcrypt.CompareHashAndPassword([]byte(key), []byte(candidate)) == nil {
				matched = true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			matched = true
		}
	}
	return matched
}

func isBcryptHash(key string) bool {
	return strings.HasPrefix(key, "$2a$") || strings.HasPrefix(key, "$2b$") || strings.HasPrefix(key, "$2y$")
}

func parsePrefix(raw string) (netip.Prefix, error) {
	if strings.Contains(raw, "/") {
		return netip.ParsePrefix(raw)
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
