package payme

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/futapp/futapp-api/internal/pkg/config"
)

func basic(login, key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+key))
}

func TestAuthenticator_Verify(t *testing.T) {
	auth, err := NewAuthenticator(config.Payme{Login: "Paycom", Key: "current-key", PreviousKey: "old-key"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"current key", basic("Paycom", "current-key"), true},
		{"previous key", basic("Paycom", "old-key"), true},
		{"lowercase scheme", "basic " + base64.StdEncoding.EncodeToString([]byte("Paycom:current-key")), true},
		{"missing header", "", false},
		{"bearer scheme", "Bearer current-key", false},
		{"bad base64", "Basic ###", false},
		{"no separator", "Basic " + base64.StdEncoding.EncodeToString([]byte("Paycomcurrent-key")), false},
		{"wrong login", basic("Admin", "current-key"), false},
		{"wrong key", basic("Paycom", "current-kez"), false},
		{"empty key", basic("Paycom", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Verify(tt.header, "10.0.0.1")
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrAuthFailure)
		})
	}
}

func TestAuthenticator_BcryptKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	auth, err := NewAuthenticator(config.Payme{Key: string(hash)})
	require.NoError(t, err)

	assert.NoError(t, auth.Verify(basic("Paycom", "secret"), ""))
	assert.ErrorIs(t, auth.Verify(basic("Paycom", string(hash)), ""), ErrAuthFailure)
}

func TestAuthenticator_AllowedIPs(t *testing.T) {
	auth, err := NewAuthenticator(config.Payme{
		Key:        "k",
		AllowedIPs: []string{"185.234.113.1", "185.178.51.0/24"},
	})
	require.NoError(t, err)

	assert.True(t, auth.AllowsIP("185.234.113.1"))
	assert.True(t, auth.AllowsIP("185.178.51.77"))
	assert.True(t, auth.AllowsIP("::ffff:185.234.113.1"))
	assert.False(t, auth.AllowsIP("8.8.8.8"))
	assert.False(t, auth.AllowsIP("not-an-ip"))

	assert.ErrorIs(t, auth.Verify(basic("Paycom", "k"), "8.8.8.8"), ErrAuthFailure)
	assert.NoError(t, auth.Verify(basic("Paycom", "k"), "185.178.51.77"))
}

func TestNewAuthenticator_Errors(t *testing.T) {
	_, err := NewAuthenticator(config.Payme{})
	assert.Error(t, err)

	_, err = NewAuthenticator(config.Payme{Key: "k", AllowedIPs: []string{"300.1.1.1"}})
	assert.Error(t, err)
}
