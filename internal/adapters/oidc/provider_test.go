package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewProvider_RequiredFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  ProviderConfig
		want string
	}{
		{
			name: "missing client id",
			cfg:  ProviderConfig{ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d"},
			want: "client ID is required",
		},
		{
			name: "missing client secret",
			cfg:  ProviderConfig{ClientID: "c", RedirectURL: "r", DiscoveryURL: "d"},
			want: "client secret is required",
		},
		{
			name: "missing redirect URL",
			cfg:  ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "d"},
			want: "redirect URL is required",
		},
		{
			name: "missing discovery URL",
			cfg:  ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r"},
			want: "discovery URL is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProvider(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMapIDTokenClaims(t *testing.T) {
	fields := mapIDTokenClaims(idTokenClaims{
		Sub:   "sub-1",
		Name:  "Alice Example",
		Email: "alice@co.com",
	})

	assert.Equal(t, "sub-1", fields.subject)
	assert.Equal(t, "Alice Example", fields.name)
	assert.Equal(t, "alice@co.com", fields.email)
}

func TestFillFromUserInfoClaims_OnlyFillsMissing(t *testing.T) {
	fields := idFields{subject: "sub-1"}

	fillFromUserInfoClaims(&fields, UserInfo{
		Subject: "other-sub",
		Name:    "Alice Example",
		Email:   "alice@co.com",
	})

	assert.Equal(t, "sub-1", fields.subject)
	assert.Equal(t, "Alice Example", fields.name)
	assert.Equal(t, "alice@co.com", fields.email)
}

func TestGenerateRandomString(t *testing.T) {
	s, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	other, err := generateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	empty, err := generateRandomString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetIDTokenFromToken(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)

	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "raw-id-token"})
	raw, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "raw-id-token", raw)

	_, err = getIDTokenFromToken(&oauth2.Token{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id_token")
}
