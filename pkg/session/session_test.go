package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/api"
)

func signed(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(backends.NewMemory(8), nil)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)

	want := Session{Token: "tok", User: api.User{ID: 3, Email: "ada@example.com", Username: "ada"}}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSaveRequiresToken(t *testing.T) {
	s := NewStore(backends.NewMemory(8), nil)
	require.Error(t, s.Save(context.Background(), Session{}))
}

func TestLoadToleratesCorruptUser(t *testing.T) {
	ctx := context.Background()
	mem := backends.NewMemory(8)
	require.NoError(t, mem.Put(ctx, KeyToken, []byte("tok")))
	require.NoError(t, mem.Put(ctx, KeyUser, []byte("{not json")))

	got, err := NewStore(mem, nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok"}, got)
}

func TestLoadBackendClosed(t *testing.T) {
	mem := backends.NewMemory(8)
	require.NoError(t, mem.Close())

	_, err := NewStore(mem, nil).Load(context.Background())
	require.ErrorIs(t, err, backends.ErrClosed)
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		want    bool
		wantErr bool
	}{
		{name: "future exp", token: signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}), want: false},
		{name: "past exp", token: signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}), want: true},
		{name: "exp equals now", token: signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now)}), want: true},
		{name: "no exp", token: signed(t, jwt.RegisteredClaims{Subject: "7"}), want: false},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expired(tc.token, now)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
