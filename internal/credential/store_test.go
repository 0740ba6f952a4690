package credential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testCredential(refresh string) *Credential {
	return &Credential{
		Token:        "access-" + refresh,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(0),
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{"https://www.googleapis.com/auth/calendar.readonly"},
	}
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	store := NewMemoryStore(nil)

	cred, err := store.Load(context.Background(), DefaultAccount)
	assert.Nil(t, cred)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	want := testCredential("refresh-1")

	require.NoError(t, store.Save(ctx, DefaultAccount, want))

	got, err := store.Load(ctx, DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_SecondSaveReplacesFirst(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, DefaultAccount, testCredential("refresh-1")))
	require.NoError(t, store.Save(ctx, DefaultAccount, testCredential("refresh-2")))

	got, err := store.Load(ctx, DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", got.RefreshToken)
	assert.Equal(t, "access-refresh-2", got.Token)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	original := testCredential("refresh-1")
	require.NoError(t, store.Save(ctx, DefaultAccount, original))

	// Mutating the saved value or a loaded value must not leak into the store.
	original.Scopes[0] = "mutated"
	loaded, err := store.Load(ctx, DefaultAccount)
	require.NoError(t, err)
	loaded.RefreshToken = "mutated"

	again, err := store.Load(ctx, DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", again.RefreshToken)
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.readonly", again.Scopes[0])
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, DefaultAccount, testCredential("refresh-1")))

	require.NoError(t, store.Delete(ctx, DefaultAccount))
	_, err := store.Load(ctx, DefaultAccount)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, DefaultAccount))
}

func TestMemoryStore_SaveValidation(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", testCredential("x")))
	assert.Error(t, store.Save(ctx, DefaultAccount, nil))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, DefaultAccount, testCredential("refresh"))
		}()
		go func() {
			defer wg.Done()
			if cred, err := store.Load(ctx, DefaultAccount); err == nil {
				assert.Equal(t, "refresh", cred.RefreshToken)
			}
		}()
	}
	wg.Wait()
}

func TestCredential_OAuth2Token(t *testing.T) {
	cred := testCredential("refresh-1")
	cred.TokenType = ""

	token := cred.OAuth2Token()
	assert.Equal(t, cred.Token, token.AccessToken)
	assert.Equal(t, cred.RefreshToken, token.RefreshToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, cred.Expiry, token.Expiry)

	var nilCred *Credential
	assert.Nil(t, nilCred.OAuth2Token())
}

func TestCredential_OAuth2Config(t *testing.T) {
	cred := testCredential("refresh-1")

	conf := cred.OAuth2Config()
	assert.Equal(t, cred.ClientID, conf.ClientID)
	assert.Equal(t, cred.ClientSecret, conf.ClientSecret)
	assert.Equal(t, cred.TokenURI, conf.Endpoint.TokenURL)
	assert.Equal(t, cred.Scopes, conf.Scopes)
}

func TestCredential_WithToken(t *testing.T) {
	cred := testCredential("refresh-1")
	expiry := time.Now().Add(2 * time.Hour)

	t.Run("keeps refresh token when none is returned", func(t *testing.T) {
		updated := cred.WithToken(&oauth2.Token{AccessToken: "new-access", Expiry: expiry})
		assert.Equal(t, "new-access", updated.Token)
		assert.Equal(t, "refresh-1", updated.RefreshToken)
		assert.Equal(t, expiry, updated.Expiry)
		assert.Equal(t, "access-refresh-1", cred.Token, "original must not change")
	})

	t.Run("takes rotated refresh token", func(t *testing.T) {
		updated := cred.WithToken(&oauth2.Token{AccessToken: "new-access", RefreshToken: "refresh-2"})
		assert.Equal(t, "refresh-2", updated.RefreshToken)
	})
}
