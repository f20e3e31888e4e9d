package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/xferctl/internal/providers"
	"github.com/desertthunder/xferctl/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionRepository(t *testing.T) {
	t.Run("Token", func(t *testing.T) {
		t.Run("Missing", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))

			if _, err := repo.Token(); !errors.Is(err, shared.ErrMissingToken) {
				t.Errorf("expected ErrMissingToken, got %v", err)
			}
			if _, err := repo.AuthToken(); !errors.Is(err, shared.ErrAuth) {
				t.Errorf("expected an auth error, got %v", err)
			}
		})

		t.Run("Save And Load", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

			if err := repo.SaveToken(&oauth2.Token{AccessToken: "abc", Expiry: expiry}); err != nil {
				t.Fatalf("failed to save token: %v", err)
			}

			tok, err := repo.Token()
			if err != nil {
				t.Fatalf("failed to load token: %v", err)
			}
			if tok.AccessToken != "abc" {
				t.Errorf("expected abc, got %s", tok.AccessToken)
			}
			if tok.TokenType != "Bearer" {
				t.Errorf("expected Bearer, got %s", tok.TokenType)
			}
			if !tok.Expiry.Equal(expiry) {
				t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
			}

			got, err := repo.AuthToken()
			if err != nil || got != "abc" {
				t.Errorf("expected abc, got %q (%v)", got, err)
			}
		})

		t.Run("Replace", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))

			if err := repo.SaveToken(&oauth2.Token{AccessToken: "first"}); err != nil {
				t.Fatalf("failed to save token: %v", err)
			}
			if err := repo.SaveToken(&oauth2.Token{AccessToken: "second"}); err != nil {
				t.Fatalf("failed to replace token: %v", err)
			}

			got, err := repo.AuthToken()
			if err != nil || got != "second" {
				t.Errorf("expected second, got %q (%v)", got, err)
			}
		})

		t.Run("No Expiry Never Expires", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			if err := repo.SaveToken(&oauth2.Token{AccessToken: "forever"}); err != nil {
				t.Fatalf("failed to save token: %v", err)
			}

			tok, err := repo.Token()
			if err != nil {
				t.Fatalf("failed to load token: %v", err)
			}
			if !tok.Expiry.IsZero() {
				t.Errorf("expected zero expiry, got %v", tok.Expiry)
			}
		})

		t.Run("Expired", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			err := repo.SaveToken(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
			if err != nil {
				t.Fatalf("failed to save token: %v", err)
			}

			if _, err := repo.AuthToken(); !errors.Is(err, shared.ErrTokenExpired) {
				t.Errorf("expected ErrTokenExpired, got %v", err)
			}
		})

		t.Run("Empty Token Is Rejected", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			if err := repo.SaveToken(&oauth2.Token{}); !errors.Is(err, shared.ErrMissingToken) {
				t.Errorf("expected ErrMissingToken, got %v", err)
			}
			if err := repo.SaveToken(nil); !errors.Is(err, shared.ErrMissingToken) {
				t.Errorf("expected ErrMissingToken, got %v", err)
			}
		})
	})

	t.Run("Connections", func(t *testing.T) {
		t.Run("Connect And Disconnect", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))

			if repo.IsConnected(providers.Spotify) {
				t.Error("expected spotify disconnected initially")
			}
			if err := repo.Connect(providers.Spotify, "listener"); err != nil {
				t.Fatalf("failed to connect: %v", err)
			}
			if !repo.IsConnected(providers.Spotify) {
				t.Error("expected spotify connected")
			}
			if repo.IsConnected(providers.YouTube) {
				t.Error("expected youtube disconnected")
			}

			if err := repo.Disconnect(providers.Spotify); err != nil {
				t.Fatalf("failed to disconnect: %v", err)
			}
			if repo.IsConnected(providers.Spotify) {
				t.Error("expected spotify disconnected")
			}
			if err := repo.Disconnect(providers.Spotify); !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})

		t.Run("Reconnect Revives", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))

			if err := repo.Connect(providers.YouTube, "old"); err != nil {
				t.Fatalf("failed to connect: %v", err)
			}
			if err := repo.Disconnect(providers.YouTube); err != nil {
				t.Fatalf("failed to disconnect: %v", err)
			}
			if err := repo.Connect(providers.YouTube, "new"); err != nil {
				t.Fatalf("failed to reconnect: %v", err)
			}

			conns, err := repo.Connections()
			if err != nil {
				t.Fatalf("failed to list connections: %v", err)
			}
			if len(conns) != 1 || conns[0].Account != "new" {
				t.Errorf("expected revived connection, got %+v", conns)
			}
		})

		t.Run("List", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			for _, p := range []providers.Provider{providers.YouTube, providers.Spotify} {
				if err := repo.Connect(p, "me"); err != nil {
					t.Fatalf("failed to connect %s: %v", p, err)
				}
			}

			conns, err := repo.Connections()
			if err != nil {
				t.Fatalf("failed to list connections: %v", err)
			}
			if len(conns) != 2 {
				t.Fatalf("expected 2 connections, got %d", len(conns))
			}
			if conns[0].Provider != providers.Spotify || conns[1].Provider != providers.YouTube {
				t.Errorf("expected ordered by provider, got %+v", conns)
			}
			if conns[0].ConnectedAt.IsZero() {
				t.Error("expected connected_at to be set")
			}
		})

		t.Run("Unsupported Provider", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			if err := repo.Connect(providers.Normalize("tidal"), ""); !errors.Is(err, shared.ErrInvalidProvider) {
				t.Errorf("expected ErrInvalidProvider, got %v", err)
			}
		})
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		if err := repo.SaveToken(&oauth2.Token{AccessToken: "abc"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		if err := repo.Connect(providers.Spotify, ""); err != nil {
			t.Fatalf("failed to connect: %v", err)
		}

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := repo.Token(); !errors.Is(err, shared.ErrMissingToken) {
			t.Errorf("expected token removed, got %v", err)
		}
		if repo.IsConnected(providers.Spotify) {
			t.Error("expected connections cleared")
		}
	})
}
