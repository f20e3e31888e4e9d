// Package providers maps free-form service identifiers onto the closed set of supported music providers
// and validates source/destination pairs before any network call is made.
package providers

import (
	"fmt"
	"strings"

	"github.com/desertthunder/xferctl/internal/shared"
)

// Provider is a canonical provider tag. The zero value is [Unsupported].
type Provider string

const (
	Unsupported Provider = ""
	Spotify     Provider = "spotify"
	YouTube     Provider = "youtube"
)

// PseudoPlaylistPrefix marks virtual collections (liked songs, followed artists, ...).
const PseudoPlaylistPrefix = "favorite-"

// All lists the supported providers in display order.
func All() []Provider {
	return []Provider{Spotify, YouTube}
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	return p == Spotify || p == YouTube
}

// Name returns the display name.
func (p Provider) Name() string {
	switch p {
	case Spotify:
		return "Spotify"
	case YouTube:
		return "YouTube Music"
	default:
		return "Unsupported"
	}
}

func (p Provider) String() string {
	return string(p)
}

// Normalize maps a service identifier to its provider by substring match.
//
// "youtube" and "youtube-music" both normalize to [YouTube].
func Normalize(serviceID string) Provider {
	id := strings.ToLower(strings.TrimSpace(serviceID))
	switch {
	case id == "":
		return Unsupported
	case strings.Contains(id, "spotify"):
		return Spotify
	case strings.Contains(id, "youtube"):
		return YouTube
	default:
		return Unsupported
	}
}

// ValidateCombination checks a source/destination pair.
func ValidateCombination(source, destination string) (Provider, Provider, error) {
	src, dst := Normalize(source), Normalize(destination)
	if !src.Valid() {
		return src, dst, fmt.Errorf("%w: source %q", shared.ErrInvalidProvider, source)
	}
	if !dst.Valid() {
		return src, dst, fmt.Errorf("%w: destination %q", shared.ErrInvalidProvider, destination)
	}
	if src == dst {
		return src, dst, fmt.Errorf("%w: %s", shared.ErrSameProvider, src.Name())
	}
	return src, dst, nil
}

// IsPseudoPlaylist reports whether id names a virtual collection that cannot be a transfer source.
func IsPseudoPlaylist(playlistID string) bool {
	return strings.HasPrefix(playlistID, PseudoPlaylistPrefix)
}
