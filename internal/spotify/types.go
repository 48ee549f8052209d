// Spotify Web API response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

// Time ranges accepted by the top-item endpoints.
const (
	TimeRangeShort  = "short_term"
	TimeRangeMedium = "medium_term"
	TimeRangeLong   = "long_term"
)

// ValidTimeRange reports whether s is one of the accepted time ranges.
func ValidTimeRange(s string) bool {
	switch s {
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return true
	}
	return false
}

type followers struct {
	Total int `json:"total"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
	Images      []Image   `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Images     []Image  `json:"images"`
	URI        string   `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

// PagedTracks is a paginated list of tracks (top tracks).
type PagedTracks struct {
	Items    []Track `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// PagedArtists is a paginated list of artists (top artists).
type PagedArtists struct {
	Items    []Artist `json:"items"`
	Total    int      `json:"total"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
}

// PlayHistoryItem is a single entry in the recently-played list.
type PlayHistoryItem struct {
	Track    Track  `json:"track"`
	PlayedAt string `json:"played_at"` // RFC 3339 timestamp
}

// RecentlyPlayed is the cursor-paged recently-played response.
type RecentlyPlayed struct {
	Items []PlayHistoryItem `json:"items"`
	Next  *string           `json:"next"`
}

// CurrentlyPlaying describes the user's active playback, if any.
type CurrentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS int    `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// Device represents a playback device registered to the user.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

// Devices wraps the device list response.
type Devices struct {
	Devices []Device `json:"devices"`
}

// Owner identifies a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SimplePlaylist represents a simplified playlist object (used in lists).
type SimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	Images      []Image        `json:"images"`
	URI         string         `json:"uri"`
}

// PagedPlaylists is a paginated list of the user's playlists.
type PagedPlaylists struct {
	Items    []SimplePlaylist `json:"items"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
}
