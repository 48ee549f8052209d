// package stats derives listening insights from upstream API payloads
package stats

import (
	"sort"
	"time"

	"github.com/tempoapp/tempo/internal/spotify"
)

// DefaultGemCeiling is the popularity score below which a track counts as a
// hidden gem. Spotify popularity runs 0-100.
const DefaultGemCeiling = 40

// GenreCount is one genre with the number of top artists tagged with it.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Genres aggregates genre tags across the given artists, most frequent first.
// Ties break alphabetically so the ordering is stable across requests.
func Genres(artists []spotify.Artist, limit int) []GenreCount {
	counts := map[string]int{}
	for _, artist := range artists {
		for _, genre := range artist.Genres {
			counts[genre]++
		}
	}

	ranked := make([]GenreCount, 0, len(counts))
	for genre, count := range counts {
		ranked = append(ranked, GenreCount{Genre: genre, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Genre < ranked[j].Genre
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// HourCount is the number of plays that started within one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Plays int `json:"plays"`
}

// ListeningHours buckets recently-played items by local hour of day. The
// result always holds all 24 buckets in order, empty hours included, so the
// consumer can render a histogram without filling gaps. Items whose played-at
// timestamp does not parse are skipped.
func ListeningHours(items []spotify.PlayHistoryItem) []HourCount {
	hours := make([]HourCount, 24)
	for i := range hours {
		hours[i].Hour = i
	}

	for _, item := range items {
		playedAt, err := time.Parse(time.RFC3339, item.PlayedAt)
		if err != nil {
			continue
		}
		hours[playedAt.Local().Hour()].Plays++
	}

	return hours
}

// HiddenGems filters the given tracks down to those below the popularity
// ceiling, least popular first. A ceiling of zero or below applies
// [DefaultGemCeiling].
func HiddenGems(tracks []spotify.Track, ceiling int) []spotify.Track {
	if ceiling <= 0 {
		ceiling = DefaultGemCeiling
	}

	gems := make([]spotify.Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Popularity < ceiling {
			gems = append(gems, track)
		}
	}

	sort.SliceStable(gems, func(i, j int) bool {
		return gems[i].Popularity < gems[j].Popularity
	})

	return gems
}
