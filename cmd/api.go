package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tempoapp/tempo/internal/dispatch"
	"github.com/tempoapp/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// prettyFlag is shared by every command that prints API data.
func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "pretty",
		Aliases: []string{"p"},
		Usage:   "Pretty-print JSON output",
		Value:   true,
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "time-range",
			Usage: "Ranking window: short_term, medium_term or long_term",
			Value: "medium_term",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of items to return",
			Value: 20,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of items to skip",
			Value: 0,
		},
		prettyFlag(),
	}
}

func nowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "now",
		Usage: "Show what is currently playing",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep polling until interrupted",
			},
			prettyFlag(),
		},
		Action: r.NowPlaying,
	}
}

func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "Top tracks and artists by listening history",
		Commands: []*cli.Command{
			{
				Name:   "tracks",
				Usage:  "Most played tracks for a time range",
				Flags:  rangeFlags(),
				Action: r.TopTracks,
			},
			{
				Name:   "artists",
				Usage:  "Most played artists for a time range",
				Flags:  rangeFlags(),
				Action: r.TopArtists,
			},
		},
	}
}

func recentCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "Recently played tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of items to return",
				Value: 20,
			},
			prettyFlag(),
		},
		Action: r.RecentlyPlayed,
	}
}

func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "profile",
		Usage:  "Show the signed-in Spotify profile",
		Flags:  []cli.Flag{prettyFlag()},
		Action: r.Profile,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of playlists to skip",
				Value: 0,
			},
			prettyFlag(),
		},
		Action: r.Playlists,
	}
}

func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "devices",
		Usage:  "List available playback devices",
		Flags:  []cli.Flag{prettyFlag()},
		Action: r.Devices,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Derived listening statistics",
		Commands: []*cli.Command{
			{
				Name:  "genres",
				Usage: "Genre breakdown of your top artists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "time-range",
						Usage: "Ranking window: short_term, medium_term or long_term",
						Value: "medium_term",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of genres to return",
						Value: 10,
					},
					prettyFlag(),
				},
				Action: r.StatsGenres,
			},
			{
				Name:   "hours",
				Usage:  "Plays per hour of day from recent history",
				Flags:  []cli.Flag{prettyFlag()},
				Action: r.StatsHours,
			},
			{
				Name:  "gems",
				Usage: "Low-popularity tracks from your top plays",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "time-range",
						Usage: "Ranking window: short_term, medium_term or long_term",
						Value: "medium_term",
					},
					&cli.IntFlag{
						Name:  "max-popularity",
						Usage: "Popularity ceiling for a track to count as a gem",
					},
					prettyFlag(),
				},
				Action: r.StatsGems,
			},
		},
	}
}

func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls against the running server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the envelope's data as JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags:  []cli.Flag{prettyFlag()},
				Action: r.APIGet,
			},
		},
	}
}

// fetch runs a GET through the dispatcher and prints the data block. A 401
// has already triggered invalidation and a notice by the time it surfaces
// here, so the command just points at the remedy.
func (r *Runner) fetch(ctx context.Context, path string, pretty bool) error {
	data, err := r.dispatcher.FetchJSON(ctx, path)
	if err != nil {
		if errors.Is(err, dispatch.ErrSignedOut) {
			return r.writePlain("%s\n", r.palette.Err("Signed out. Run `tempo auth login`."))
		}
		return err
	}
	return r.writeRaw(data, pretty)
}

// rangeQuery builds the time_range/limit/offset query string from flags.
func rangeQuery(cmd *cli.Command) string {
	query := url.Values{}
	query.Set("time_range", cmd.String("time-range"))
	query.Set("limit", fmt.Sprint(cmd.Int("limit")))
	query.Set("offset", fmt.Sprint(cmd.Int("offset")))
	return query.Encode()
}

// NowPlaying shows the current playback state. With --watch it keeps
// polling at the configured interval until interrupted or signed out.
func (r *Runner) NowPlaying(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	if err := r.fetch(ctx, "/api/now-playing", pretty); err != nil {
		return err
	}
	if !cmd.Bool("watch") {
		return nil
	}

	interval := time.Duration(r.config.Session.PollSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signedOut := make(chan struct{})
	var once sync.Once

	poller := dispatch.NewPoller(interval, func(ctx context.Context) error {
		return r.fetch(ctx, "/api/now-playing", pretty)
	}, func(err error) {
		if err != nil {
			once.Do(func() { close(signedOut) })
		}
	})

	poller.Start()
	defer poller.Stop()

	select {
	case <-ctx.Done():
	case <-signedOut:
	}
	return nil
}

// TopTracks lists the most played tracks for a time range.
func (r *Runner) TopTracks(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/top-tracks?"+rangeQuery(cmd), cmd.Bool("pretty"))
}

// TopArtists lists the most played artists for a time range.
func (r *Runner) TopArtists(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/top-artists?"+rangeQuery(cmd), cmd.Bool("pretty"))
}

// RecentlyPlayed lists the play history.
func (r *Runner) RecentlyPlayed(ctx context.Context, cmd *cli.Command) error {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(cmd.Int("limit")))
	return r.fetch(ctx, "/api/recently-played?"+query.Encode(), cmd.Bool("pretty"))
}

// Profile shows the signed-in user.
func (r *Runner) Profile(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/profile", cmd.Bool("pretty"))
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	query := url.Values{}
	query.Set("limit", fmt.Sprint(cmd.Int("limit")))
	query.Set("offset", fmt.Sprint(cmd.Int("offset")))
	return r.fetch(ctx, "/api/playlists?"+query.Encode(), cmd.Bool("pretty"))
}

// Devices lists available playback devices.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/devices", cmd.Bool("pretty"))
}

// StatsGenres prints the genre breakdown.
func (r *Runner) StatsGenres(ctx context.Context, cmd *cli.Command) error {
	query := url.Values{}
	query.Set("time_range", cmd.String("time-range"))
	query.Set("limit", fmt.Sprint(cmd.Int("limit")))
	return r.fetch(ctx, "/api/stats/genres?"+query.Encode(), cmd.Bool("pretty"))
}

// StatsHours prints plays bucketed by hour of day.
func (r *Runner) StatsHours(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/stats/hours", cmd.Bool("pretty"))
}

// StatsGems prints the hidden gems list.
func (r *Runner) StatsGems(ctx context.Context, cmd *cli.Command) error {
	query := url.Values{}
	query.Set("time_range", cmd.String("time-range"))
	if ceiling := cmd.Int("max-popularity"); ceiling > 0 {
		query.Set("max_popularity", fmt.Sprint(ceiling))
	}
	return r.fetch(ctx, "/api/stats/gems?"+query.Encode(), cmd.Bool("pretty"))
}

// APIGet performs a direct GET against an arbitrary API path.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.fetch(ctx, path, cmd.Bool("pretty"))
}
