package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tempoapp/tempo/internal/dispatch"
	"github.com/urfave/cli/v3"
)

func embedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "embed",
		Usage: "Manage public embeddable widgets",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register a new widget and print its URL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Widget kind: now-playing or top-tracks",
						Value: "now-playing",
					},
					&cli.StringFlag{
						Name:  "theme",
						Usage: "Widget theme: light or dark",
						Value: "light",
					},
					prettyFlag(),
				},
				Action: r.EmbedCreate,
			},
			{
				Name:   "list",
				Usage:  "List your registered widgets",
				Flags:  []cli.Flag{prettyFlag()},
				Action: r.EmbedList,
			},
		},
	}
}

// EmbedCreate registers a widget through the API and prints the URL a page
// would embed.
func (r *Runner) EmbedCreate(ctx context.Context, cmd *cli.Command) error {
	body, err := json.Marshal(map[string]string{
		"kind":  cmd.String("kind"),
		"theme": cmd.String("theme"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	data, err := r.dispatcher.PostJSON(ctx, "/api/embeds", body)
	if err != nil {
		if errors.Is(err, dispatch.ErrSignedOut) {
			return r.writePlain("%s\n", r.palette.Err("Signed out. Run `tempo auth login`."))
		}
		return err
	}

	var embed struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Kind   string `json:"kind"`
	}
	if err := json.Unmarshal(data, &embed); err != nil {
		return fmt.Errorf("failed to decode embed: %w", err)
	}

	if err := r.writeRaw(data, cmd.Bool("pretty")); err != nil {
		return err
	}

	embedURL := fmt.Sprintf("%s/embed/%s?embed_id=%s&user_id=%s",
		r.config.Server.BaseURL, embed.Kind, embed.ID, embed.UserID)
	return r.writePlainln("%s", r.palette.OK("Embed this URL: "+embedURL))
}

// EmbedList prints the widgets registered to the signed-in user.
func (r *Runner) EmbedList(ctx context.Context, cmd *cli.Command) error {
	return r.fetch(ctx, "/api/embeds", cmd.Bool("pretty"))
}
