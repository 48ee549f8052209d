package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/tempoapp/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// Setup creates the config file if missing, opens the database and applies
// all pending migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if err := r.writePlain("%s\n", r.palette.OK("Created "+configPath+". Fill in your Spotify credentials.")); err != nil {
			return err
		}
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.config = config
	r.configPath = configPath

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	return r.writePlain("%s\n", r.palette.OK("Database ready at "+config.Database.Path))
}

// openDatabase opens the configured SQLite database with pool settings
// applied and the schema migrated.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
