package main

import (
	"fmt"
	"os"

	"github.com/rpggio/routine/internal/config"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globals holds flags shared by every subcommand.
type globals struct {
	dbPath   string
	timezone string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	rootCmd := &cobra.Command{
		Use:           "routinectl",
		Short:         "Maintenance commands for the routine tracker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", cfg.DB.Path, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&g.timezone, "timezone", cfg.Calendar.TimeZone, "IANA zone that defines today")

	rootCmd.AddCommand(migrateCmd(g))
	rootCmd.AddCommand(rollDayCmd(g))
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(keysCmd(g))

	return rootCmd
}

// openDB opens the configured database with migrations applied.
func (g *globals) openDB() (*sqlite.DB, error) {
	db, err := sqlite.New(g.dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
