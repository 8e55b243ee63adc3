package main

import (
	"fmt"
	"strings"

	"github.com/rpggio/routine/internal/calendar"
	"github.com/rpggio/routine/internal/domain/habit"
	"github.com/rpggio/routine/internal/domain/recurrence"
	"github.com/rpggio/routine/internal/sqlite"
	"github.com/spf13/cobra"
)

func migrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", g.dbPath)
			return nil
		},
	}
}

func rollDayCmd(g *globals) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "roll-day",
		Short: "Reset habit progress for the new day",
		Long: `Reset daily habit progress for every habit last reset before today.

Running it twice on the same day changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cal, err := calendar.NewResolver(g.timezone, nil)
			if err != nil {
				return err
			}
			db, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := habit.NewService(sqlite.NewHabitRepository(db), sqlite.NewActivityRepository(db), cal, nil)
			res, err := svc.RollDay(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: reset %d habit(s)\n", res.Today, len(res.Reset))
			for _, id := range res.Reset {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "user whose habits roll over")
	return cmd
}

func nextCmd() *cobra.Command {
	var (
		from     string
		kind     string
		interval int
		count    int
	)
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Preview the next occurrences of a repeat rule",
		Long: `Preview the next occurrences of a repeat rule.

Examples:
  routinectl next --date 2024-01-31 --type monthly --count 3
  routinectl next --date 2024-03-01 --type weekly --interval 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			anchor, err := calendar.Parse(from)
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			rule, err := recurrence.NewRule(kind, &interval)
			if err != nil {
				return err
			}
			dates := recurrence.Occurrences(anchor, rule, count)
			if len(dates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no occurrences")
				return nil
			}
			out := make([]string, 0, len(dates))
			for _, d := range dates {
				out = append(out, d.String())
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, "\n"))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "date", "", "anchor date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&kind, "type", "t", "daily", "none, daily, weekly, monthly or yearly")
	cmd.Flags().IntVarP(&interval, "interval", "i", 1, "repeat every N periods")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of dates to show")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func keysCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	var (
		userID      int64
		token       string
		description string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be positive")
			}
			db, err := g.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.NewAPIKeyRepository(db).Add(cmd.Context(), token, userID, description); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added key for user %d\n", userID)
			return nil
		},
	}
	add.Flags().Int64Var(&userID, "user", 0, "user the token authenticates")
	add.Flags().StringVar(&token, "token", "", "bearer token")
	add.Flags().StringVar(&description, "description", "", "free-form note")
	_ = add.MarkFlagRequired("user")
	_ = add.MarkFlagRequired("token")

	cmd.AddCommand(add)
	return cmd
}
