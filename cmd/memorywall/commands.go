package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/config"
	"github.com/jlym/memorywall/internal/postgres"
	s "github.com/jlym/memorywall/internal/server"
)

const commandTimeout = 30 * time.Second

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

func printJSON(w io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output failed")
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the reference dataset into a fresh medium",
	Long: `Seed writes the reference users, posts, channels, events and skills
unless the medium has already been seeded. Running it again changes nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.seeded {
			fmt.Fprintln(cmd.OutOrStdout(), "seeded")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "already seeded")
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every collection and the session, then seed again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.platform.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "reset to seed data")
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:       "inspect <collection>",
	Short:     "Print a stored collection as JSON",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"users", "session", "posts", "channels", "events", "skills", "flagged", "seeded"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		raw, ok := a.platform.Inspect(ctx, args[0])
		if !ok {
			return errors.Errorf("nothing stored under %q", args[0])
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return errors.Wrapf(err, "decoding %q failed", args[0])
		}
		return printJSON(cmd.OutOrStdout(), v)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print approved post, student, alumni and event counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.platform.PlatformStats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <user-id>",
	Short: "Print event recommendations and skill suggestions for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		userID := args[0]
		if a.platform.GetUser(ctx, userID) == nil {
			return s.NotFoundError("user %s not found", userID)
		}
		events, err := a.platform.RecommendEvents(ctx, userID)
		if err != nil {
			return err
		}
		skills, err := a.platform.RecommendSkills(ctx, userID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), struct {
			Events []*s.EventRecommendation `json:"events"`
			Skills []*s.SkillSuggestion     `json:"skills"`
		}{events, skills})
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail <channel>",
	Short: "Print a channel's messages as they arrive",
	Long: `Tail prints the channel's messages and keeps printing new ones until
interrupted. New messages are picked up on channels.poll_interval, or sooner
with the file driver.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		channelID := args[0]
		out := cmd.OutOrStdout()
		printed := 0

		cancel := a.platform.SubscribeChannel(channelID, func(messages []*s.MessageView) {
			if printed > len(messages) {
				printed = 0
			}
			for _, m := range messages[printed:] {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.TimeFormatted, m.AuthorName, m.Text)
			}
			printed = len(messages)
		})
		defer cancel()

		<-ctx.Done()
		a.logger.Debug("stopped tailing", zap.String("channel", channelID))
		return nil
	},
}

func postgresOnly(cfg *config.Config) error {
	if cfg.Storage.Driver != config.DriverPostgres {
		return errors.Errorf("storage.driver is %q; this command needs postgres", cfg.Storage.Driver)
	}
	return nil
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the Postgres database and records table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if err := postgresOnly(cfg); err != nil {
			return err
		}
		return postgres.NewDBManager(pgOptions(cfg), logger).InitDB(ctx)
	},
}

var dropDBCmd = &cobra.Command{
	Use:   "drop-db",
	Short: "Drop the Postgres database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if err := postgresOnly(cfg); err != nil {
			return err
		}
		return postgres.NewDBManager(pgOptions(cfg), logger).DropDB(ctx)
	},
}
