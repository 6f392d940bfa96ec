package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/reflex/go/internal/leaderboard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cliApp := &cli.App{
		Name:  "leaderboard",
		Usage: "read and write the reflex leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "base URL of the reflex server",
				Value:   "http://localhost:8080",
				EnvVars: []string{"REFLEX_ADDR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
				Value: 5 * time.Second,
			},
		},
		Commands: []*cli.Command{
			newTopCommand(),
			newSubmitCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("leaderboard command failed")
	}
}

func newClient(c *cli.Context) *leaderboard.Client {
	httpClient := &http.Client{Timeout: c.Duration("timeout")}
	return leaderboard.NewClient(httpClient, c.String("addr"))
}

func newTopCommand() *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "print the best scores",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "number of entries",
				Value:   leaderboard.DefaultTopN,
			},
		},
		Action: func(c *cli.Context) error {
			entries, err := newClient(c).GetLeaderboard(c.Context, c.Int("limit"))
			if err != nil {
				return fmt.Errorf("failed to get leaderboard: %w", err)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tUSERNAME\tSCORE\tVARIANT\tROUNDS\tSUBMITTED")
			for i, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%s\n", i+1, e.Username, e.Score, e.Variant, e.Rounds, e.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newSubmitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "submit a score",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.IntFlag{Name: "score", Aliases: []string{"s"}, Required: true},
			&cli.StringFlag{Name: "variant", Value: "base"},
			&cli.IntFlag{Name: "rounds"},
		},
		Action: func(c *cli.Context) error {
			entry, err := newClient(c).SubmitScore(c.Context, leaderboard.SubmitScoreRequest{
				Username: c.String("username"),
				Score:    c.Int("score"),
				Variant:  c.String("variant"),
				Rounds:   c.Int("rounds"),
			})
			if err != nil {
				return fmt.Errorf("failed to submit score: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "submitted %s: %s %d\n", entry.ID, entry.Username, entry.Score)
			return nil
		},
	}
}
