package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackmichael/connectify/internal/app"
	"github.com/blackmichael/connectify/internal/config"
	"github.com/blackmichael/connectify/internal/domain"
)

// streams are the CLI's standard handles, replaceable in tests.
type streams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newStreams() streams {
	return streams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

// cli is the state shared by every command after PersistentPreRunE.
type cli struct {
	streams

	apiURL    string
	sessionDB string
	logLevel  string
	output    string
	metrics   bool

	app *app.App
}

func execute(s streams) int {
	root, closeApp := newRootCmd(s)
	defer closeApp()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(s.errOut, "Error: %s\n", describe(err))
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. The returned func releases the client
// opened during PersistentPreRunE and must be called once Execute returns.
func newRootCmd(s streams) (*cobra.Command, func()) {
	c := &cli{streams: s}

	root := &cobra.Command{
		Use:           "connectify",
		Short:         "Connectify social network client",
		Long:          "Command-line client for the Connectify API: log in, manage friends and read or write posts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.errOut)

	// precedence: flag > env > profile > default
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "API base URL (env CONNECTIFY_API_URL)")
	root.PersistentFlags().StringVar(&c.sessionDB, "session-db", "", "Session database path, empty string disables persistence (env CONNECTIFY_SESSION_DB)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error (env CONNECTIFY_LOG_LEVEL)")
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().BoolVar(&c.metrics, "metrics", false, "Print API request metrics to stderr on exit")

	root.AddCommand(
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newProfileCmd(c),
		newFriendsCmd(c),
		newToggleFriendCmd(c),
		newFeedCmd(c),
		newPostCmd(c),
		newHomeCmd(c),
	)

	closeApp := func() {
		if c.app == nil {
			return
		}
		if c.metrics {
			if err := c.app.Metrics.WriteText(s.errOut); err != nil {
				fmt.Fprintf(s.errOut, "warning: %v\n", err)
			}
		}
		if err := c.app.Close(); err != nil {
			fmt.Fprintf(s.errOut, "warning: close session store: %v\n", err)
		}
	}
	return root, closeApp
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.output != "table" && c.output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", c.output)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = c.apiURL
	}
	if flags.Changed("session-db") {
		cfg.SessionDB = c.sessionDB
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(c.logLevel)
	}

	logger := slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	c.app = a

	if _, err := a.Restore(cmd.Context()); err != nil {
		logger.Warn("could not restore session", "error", err)
	}
	return nil
}

// describe renders err for the terminal.
func describe(err error) string {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		keys := make([]string, 0, len(valErr.Fields))
		for k := range valErr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = "  " + k + ": " + valErr.Fields[k]
		}
		return "invalid input\n" + strings.Join(lines, "\n")
	}
	return domain.UserMessage(err, err.Error())
}
