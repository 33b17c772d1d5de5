// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true}
}

func pageFlag() cli.Flag {
	return &cli.IntFlag{Name: "page", Usage: "Result page", Value: 1}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles sign-in and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Google",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "credential",
						Usage: "Google ID token to exchange directly, skipping the browser flow",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: defaultLoginTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the local session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// seriesCommand handles catalog reads and follows
func seriesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "series",
		Aliases: []string{"s"},
		Usage:   "Browse the series catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List series",
				Flags:  []cli.Flag{pageFlag(), jsonFlag()},
				Action: r.SeriesList,
			},
			{
				Name:   "popular",
				Usage:  "List popular series",
				Flags:  []cli.Flag{pageFlag(), jsonFlag()},
				Action: r.SeriesPopular,
			},
			{
				Name:   "top-rated",
				Usage:  "List top rated series",
				Flags:  []cli.Flag{pageFlag(), jsonFlag()},
				Action: r.SeriesTopRated,
			},
			{
				Name:      "search",
				Usage:     "Search series by name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     []cli.Flag{pageFlag(), jsonFlag()},
				Action:    r.SeriesSearch,
			},
			{
				Name:      "show",
				Usage:     "Show a series with seasons and watch state",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "id"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.SeriesShow,
			},
			{
				Name:  "mine",
				Usage: "List followed series",
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Bypass the followed series cache",
					},
				},
				Action: r.SeriesMine,
			},
			{
				Name:      "follow",
				Usage:     "Follow a series",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "id"}},
				Action:    r.SeriesFollow,
			},
			{
				Name:      "unfollow",
				Usage:     "Unfollow a series",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "id"}},
				Action:    r.SeriesUnfollow,
			},
		},
	}
}

// watchCommand toggles watched flags
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"w"},
		Usage:   "Toggle watched state",
		Commands: []*cli.Command{
			{
				Name:      "series",
				Usage:     "Toggle a whole series",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "series-id"}},
				Action:    r.WatchSeries,
			},
			{
				Name:  "season",
				Usage: "Toggle a season",
				Arguments: []cli.Argument{
					&cli.Int64Arg{Name: "series-id"},
					&cli.Int64Arg{Name: "season-id"},
				},
				Action: r.WatchSeason,
			},
			{
				Name:  "episode",
				Usage: "Toggle an episode",
				Arguments: []cli.Argument{
					&cli.Int64Arg{Name: "series-id"},
					&cli.Int64Arg{Name: "episode-id"},
				},
				Action: r.WatchEpisode,
			},
		},
	}
}

// notificationsCommand handles the notification inbox
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"n", "inbox"},
		Usage:   "Read and manage notifications",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.BoolFlag{
						Name:  "unread",
						Usage: "Only show unread notifications",
					},
				},
				Action: r.NotificationsList,
			},
			{
				Name:      "read",
				Usage:     "Mark a notification as read",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "id"}},
				Action:    r.NotificationsRead,
			},
			{
				Name:      "delete",
				Usage:     "Delete a notification",
				Arguments: []cli.Argument{&cli.Int64Arg{Name: "id"}},
				Action:    r.NotificationsDelete,
			},
		},
	}
}

// pushCommand handles the device push subscription
func pushCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Manage push notifications for this device",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show support, permission and subscription state",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PushStatus,
			},
			{
				Name:   "subscribe",
				Usage:  "Subscribe this device",
				Action: r.PushSubscribe,
			},
			{
				Name:   "unsubscribe",
				Usage:  "Unsubscribe this device",
				Action: r.PushUnsubscribe,
			},
			{
				Name:  "test",
				Usage: "Display a test notification",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "body",
						Usage: "Notification body",
						Value: "Push notifications are working",
					},
				},
				Action: r.PushTest,
			},
			{
				Name:  "listen",
				Usage: "Display pushed notifications until interrupted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open clicked notification links in the browser",
					},
				},
				Action: r.PushListen,
			},
		},
	}
}

// exportCommand handles library exports
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export followed series with watch progress",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (json, csv, markdown, txt)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: tvx_export_{timestamp})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent writers",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Series detail requests per second (0 uses [api].rate_limit)",
			},
			&cli.BoolFlag{
				Name:  "posters",
				Usage: "Download posters for markdown exports",
				Value: true,
			},
		},
		Action: r.Export,
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "List past export runs",
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (pending, running, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
				},
				Action: r.ExportHistory,
			},
		},
	}
}

// apiCommand handles direct authenticated API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the series backend",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Authenticated GET, prints the response",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Authenticated POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Dump session, followed series, notifications and the popular catalog",
				Flags: []cli.Flag{
					prettyFlag(),
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save dump to api_dump.json",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the notification inbox.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive notification inbox",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/tvx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
