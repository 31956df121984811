// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/discover/internal/formatter"
	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: true},
	}
}

func limitFlag(value int) cli.Flag {
	return &cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of items to return", Value: value}
}

// outputFlags are shared by commands that write recall runs.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   fmt.Sprintf("Output format (%s)", strings.Join(formatter.Formats, ", ")),
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write files into this directory instead of stdout",
		},
		&cli.BoolFlag{Name: "cover", Usage: "Download the album cover with markdown output"},
	}
}

// recallFlags are shared by recall commands.
func recallFlags() []cli.Flag {
	return append(outputFlags(),
		&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Record the run in the history database"},
		&cli.Uint64Flag{Name: "seed", Usage: "Seed for shuffling and sampling (overrides recall.seed)"},
	)
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:   "profile",
				Usage:  "Show the current user's profile",
				Flags:  jsonFlags(),
				Action: r.SpotifyProfile,
			},
			{
				Name:   "playback",
				Usage:  "Show what is currently playing",
				Flags:  jsonFlags(),
				Action: r.SpotifyPlayback,
			},
			{
				Name:   "recent",
				Usage:  "List recently played tracks",
				Flags:  append(jsonFlags(), limitFlag(20)),
				Action: r.SpotifyRecent,
			},
			{
				Name:  "top",
				Usage: "List top tracks or artists",
				Flags: append(jsonFlags(), limitFlag(20),
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "tracks or artists", Value: "tracks"},
					&cli.StringFlag{Name: "range", Aliases: []string{"r"}, Usage: "short, medium or long", Value: "medium"},
				),
				Action: r.SpotifyTop,
			},
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: append(jsonFlags(), limitFlag(50),
					&cli.IntFlag{Name: "offset", Usage: "Index of the first playlist"},
				),
				Action: r.SpotifyPlaylists,
			},
			{
				Name:      "search",
				Usage:     "Search for tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append(jsonFlags(), limitFlag(10),
					&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Only match tracks by this artist"},
				),
				Action: r.SpotifySearch,
			},
			{
				Name:      "play",
				Usage:     "Play a URI, a track by name, or a playlist by name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "target"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist to scope a track name search"},
					&cli.BoolFlag{Name: "playlist", Aliases: []string{"p"}, Usage: "Treat the name as one of your playlists"},
				},
				Action: r.SpotifyPlay,
			},
			{Name: "pause", Usage: "Pause playback", Action: r.SpotifyPause},
			{Name: "resume", Usage: "Resume playback", Action: r.SpotifyResume},
			{Name: "next", Usage: "Skip to the next track", Action: r.SpotifyNext},
			{Name: "previous", Aliases: []string{"prev"}, Usage: "Skip to the previous track", Action: r.SpotifyPrevious},
			{
				Name:   "devices",
				Usage:  "List playback devices",
				Flags:  jsonFlags(),
				Action: r.SpotifyDevices,
			},
			{
				Name:      "transfer",
				Usage:     "Move playback to a device",
				Arguments: []cli.Argument{&cli.StringArg{Name: "device"}},
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "play", Usage: "Start playing on the new device"}},
				Action:    r.SpotifyTransfer,
			},
			{
				Name:      "volume",
				Usage:     "Set the volume (0-100)",
				Arguments: []cli.Argument{&cli.IntArg{Name: "percent"}},
				Action:    r.SpotifyVolume,
			},
			{
				Name:      "shuffle",
				Usage:     "Turn shuffle on or off",
				Arguments: []cli.Argument{&cli.StringArg{Name: "state"}},
				Action:    r.SpotifyShuffle,
			},
			{
				Name:      "repeat",
				Usage:     "Set repeat mode (off, track, context)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "mode"}},
				Action:    r.SpotifyRepeat,
			},
			{
				Name:  "queue",
				Usage: "Show or add to the playback queue",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add a track to the queue",
						Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
						Action:    r.SpotifyQueue,
					},
					{
						Name:   "list",
						Usage:  "List the currently playing track and what is queued after it",
						Flags:  jsonFlags(),
						Action: r.SpotifyQueueList,
					},
				},
			},
		},
	}
}

// catalogCommand handles direct secondary catalog lookups
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Direct lookups against the secondary catalog",
		Commands: []*cli.Command{
			{
				Name:      "artists",
				Usage:     "Resolve artist names to catalog IDs",
				ArgsUsage: "<name>...",
				Flags:     jsonFlags(),
				Action:    r.CatalogArtists,
			},
			{
				Name:      "albums",
				Usage:     "List up to two albums per catalog artist ID",
				ArgsUsage: "<artist-id>...",
				Flags:     jsonFlags(),
				Action:    r.CatalogAlbums,
			},
			{
				Name:      "tracks",
				Usage:     "Expand catalog album IDs into sampled tracks",
				ArgsUsage: "<album-id>...",
				Flags: append(jsonFlags(),
					&cli.Uint64Flag{Name: "seed", Usage: "Seed for sampling"},
				),
				Action: r.CatalogTracks,
			},
			{
				Name:      "get",
				Usage:     "Direct GET to the catalog, prints raw JSON",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "Query parameter as key=value"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.CatalogGet,
			},
		},
	}
}

// recallCommand runs the recall pipeline
func recallCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recall",
		Usage: "Recall artists and tracks from your listening history",
		Commands: []*cli.Command{
			{
				Name:   "artists",
				Usage:  "Aggregate artists from seven library sources",
				Flags:  recallFlags(),
				Action: r.RecallArtists,
			},
			{
				Name:   "tracks",
				Usage:  "Resolve catalog tracks for your first artists on Spotify",
				Flags:  recallFlags(),
				Action: r.RecallTracks,
			},
			{
				Name:  "fill",
				Usage: "Sample catalog tracks across all recalled artists",
				Flags: append(recallFlags(),
					&cli.IntFlag{Name: "tracks", Aliases: []string{"n"}, Usage: "Number of tracks to sample (default: recall.fill_tracks)"},
				),
				Action: r.RecallFill,
			},
		},
	}
}

// playlistCommand creates and fills playlists
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Create, fill and list Spotify playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist, optionally filled by random fill",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.BoolFlag{Name: "public", Usage: "Make the playlist public"},
					&cli.BoolFlag{Name: "random-fill", Usage: "Fill the playlist with recalled tracks"},
					&cli.IntFlag{Name: "tracks", Aliases: []string{"n"}, Usage: "Tracks to fill (default: recall.fill_tracks)"},
					&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Record the fill run in the history database"},
					&cli.Uint64Flag{Name: "seed", Usage: "Seed for sampling"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:  "add",
				Usage: "Search tracks by title and add them to a playlist by name",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Playlist name", Required: true},
					&cli.StringSliceFlag{Name: "track", Aliases: []string{"t"}, Usage: "Track title (repeatable)", Required: true},
					&cli.StringSliceFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist for the track at the same position (repeatable)"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:      "tracks",
				Usage:     "List the tracks of a playlist by name",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: append(jsonFlags(), limitFlag(50),
					&cli.IntFlag{Name: "offset", Usage: "Index of the first track"},
				),
				Action: r.PlaylistTracks,
			},
		},
	}
}

// historyCommand manages recorded runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse and export recorded recall runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded runs, newest first",
				Flags: append(jsonFlags(), limitFlag(20),
					&cli.StringFlag{Name: "kind", Usage: "Only runs of this kind (artists, tracks, fill)"},
				),
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Show a run by ID or #sequence",
				Arguments: []cli.Argument{&cli.StringArg{Name: "run"}},
				Flags:     outputFlags(),
				Action:    r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a run by ID or #sequence",
				Arguments: []cli.Argument{&cli.StringArg{Name: "run"}},
				Action:    r.HistoryDelete,
			},
			{
				Name:   "purge",
				Usage:  "Permanently remove deleted runs",
				Action: r.HistoryPurge,
			},
			{
				Name:      "export",
				Usage:     "Export runs to files (all runs when none are given)",
				ArgsUsage: "[run]...",
				Flags: append(outputFlags(),
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent exports", Value: 5},
				),
				Action: r.HistoryExport,
			},
		},
	}
}

// scheduleCommand runs random fill on a cron schedule
func scheduleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Create a random-fill playlist on a cron schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cron", Usage: `Cron spec, e.g. "0 9 * * MON" or "@weekly"`, Required: true},
			&cli.StringFlag{Name: "name", Usage: "Playlist name; the date is appended", Value: "Discover Fill"},
			&cli.IntFlag{Name: "tracks", Aliases: []string{"n"}, Usage: "Tracks per playlist (default: recall.fill_tracks)"},
			&cli.BoolFlag{Name: "public", Usage: "Make playlists public"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Record each run in the history database"},
		},
		Action: r.Schedule,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for recall",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tracks", Aliases: []string{"n"}, Usage: "Tracks for random fill (default: recall.fill_tracks)"},
			&cli.StringFlag{Name: "name", Usage: "Name for saved playlists", Value: "Discover Recall"},
			&cli.BoolFlag{Name: "public", Usage: "Make saved playlists public"},
			&cli.BoolFlag{Name: "save", Aliases: []string{"s"}, Usage: "Record runs in the history database"},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for shuffling and sampling"},
		},
		Action: r.TUI,
	}
}
