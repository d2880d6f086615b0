// Command emojiimport imports custom emoji from external providers into a
// Mastodon-style emoji registry.
//
// Every registered source is a subcommand:
//
//	emojiimport steamgame 440 --prefix tf2_ --square
//	emojiimport pack ./blobs/pack.yml --dry-run
//
// Deployment settings (database, credentials, storage) come from the
// environment or a .env file; run settings are flags.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emojiimport/internal/core"
	_ "github.com/JonMunkholm/emojiimport/internal/sources" // Register all sources
)

// Version information set at build time.
var version = "dev"

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n%s\n", err, core.FormatUserError(err))
		os.Exit(1)
	}
}

// runFlags holds the persistent flags shared by every source command.
type runFlags struct {
	prefix      string
	match       string
	lower       bool
	minWidth    int
	minHeight   int
	square      bool
	overwrite   bool
	visible     bool
	apng        bool
	dryRun      bool
	failOnError bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	defaults := core.DefaultRunOptions()
	fs := cmd.PersistentFlags()
	fs.StringVar(&f.prefix, "prefix", defaults.Prefix, "Prepend this to every shortcode")
	fs.StringVar(&f.match, "match", defaults.Match, "Only import labels matching this regular expression")
	fs.BoolVar(&f.lower, "lower", defaults.Lowercase, "Lowercase shortcodes")
	fs.IntVar(&f.minWidth, "min-width", defaults.MinWidth, "Pad images narrower than this onto a transparent canvas")
	fs.IntVar(&f.minHeight, "min-height", defaults.MinHeight, "Pad images shorter than this onto a transparent canvas")
	fs.BoolVar(&f.square, "square", defaults.ForceSquare, "Pad images to a square canvas")
	fs.BoolVar(&f.overwrite, "overwrite", defaults.Overwrite, "Replace emoji that already exist")
	fs.BoolVar(&f.visible, "visible", defaults.VisibleInPicker, "Show imported emoji in the picker")
	fs.BoolVar(&f.apng, "apng", defaults.AnimatedToAPNG, "Re-encode animated images as APNG")
	fs.BoolVar(&f.dryRun, "dry-run", defaults.DryRun, "Process everything but write nothing")
	fs.BoolVar(&f.failOnError, "fail-on-error", false, "Exit non-zero when any candidate failed")
}

// options converts the flags to run options.
func (f *runFlags) options() core.RunOptions {
	return core.RunOptions{
		Prefix:          f.prefix,
		Match:           f.match,
		Lowercase:       f.lower,
		MinWidth:        f.minWidth,
		MinHeight:       f.minHeight,
		ForceSquare:     f.square,
		Overwrite:       f.overwrite,
		VisibleInPicker: f.visible,
		AnimatedToAPNG:  f.apng,
		DryRun:          f.dryRun,
	}
}

func newRootCmd() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:   "emojiimport",
		Short: "Import custom emoji into a Mastodon emoji registry",
		Long: `emojiimport collects emoji from an external provider, normalizes their
shortcodes and images and stores them in the custom_emojis table.

Configure the database with DATABASE_URL. Provider credentials
(TWITCH_CLIENT_ID, TWITCH_ACCESS_TOKEN, SLACK_TOKEN, DISCORD_BOT_TOKEN)
are only needed by the sources that use them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(rootCmd)

	for _, group := range core.SourceGroups() {
		rootCmd.AddGroup(&cobra.Group{ID: group, Title: group + " sources:"})
		for _, def := range core.SourcesByGroup(group) {
			rootCmd.AddCommand(sourceCmd(def, flags))
		}
	}

	return rootCmd
}
