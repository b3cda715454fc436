package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pmpcoach",
		Short:        "Timed PMP practice sessions from your own question bank",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), importsCmd(), exportCmd(), statsCmd(), clearProgressCmd(), explainCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `pmpcoach --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the flags every command shares.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "", "SQLite database path (default $XDG_DATA_HOME/pmpcoach/pmpcoach.db)")
	f.StringP("lang", "l", "en", "Language for messages (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// setupLogging installs the default slog logger on the command's stderr.
func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)
	slog.SetDefault(slog.New(newLogHandler(cmd.ErrOrStderr(), v.GetString("log-level"), v.GetString("log-format"))))
}

// newLogHandler builds a text or JSON handler. Unknown levels fall back to info.
func newLogHandler(w io.Writer, level, format string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PMPCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("pmpcoach")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pmpcoach")
	v.AddConfigPath("/etc/pmpcoach")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}
