package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/zenotes/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zenotes",
		Short:         "Zenotes markdown notes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCommand(),
		newTokenCommand(),
		newListCommand(),
		newShowCommand(),
		newNewCommand(),
		newRemoveCommand(),
		newFavoriteCommand(),
		newTagCommand(),
		newUntagCommand(),
		newSearchCommand(),
		newTagsCommand(),
		newFavoritesCommand(),
		newMindMapCommand(),
		newExportCommand(),
		newImportCommand(),
		newSummarizeCommand(),
		newSettingsCommand(),
		newEditCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("data-dir", defaults.GetString("data.dir"), "Directory holding notes and settings")
	cmd.PersistentFlags().String("storage-backend", defaults.GetString("storage.backend"), "Storage backend (fs, sqlite)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path (defaults to <data-dir>/zenotes.db)")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (console, json)")
	cmd.PersistentFlags().String("signing-secret", "", "API token signing secret (overrides env)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "API token TTL in minutes")
	cmd.PersistentFlags().Int("autosave-delay-ms", defaults.GetInt("editor.autosave_delay_ms"), "Editor autosave debounce in milliseconds")
	cmd.PersistentFlags().String("gemini-model", defaults.GetString("gemini.model"), "Gemini model used for summaries")
	cmd.PersistentFlags().String("gemini-endpoint", defaults.GetString("gemini.endpoint"), "Gemini API base URL")

	bindFlag(cmd, "data.dir", "data-dir")
	bindFlag(cmd, "storage.backend", "storage-backend")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "editor.autosave_delay_ms", "autosave-delay-ms")
	bindFlag(cmd, "gemini.model", "gemini-model")
	bindFlag(cmd, "gemini.endpoint", "gemini-endpoint")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("zenotes")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}
