package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adbsink/adbsink/internal/utils"
	"github.com/adbsink/adbsink/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	defaultAppDir  = filepath.Join(home, ".adbsink")
	configFileName = "config"

	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:     "adbsink",
	Short:   "One-way directory sync between an Android device and this machine",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logLevel.Set(slog.LevelDebug)
		}
		return loadConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("serial", "s", "", "use the device with this serial")
	rootCmd.PersistentFlags().String("connect", "", "connect to a device over TCP (host[:port]) first")
	rootCmd.PersistentFlags().String("adb-bin", "", "path to the adb binary")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default "+filepath.Join(defaultAppDir, "config.yaml")+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func main() {
	logFile := filepath.Join(appDir(), "logs", "adbsink.log")
	if err := utils.EnsureParent(logFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	// terminal output is tinted and level-controlled; the log file always
	// captures debug
	logLevel.Set(slog.LevelInfo)
	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func appDir() string {
	if dir := os.Getenv("ADBSINK_HOME"); dir != "" {
		return dir
	}
	return defaultAppDir
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(appDir())
		viper.AddConfigPath(filepath.Join(home, ".config", "adbsink"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return fmt.Errorf("config read %q: %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("serial", cmd.Flags().Lookup("serial"))
	viper.BindPFlag("connect", cmd.Flags().Lookup("connect"))
	viper.BindPFlag("adb_bin", cmd.Flags().Lookup("adb-bin"))
	viper.SetDefault("compress", "")
	viper.SetDefault("history", true)

	viper.SetEnvPrefix("ADBSINK")
	viper.AutomaticEnv()

	return nil
}
