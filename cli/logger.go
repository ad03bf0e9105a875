package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

// logger is shared by every command; components derive their own from it.
var logger *slog.Logger

func initLogger() error {
	level := viper.GetString(flagLogLevel)
	if verbose {
		level = "DEBUG"
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	options := slog.HandlerOptions{Level: logLevel}
	switch format := viper.GetString(flagLogFormat); format {
	case "json":
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &options))
	case "text":
		logger = slog.New(slog.NewTextHandler(os.Stderr, &options))
	default:
		return fmt.Errorf("unknown log format '%s'", format)
	}
	return nil
}
