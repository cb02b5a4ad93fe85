// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var errInvalidFPS = errors.New("fps must be between 1 and 120")

type config struct {
	Address  string `mapstructure:"address"`
	PortMin  uint16 `mapstructure:"port-min"`
	PortMax  uint16 `mapstructure:"port-max"`
	Video    string `mapstructure:"video"`
	FPS      int    `mapstructure:"fps"`
	LogLevel string `mapstructure:"log-level"`
}

// loadConfig merges, from lowest to highest priority, defaults, an optional
// rtclite.yaml, RTCLITE_* environment variables and command line flags.
func loadConfig(args []string) (*config, error) {
	flags := pflag.NewFlagSet("rtclite", pflag.ContinueOnError)
	flags.String("address", "", "IP advertised in the local ICE candidate")
	flags.Uint16("port-min", 10000, "lowest UDP port to bind")
	flags.Uint16("port-max", 65535, "highest UDP port to bind")
	flags.String("video", "", "Annex-B H.264 file to stream")
	flags.Int("fps", 30, "video frames per second")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("config", "", "config file, defaults to ./rtclite.yaml when present")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("rtclite")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rtclite")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.FPS < 1 || cfg.FPS > 120 {
		return nil, errInvalidFPS
	}

	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return zap.Config{
		Level:            atomicLevel,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
}
