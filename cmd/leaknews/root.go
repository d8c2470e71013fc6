package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/leaknews"
)

var (
	cfgFile string
	siteCfg leaknews.SiteConfig
)

var rootCmd = &cobra.Command{
	Use:          "leaknews",
	Short:        "Server-rendered front end for a remote blog API",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./leaknews.yaml)")
	rootCmd.PersistentFlags().String("content-api", "", "content API endpoint")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	_ = viper.BindPFlag("content_api", rootCmd.PersistentFlags().Lookup("content-api"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// configKeys lists every key so LEAKNEWS_* environment variables are seen
// by Unmarshal even when no config file sets them.
var configKeys = map[string]any{
	"name":            "",
	"url":             "",
	"description":     "",
	"addr":            "",
	"content_api":     "",
	"user_agent":      "",
	"content_timeout": "0s",
	"max_attempts":    0,
	"no_more_marker":  "",
	"cache_ttl":       "0s",
	"cache_entries":   0,
	"redis.addr":      "",
	"redis.password":  "",
	"redis.db":        0,
	"archive_path":    "",
	"session_secret":  "",
	"cookie_secure":   false,
	"feed_ttl":        "0s",
	"max_feeds":       0,
	"more_limit":      0,
	"thumbnails":      false,
	"thumbnail_hosts": []string{},
	"log.level":       "info",
	"log.pretty":      false,
}

func initConfig() {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("leaknews")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/leaknews")
		v.AddConfigPath("/etc/leaknews")
	}

	v.SetEnvPrefix("leaknews")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, def := range configKeys {
		v.SetDefault(key, def)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&siteCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}
}
