package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the adapter servers need. It is resolved once at
// startup and handed to constructors; no component reads process state after
// that.
type Config struct {
	BaserowURL     string
	APIToken       string
	DBPath         string
	RequestTimeout time.Duration
}

// LoadConfig resolves configuration from the environment, with an optional
// baserow-mcp.yaml in the working directory as a lower-priority source.
//
// A missing API token is not an error here: the Baserow client reports it on
// the first call that needs it, so the task tracker can run without one.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("baserow_url", "http://localhost:8010")
	v.SetDefault("db_path", "project.db")
	v.SetDefault("request_timeout", 30*time.Second)

	bindings := map[string]string{
		"baserow_url":     "BASEROW_URL",
		"api_token":       "BASEROW_API_TOKEN",
		"db_path":         "TRACKER_DB_PATH",
		"request_timeout": "BASEROW_TIMEOUT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	v.SetConfigName("baserow-mcp")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		BaserowURL:     v.GetString("baserow_url"),
		APIToken:       v.GetString("api_token"),
		DBPath:         v.GetString("db_path"),
		RequestTimeout: v.GetDuration("request_timeout"),
	}, nil
}
