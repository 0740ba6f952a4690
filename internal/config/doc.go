// Package config loads the korima server configuration.
//
// Values are resolved by viper in this order: command-line flags, KORIMA_*
// environment variables (dashes become underscores, e.g.
// KORIMA_FRONTEND_URL), an optional YAML file passed with --config, then the
// defaults below. The Google client credentials also honor the bare
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET variables.
package config
