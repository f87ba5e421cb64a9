// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"hugefs/internal/common"
	"hugefs/internal/hugefile"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

// settingsEnv names the environment variable holding the settings file path
const settingsEnv = "HUGEFILE_SETTINGS"

var (
	settingsPath string
	logLevel     = logLevelFlag{level: "none"}

	// options is loaded once per invocation in PersistentPreRunE
	options hugefile.Options
)

var rootCmd = &cobra.Command{
	Use:   "hugefile",
	Short: "Inspect and maintain huge files stored as bounded sub-files",
	Long: `Inspect and maintain logical huge files.

A huge file at PATH is the directory PATH holding a config file with the
logical end of file and the sub-files hugefile.000, hugefile.001, ...`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		configureLogging(logLevel.level, cmd.ErrOrStderr())

		path := settingsPath
		if path == "" {
			path = os.Getenv(settingsEnv)
		}
		opts := hugefile.Options{}
		if path != "" {
			loaded, err := hugefile.LoadOptions(path)
			if err != nil {
				return err
			}
			opts = loaded
		}
		opts.ApplyDefaults()
		options = opts
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("hugefile version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "YAML settings file (default $"+settingsEnv+")")
	rootCmd.PersistentFlags().Var(&logLevel, "logging", "Log level: none, warn, info, debug, trace")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openRegistry returns a registry on the host filesystem using the loaded settings
func openRegistry() (*hugefile.Registry, error) {
	return hugefile.NewOSRegistry("/", options)
}

// absPath resolves a command line path to the absolute huge file directory
func absPath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	return common.NormalizePath(abs), nil
}

// lockHugeFile takes the advisory tool lock next to dir. It only keeps
// hugefile invocations apart; the library itself does not lock.
func lockHugeFile(dir string) (*flock.Flock, error) {
	lock := flock.New(common.LockPath(dir))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s is locked by another hugefile command", dir)
	}
	return lock, nil
}
