package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configPath     string
	collectionsDir string
	dataDir        string
	endpointsDir   string
	mountPrefix    string
	logLevel       string
	logFormat      string
	jsonOutput     bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collmock",
	Short: "collmock turns Postman collections into a mock API",
	Long: `collmock reads Postman collection documents from a directory, writes one
dataset record per collection and one endpoint stub per route, and serves the
recorded responses under a mount prefix.

Configuration can be provided via flags, the COLLMOCK_CONFIG environment
variable, or a collmock.yaml file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "Config file (default: $COLLMOCK_CONFIG or ./collmock.yaml)")
	f.StringVar(&collectionsDir, "collections", "", "Directory holding Postman collections")
	f.StringVar(&dataDir, "data-dir", "", "Directory receiving dataset records")
	f.StringVar(&endpointsDir, "endpoints-dir", "", "Directory receiving endpoint stubs")
	f.StringVar(&mountPrefix, "mount", "", "Path prefix of the mock API (default /api)")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	f.BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}
