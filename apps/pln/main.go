// pln runs the staging server of the PKP Preservation Network: the
// SWORD server that journals deposit to, the processing stages that
// move deposits towards the archive, and the administrative tasks
// around them.
//
// Usage: pln --config=<path to config file> <command> [args]
package main

import (
	"fmt"
	"os"

	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/spf13/cobra"
)

var (
	pathToConfigFile string
	dryRun           bool
	retryFailed      bool

	rootCmd = &cobra.Command{
		Use:          "pln",
		Short:        "Staging server for the PKP Preservation Network",
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&pathToConfigFile, "config", "", "Path to the PLN config file")
	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.AddCommand(
		serveCmd,
		consumeCmd,
		queuesCmd,
		allocateCmd,
		auCmd,
		pingCmd,
		healthCmd,
		onixCmd,
		listCmd,
		termsCmd,
	)
	rootCmd.AddCommand(stageCommands()...)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadContext reads the config file and opens the store. Callers
// must Close the context.
func loadContext() (*context.Context, error) {
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		return nil, err
	}
	_context, err := context.NewContext(config)
	if err != nil {
		return nil, fmt.Errorf("Cannot start: %v", err)
	}
	return _context, nil
}

// withContext wraps a command body so it gets a context that is
// closed when the body returns.
func withContext(fn func(_context *context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_context, err := loadContext()
		if err != nil {
			return err
		}
		defer _context.Close()
		return fn(_context, args)
	}
}
