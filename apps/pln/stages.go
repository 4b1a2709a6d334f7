package main

import (
	"fmt"

	"github.com/pkp/pln/context"
	"github.com/pkp/pln/stats"
	"github.com/pkp/pln/workers"
	"github.com/spf13/cobra"
)

// stageCommands returns one command per processing stage. Each runs
// the stage once over the deposits waiting for it, or over the
// deposits named on the command line.
func stageCommands() []*cobra.Command {
	definitions := workers.StageDefinitions()
	commands := make([]*cobra.Command, 0, len(definitions))
	for _, definition := range definitions {
		name := definition.Name
		cmd := &cobra.Command{
			Use:   fmt.Sprintf("%s [deposit uuid...]", name),
			Short: fmt.Sprintf("Run the %s stage on deposits in state %s", name, definition.ProcessingState),
			RunE: withContext(func(_context *context.Context, args []string) error {
				pipeline, err := workers.NewStagePipeline(_context, name)
				if err != nil {
					return err
				}
				runStats, err := pipeline.Run(retryFailed, args, dryRun)
				report(_context, runStats)
				return err
			}),
		}
		cmd.Flags().BoolVar(&retryFailed, "retry", false, "Also retry deposits that failed this stage")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do the work but save nothing")
		commands = append(commands, cmd)
	}
	return commands
}

func report(_context *context.Context, runStats *stats.PipelineStats) {
	if runStats == nil {
		return
	}
	fmt.Println(runStats.Summary())
	_context.MessageLog.Info(runStats.Summary())
}
