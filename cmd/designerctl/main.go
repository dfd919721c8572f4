package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tradewatt/designer/internal/cli"
	"github.com/tradewatt/designer/pkg/log"
)

func main() {
	logger := log.InitLog(log.ParseLevel("warn"))
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	command := NewDesignerCtlCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewDesignerCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "designerctl [flags] [options]",
		Short: "designerctl controls the circuit designer service.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdDesign())
	cmd.AddCommand(cli.NewCmdJob())

	return cmd
}
