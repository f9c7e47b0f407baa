package cmd

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "eureka_relayer",
	Short: "Relays IBC Eureka packets between a cosmos chain and an EVM chain",
}

func Execute() error {
	return RootCmd.Execute()
}
