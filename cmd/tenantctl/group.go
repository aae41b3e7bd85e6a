package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// groupCmd represents the group command
var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage user groups",
	Long:  `Manage organization user groups.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'group' requires a subcommand (create)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
}
