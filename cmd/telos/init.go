package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telos-vcs/telos"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a new .telos tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := telos.Init(path, nil); err != nil {
			return fmt.Errorf("init: %w", err)
		}
		fmt.Printf("initialized empty telos repository in %s/.telos\n", path)
		return nil
	},
}
