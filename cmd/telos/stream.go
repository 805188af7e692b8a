package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telos-vcs/telos"
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "List, create, and switch streams",
}

var streamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		names, err := repo.Refs.ListStreams()
		if err != nil {
			return fmt.Errorf("list streams: %w", err)
		}
		head, err := repo.Refs.ReadHead()
		if err != nil {
			return fmt.Errorf("read HEAD: %w", err)
		}
		for _, name := range names {
			marker := "  "
			if name == head {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	},
}

var streamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new, empty stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		if err := repo.Refs.CreateStream(telos.StreamRef{Name: args[0], CreatedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		fmt.Printf("created stream %q\n", args[0])
		return nil
	},
}

var streamSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Move HEAD to an existing stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		if err := repo.Refs.SetHead(args[0]); err != nil {
			return fmt.Errorf("switch stream: %w", err)
		}
		fmt.Printf("switched to stream %q\n", args[0])
		return nil
	},
}

func init() {
	streamCmd.AddCommand(streamListCmd)
	streamCmd.AddCommand(streamCreateCmd)
	streamCmd.AddCommand(streamSwitchCmd)
}
