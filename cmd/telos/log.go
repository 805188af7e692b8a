package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/telos-vcs/telos"
)

var logCmd = &cobra.Command{
	Use:   "log [start]",
	Short: "Walk an intent's ancestors, tip first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		start, err := resolveLogStart(ctx, repo, args)
		if err != nil {
			return err
		}

		walker := repo.WalkIntents(start)
		for {
			id, intent, ok, err := walker.Next(ctx)
			if err != nil {
				return fmt.Errorf("walk intents: %w", err)
			}
			if !ok {
				return nil
			}
			fmt.Printf("%s  %s\n", id.Short(), intent.Statement)
			fmt.Printf("    %s <%s>, %s\n", intent.Author.Name, intent.Author.Email, humanize.Time(intent.Timestamp))
		}
	},
}

func resolveLogStart(ctx context.Context, repo *telos.Repository, args []string) (telos.ContentID, error) {
	if len(args) == 1 {
		id, err := telos.ParseContentID(args[0])
		if err == nil {
			return id, nil
		}
		id, _, _, err = repo.ReadObject(ctx, args[0])
		if err != nil {
			return telos.ContentID{}, fmt.Errorf("resolve %q: %w", args[0], err)
		}
		return id, nil
	}
	current, err := repo.Refs.CurrentStream()
	if err != nil {
		return telos.ContentID{}, fmt.Errorf("read current stream: %w", err)
	}
	if current.Tip == nil {
		return telos.ContentID{}, fmt.Errorf("current stream %q has no intents yet", current.Name)
	}
	return *current.Tip, nil
}
