package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Maintain the secondary indexes",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and repopulate all indexes from a full object database scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		impactCount, pathCount, symCount, err := repo.Index.RebuildAll(ctx, repo.ODB)
		if err != nil {
			return fmt.Errorf("rebuild indexes: %w", err)
		}
		fmt.Printf("rebuilt indexes: %d impact keys, %d path keys, %d symbol keys\n", impactCount, pathCount, symCount)
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
}
