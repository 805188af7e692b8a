package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telos-vcs/telos"
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Create and inspect intent records",
}

var (
	intentStatement string
	intentImpacts   []string
	intentParents   []string
)

var intentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new intent",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		shutdown, err := setupTracing(ctx)
		if err != nil {
			return err
		}
		defer shutdown()

		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		parents := make([]telos.ContentID, 0, len(intentParents))
		for _, p := range intentParents {
			id, err := telos.ParseContentID(p)
			if err != nil {
				id, _, _, err = repo.ReadObject(ctx, p)
				if err != nil {
					return fmt.Errorf("resolve parent %q: %w", p, err)
				}
			}
			parents = append(parents, id)
		}

		id, err := repo.CreateIntent(ctx, telos.Intent{
			Author:    telos.Author{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
			Timestamp: time.Now().UTC(),
			Statement: intentStatement,
			Impacts:   intentImpacts,
			Parents:   parents,
		})
		if err != nil {
			return fmt.Errorf("create intent: %w", err)
		}
		recordSelfOperation(ctx, repo, "recorded intent via telos intent add", id)
		fmt.Println(id.String())
		return nil
	},
}

func init() {
	intentAddCmd.Flags().StringVar(&intentStatement, "statement", "", "what this intent declares (required)")
	intentAddCmd.Flags().StringSliceVar(&intentImpacts, "impact", nil, "impact tag, repeatable")
	intentAddCmd.Flags().StringSliceVar(&intentParents, "parent", nil, "parent intent id or prefix, repeatable")
	_ = intentAddCmd.MarkFlagRequired("statement")

	intentCmd.AddCommand(intentAddCmd)
}
