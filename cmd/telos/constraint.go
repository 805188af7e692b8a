package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telos-vcs/telos"
)

var constraintCmd = &cobra.Command{
	Use:   "constraint",
	Short: "Create and query constraints",
}

var (
	constraintStatement string
	constraintSeverity  string
	constraintImpacts   []string
	constraintSource    string
)

var constraintAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new active constraint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		var sourceID telos.ContentID
		if constraintSource != "" {
			sourceID, _, _, err = repo.ReadObject(ctx, constraintSource)
			if err != nil {
				return fmt.Errorf("resolve --source %q: %w", constraintSource, err)
			}
		}

		id, err := repo.CreateConstraint(ctx, telos.Constraint{
			Author:       telos.Author{Name: cfg.AuthorName, Email: cfg.AuthorEmail},
			Timestamp:    time.Now().UTC(),
			Statement:    constraintStatement,
			Severity:     telos.ConstraintSeverity(constraintSeverity),
			Status:       telos.ConstraintActive,
			SourceIntent: sourceID,
			Impacts:      constraintImpacts,
		})
		if err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
		recordSelfOperation(ctx, repo, "recorded constraint via telos constraint add", id)
		fmt.Println(id.String())
		return nil
	},
}

var (
	constraintQueryImpact string
	constraintQueryStatus string
)

var constraintQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List constraints by impact tag and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repo, err := openRepository()
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		var impact *string
		if constraintQueryImpact != "" {
			impact = &constraintQueryImpact
		}
		results, err := telos.QueryConstraints(ctx, repo, impact, constraintQueryStatus)
		if err != nil {
			return fmt.Errorf("query constraints: %w", err)
		}
		for _, r := range results {
			fmt.Printf("%s  [%s/%s]  %s\n", r.ID.Short(), r.Constraint.Severity, r.Constraint.Status, r.Constraint.Statement)
		}
		return nil
	},
}

func init() {
	constraintAddCmd.Flags().StringVar(&constraintStatement, "statement", "", "constraint text (required)")
	constraintAddCmd.Flags().StringVar(&constraintSeverity, "severity", string(telos.SeverityShould), "must|should|prefer")
	constraintAddCmd.Flags().StringSliceVar(&constraintImpacts, "impact", nil, "impact tag, repeatable")
	constraintAddCmd.Flags().StringVar(&constraintSource, "source", "", "originating intent id or prefix")
	_ = constraintAddCmd.MarkFlagRequired("statement")

	constraintQueryCmd.Flags().StringVar(&constraintQueryImpact, "impact", "", "filter by impact tag")
	constraintQueryCmd.Flags().StringVar(&constraintQueryStatus, "status", string(telos.ConstraintActive), "active|superseded|deprecated")

	constraintCmd.AddCommand(constraintAddCmd)
	constraintCmd.AddCommand(constraintQueryCmd)
}
