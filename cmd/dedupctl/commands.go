package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/syed-c/standzon-sub002/pkg/dedup"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

// GroupResult is the survivor and removed builders of one resolved group
type GroupResult struct {
	GroupID    string             `json:"group_id" yaml:"group_id"`
	Reason     models.MatchReason `json:"reason" yaml:"reason"`
	Confidence models.Confidence  `json:"confidence" yaml:"confidence"`
	SurvivorID string             `json:"survivor_id" yaml:"survivor_id"`
	RemovedIDs []string           `json:"removed_ids" yaml:"removed_ids"`
}

// AutoResolveOutput is printed by auto-resolve
type AutoResolveOutput struct {
	Resolved     []GroupResult           `json:"resolved" yaml:"resolved"`
	RemovedCount int                     `json:"removed_count" yaml:"removed_count"`
	Remaining    []models.DuplicateGroup `json:"remaining" yaml:"remaining"`
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "List duplicate groups",
		Example: `  dedupctl analyze -f builders.json
  dedupctl analyze -f builders.json -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builders, err := loadBuilders(cmd)
			if err != nil {
				return err
			}

			resolver, err := newResolver(cmd)
			if err != nil {
				return err
			}

			groups := resolver.Detect(builders)
			duplicates := 0
			for _, g := range groups {
				duplicates += len(g.Duplicates)
			}

			return writeOutput(cmd, models.AnalysisResult{
				Groups:         groups,
				AnalyzedCount:  len(builders),
				GroupCount:     len(groups),
				DuplicateCount: duplicates,
				AnalyzedAt:     time.Now().UTC(),
			})
		},
	}
}

func newAutoResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-resolve",
		Short: "Pick a survivor for every high confidence group",
		Long: `Pick a survivor for every high confidence group.

The survivor is the verified builder with the highest rating, then the most completed
projects. Medium and low confidence groups are listed as remaining.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builders, err := loadBuilders(cmd)
			if err != nil {
				return err
			}

			resolver, err := newResolver(cmd)
			if err != nil {
				return err
			}
			auto := resolver.AutoResolve(resolver.Detect(builders))

			out := AutoResolveOutput{
				Resolved:     make([]GroupResult, 0, len(auto.Resolved)),
				RemovedCount: len(auto.RemovedIDs),
				Remaining:    auto.Remaining,
			}
			for _, r := range auto.Resolved {
				out.Resolved = append(out.Resolved, groupResult(r))
			}
			return writeOutput(cmd, out)
		},
	}
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resolve",
		Short:   "Keep one builder of a duplicate group",
		Example: `  dedupctl resolve -f builders.json --group dup_3f2a9c01d4e5b6a7 --keep b1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, _ := cmd.Flags().GetString("group")
			keepID, _ := cmd.Flags().GetString("keep")

			builders, err := loadBuilders(cmd)
			if err != nil {
				return err
			}

			resolver, err := newResolver(cmd)
			if err != nil {
				return err
			}
			for _, group := range resolver.Detect(builders) {
				if group.ID != groupID {
					continue
				}

				removed, err := resolver.ResolveManually(group, keepID)
				if err != nil {
					return err
				}
				return writeOutput(cmd, GroupResult{
					GroupID:    group.ID,
					Reason:     group.Reason,
					Confidence: group.Confidence,
					SurvivorID: keepID,
					RemovedIDs: removed,
				})
			}

			return fmt.Errorf("duplicate group %s not found", groupID)
		},
	}

	cmd.Flags().String("group", "", "Duplicate group id from analyze")
	cmd.Flags().String("keep", "", "Id of the builder to keep")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}

func groupResult(r dedup.GroupResolution) GroupResult {
	return GroupResult{
		GroupID:    r.Group.ID,
		Reason:     r.Group.Reason,
		Confidence: r.Group.Confidence,
		SurvivorID: r.Survivor.ID,
		RemovedIDs: r.RemovedIDs,
	}
}
