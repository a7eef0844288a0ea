package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/escalopa/kid-reader-bot/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the progress summary of a learner",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var showCmd = &cobra.Command{
	Use:   "show [story-id]",
	Short: "Print the stored record of a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var clearCmd = &cobra.Command{
	Use:   "clear [story-id]",
	Short: "Delete stored progress",
	Long:  `Deletes the record of one story, or the whole collection of the learner with --all.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClear,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the progress storage is reachable",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// clearAll is a flag for the clear command.
var clearAll bool

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "Delete every record of the learner")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statusCmd)
}

func learnerLabel() string {
	if learnerID == "" {
		return "shared"
	}
	return learnerID
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	store := env.storage.Store(learnerID)
	all := store.LoadAll(ctx)
	catalog := env.stories.All()
	summary := stats.Summarize(catalog, all)

	cmd.Printf("Learner: %s (%s)\n\n", learnerLabel(), store.Key())
	cmd.Printf("  Stories:          %d\n", summary.TotalStories)
	cmd.Printf("  Started:          %d\n", summary.StartedStories)
	cmd.Printf("  Completed:        %d\n", summary.CompletedStories)
	cmd.Printf("  Pages read:       %d\n", summary.TotalPagesRead)
	cmd.Printf("  Average progress: %d%%\n", summary.AverageProgress)
	cmd.Printf("  Legacy completed: %d\n", stats.LegacyCompletedStories(all))
	if summary.LastReadStory != "" {
		cmd.Printf("  Last read:        %s at %s\n", summary.LastReadStory, summary.LastReadAt.Format("2006-01-02 15:04"))
	}

	cmd.Println()
	for _, story := range catalog {
		s := stats.ForStory(story, all)
		if all[story.ID] == nil {
			continue
		}
		cmd.Printf("  %-22s %3d%%  pages %d\n", story.ID, s.Percent, s.PagesRead)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	storyID := args[0]
	record := env.storage.Store(learnerID).Load(context.Background(), storyID)
	if record == nil {
		cmd.Printf("No progress stored for %s\n", storyID)
		return nil
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	cmd.Println(string(out))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store := env.storage.Store(learnerID)

	switch {
	case clearAll && len(args) > 0:
		return errors.New("give either a story id or --all, not both")
	case clearAll:
		store.ClearAll(ctx)
		cmd.Printf("Cleared all progress of learner %s\n", learnerLabel())
	case len(args) == 1:
		if _, err := env.stories.Get(args[0]); err != nil {
			return err
		}
		store.Clear(ctx, args[0])
		cmd.Printf("Cleared %s for learner %s\n", args[0], learnerLabel())
	default:
		return errors.New("a story id or --all is required")
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	store := env.storage.Store(learnerID)
	if !store.IsAvailable(context.Background()) {
		return fmt.Errorf("%s storage is not available", env.storage.Backend)
	}
	cmd.Printf("%s storage is available\n", env.storage.Backend)
	return nil
}
