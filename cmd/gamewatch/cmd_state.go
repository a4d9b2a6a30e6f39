package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gamewatch/internal/config"
	"gamewatch/internal/state"
	"gamewatch/internal/storage"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect announcement state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the announced URLs recorded in the state file",
	RunE:  runStateShow,
}

var historyFlags struct {
	limit int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent announcements from the history database",
	RunE:  runHistory,
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Number of announcements to list")
}

func runStateShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if cfg.Bot.Mode == config.ModeCursor {
		fmt.Fprintf(out, "Mode:    %s\n", cfg.Bot.Mode)
		fmt.Fprintf(out, "The cursor lives in memory only; nothing is persisted.\n")
		return nil
	}

	persister, err := state.NewFilePersister(cfg.State.Path)
	if err != nil {
		return err
	}
	urls, existed, err := persister.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	fmt.Fprintf(out, "Mode:    %s\n", cfg.Bot.Mode)
	fmt.Fprintf(out, "File:    %s\n", persister.Path())
	if !existed {
		fmt.Fprintf(out, "No state file yet. The first run will create it.\n")
		return nil
	}
	fmt.Fprintf(out, "Entries: %d\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  %s\n", u)
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if !cfg.Storage.Enabled {
		fmt.Fprintf(out, "History storage is disabled. Set [storage] enabled = true.\n")
		return nil
	}

	ctx := cmd.Context()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close(ctx)

	total, err := store.History().Count(ctx)
	if err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	entries, err := store.History().ListRecent(ctx, historyFlags.limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	fmt.Fprintf(out, "Announced: %d\n", total)
	for _, e := range entries {
		fmt.Fprintf(out, "  %s  %-12s  %s  %s\n", e.AnnouncedAt.Local().Format("2006-01-02 15:04"), e.Media, e.Title, e.URL)
	}
	return nil
}
