package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devkat/CodeExpertDesktop/pkg/model"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show the persisted sync state for one project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := buildEnvironment(cmd)
	if err != nil {
		return err
	}

	id := model.ProjectID(args[0])
	project := env.store.Find(id)
	if project == nil {
		fmt.Printf("%s: never synced\n", id)
		return nil
	}
	if !project.IsLocal() {
		fmt.Printf("%s: known, not yet synced locally\n", id)
		return nil
	}

	fmt.Printf("%s: %d files, last synced %s\n", id, len(project.Baseline()), project.Local.SyncedAt.Format("2006-01-02 15:04:05"))
	switch project.Local.SyncState.Kind {
	case model.SyncStateSyncing:
		fmt.Println("  state: syncing")
	case model.SyncStateFailed:
		fmt.Printf("  state: failed (%s)\n", project.Local.SyncState.FailedErr)
	default:
		fmt.Println("  state: synced")
	}
	return nil
}
