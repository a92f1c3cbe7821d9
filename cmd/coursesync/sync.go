package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devkat/CodeExpertDesktop/pkg/model"
	"github.com/devkat/CodeExpertDesktop/pkg/syncengine"
)

var (
	forceFlag    string
	semesterFlag string
	courseFlag   string
	exerciseFlag string
	taskFlag     string
)

var syncCmd = &cobra.Command{
	Use:   "sync <project-id>",
	Short: "Run one sync for a project",
	Long: `Run one sync for a project. If the project has never been synced on
this machine, pass --semester/--course/--exercise/--task once so coursesync
knows where to place it; subsequent runs read that placement back from the
metadata store.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&forceFlag, "force", "", "resolve a conflict by discarding one side: push|pull")
	syncCmd.Flags().StringVar(&semesterFlag, "semester", "", "semester, for a project never synced before")
	syncCmd.Flags().StringVar(&courseFlag, "course", "", "course name, for a project never synced before")
	syncCmd.Flags().StringVar(&exerciseFlag, "exercise", "", "exercise name, for a project never synced before")
	syncCmd.Flags().StringVar(&taskFlag, "task", "", "task name, for a project never synced before")
}

func runSync(cmd *cobra.Command, args []string) error {
	id := model.ProjectID(args[0])

	var force model.Force
	switch forceFlag {
	case "":
	case "push":
		force = model.ForcePush
	case "pull":
		force = model.ForcePull
	default:
		return fmt.Errorf("--force must be 'push' or 'pull', got %q", forceFlag)
	}

	env, err := buildEnvironment(cmd)
	if err != nil {
		return err
	}

	project := env.store.Find(id)
	if project == nil {
		if semesterFlag == "" || courseFlag == "" || exerciseFlag == "" || taskFlag == "" {
			return fmt.Errorf("project %s is not yet known; pass --semester, --course, --exercise, and --task", id)
		}
		project = model.NewRemote(model.Metadata{
			ProjectID:    id,
			Semester:     semesterFlag,
			CourseName:   courseFlag,
			ExerciseName: exerciseFlag,
			TaskName:     taskFlag,
		})
	}

	result, err := env.engine.Sync(cmd.Context(), project, syncengine.Options{Force: force})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Synced %s: %d files in baseline\n", id, len(result.Baseline()))
	return nil
}
