package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every project known to the local metadata store",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	env, err := buildEnvironment(cmd)
	if err != nil {
		return err
	}

	projects := env.store.FindAll()
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Metadata.ProjectID < projects[j].Metadata.ProjectID
	})

	if len(projects) == 0 {
		fmt.Println("No projects synced yet.")
		return nil
	}

	fmt.Printf("%-24s  %-10s  %s\n", "PROJECT", "SYNCED", "LOCATION")
	for _, p := range projects {
		synced := "no"
		location := p.Metadata.RelativeDir()
		if p.IsLocal() {
			synced = "yes"
			location = p.Local.BasePath
		}
		fmt.Printf("%-24s  %-10s  %s\n", p.Metadata.ProjectID, synced, location)
	}
	return nil
}
