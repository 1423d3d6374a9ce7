package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crew/internal/config"
	"github.com/ShayCichocki/crew/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List the skill registry",
	Long: `Show every skill available for matching. Tasks whose sub-tasks
score below the confirmation threshold against this registry pause for
operator approval before dispatch.`,
	RunE: runSkills,
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := skills.LoadRegistry(cfg.Paths.SkillsFile)
	if err != nil {
		return err
	}

	entries := registry.Entries()
	if len(entries) == 0 {
		fmt.Printf("no skills registered (looked in %s)\n", cfg.Paths.SkillsFile)
		fmt.Printf("add entries to the file or set paths.skills_file in %s\n", config.GetUserConfigPath())
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s %s/%s\n", bold(e.Label), cyan(e.Plugin), cyan(e.Skill))
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
	}
	return nil
}
