package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crew/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show everything known about a task",
	Long: `Display a task's lifecycle state, decomposition, team, per-specialist
results, and final result. Slots not yet written are omitted, so a freshly
submitted task is queryable immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	report, err := e.dispatcher.Status(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", bold("task"), cyan(report.TaskID))
	fmt.Printf("%s %s\n", bold("state"), stateLabel(report.State))
	if report.QueuePosition >= 0 {
		fmt.Printf("%s %d\n", bold("queue position"), report.QueuePosition)
	}
	if report.Request != nil {
		fmt.Printf("%s %s\n", bold("request"), report.Request.Text)
	}

	if report.Decomposition != nil {
		fmt.Printf("\n%s (%s)\n", bold("decomposition"), report.Decomposition.EstimatedComplexity)
		for i, st := range report.Decomposition.Subtasks {
			fmt.Printf("  %d. [%s] %s\n", i+1, st.Domain, st.Description)
		}
	}

	if report.Team != nil {
		fmt.Printf("\n%s ($%.4f estimated)\n", bold("team"), report.Team.EstimatedCost.EstimatedCostUSD)
		for _, s := range report.Team.Specialists {
			fmt.Printf("  - %s (%s/%s)\n", s.Role, s.SkillPlugin, s.SkillName)
		}
	}

	if len(report.Results) > 0 {
		fmt.Printf("\n%s\n", bold("results"))
		for _, st := range report.Results {
			marker := green("✓")
			switch st.Status {
			case models.SubtaskFailed:
				marker = red("✗")
			case models.SubtaskRunning:
				marker = yellow("…")
			}
			fmt.Printf("  %s %s (%s)", marker, st.AgentName, st.Status)
			if st.Error != "" {
				fmt.Printf(" %s", red(st.Error))
			}
			fmt.Println()
		}
	}

	if report.Final != nil {
		fmt.Printf("\n%s %s\n", bold("final"), string(report.Final.Status))
		if report.Final.Reason != "" {
			fmt.Printf("%s %s\n", bold("reason"), report.Final.Reason)
		}
		if report.Final.SynthesizedResult != "" {
			fmt.Printf("\n%s\n", report.Final.SynthesizedResult)
		}
	}
	return nil
}
