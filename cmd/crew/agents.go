package main

import (
	"fmt"

	"github.com/ShayCichocki/crew/pkg/models"
	"github.com/spf13/cobra"
)

var agentLogLines int

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List running specialist agents and recent activity",
	RunE:  runAgents,
}

func init() {
	agentsCmd.Flags().IntVarP(&agentLogLines, "logs", "n", 10, "recent log lines to show")
}

func runAgents(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	agents := e.dispatcher.Agents()
	if len(agents) == 0 {
		fmt.Println("no agents running")
		return nil
	}

	for _, a := range agents {
		fmt.Printf("%s %s  task %s  %s\n", agentLabel(a.Status), bold(a.Name), cyan(a.TaskID), a.LastAction)
		if a.Error != "" {
			fmt.Printf("  %s %s\n", red("error:"), a.Error)
		}
	}

	logs := e.dispatcher.AgentLogs(agentLogLines)
	if len(logs) > 0 {
		fmt.Println()
		for _, entry := range logs {
			fmt.Printf("%s %s  %s\n", entry.Time.Format("15:04:05"), cyan(entry.AgentID), entry.Message)
		}
	}
	return nil
}

func agentLabel(status models.AgentStatus) string {
	switch status {
	case models.AgentActive:
		return green("active")
	case models.AgentError:
		return red("error ")
	default:
		return yellow("idle  ")
	}
}
