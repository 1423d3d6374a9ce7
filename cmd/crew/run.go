package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crew/internal/dispatch"
	"github.com/ShayCichocki/crew/pkg/models"
)

var runYes bool

// confirmIn is where confirmation answers are read from.
var confirmIn io.Reader = os.Stdin

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Submit a task and watch it to completion",
	Long: `Submit a free-text business task. The task is decomposed, matched
against the skill registry, costed, and executed by a lead plus up to four
specialists. Low-confidence skill matches pause for confirmation unless
--yes is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "auto-confirm low-confidence skill matches")
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	text := strings.Join(args, " ")
	id, pos, err := e.dispatcher.Submit(text)
	if err != nil {
		return err
	}

	fmt.Printf("%s task %s\n", bold("submitted"), cyan(id))
	if pos > 0 {
		fmt.Printf("queued at position %d\n", pos)
	}

	return followTask(e, id)
}

// followTask streams lifecycle events for one task until it settles.
func followTask(e *engine, id string) error {
	for event := range e.dispatcher.Events() {
		if event.TaskID != id {
			continue
		}
		switch event.Type {
		case dispatch.EventTaskStateChanged:
			fmt.Printf("  %s %s\n", yellow("state"), event.State)
			if event.State == string(models.TaskStateCancelled) {
				return nil
			}
		case dispatch.EventConfirmationNeeded:
			fmt.Printf("  %s %s\n", yellow("confirm"), event.Message)
			confirmed, err := handleConfirmation(e, id)
			if err != nil {
				return err
			}
			if !confirmed {
				return nil
			}
		case dispatch.EventCostEstimated:
			fmt.Printf("  %s $%.4f\n", cyan("estimated cost"), event.CostUSD)
		case dispatch.EventSpecialistStarted:
			fmt.Printf("  %s %s\n", green("started"), event.AgentName)
		case dispatch.EventSpecialistFinished:
			fmt.Printf("  %s %s %s\n", green("finished"), event.AgentName, event.Message)
		case dispatch.EventTaskStuck:
			fmt.Printf("  %s %s\n", red("stuck"), event.Message)
		case dispatch.EventTaskDone:
			return printFinal(e, id)
		}
	}
	return nil
}

// handleConfirmation asks the operator to approve a low-confidence match.
// It reports whether the task was confirmed; a decline cancels the task.
func handleConfirmation(e *engine, taskID string) (bool, error) {
	if runYes {
		return true, e.dispatcher.Confirm(taskID)
	}

	fmt.Print("Proceed with this match? [y/N] ")
	reader := bufio.NewReader(confirmIn)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))

	if answer == "y" || answer == "yes" {
		return true, e.dispatcher.Confirm(taskID)
	}
	fmt.Println(red("cancelled"))
	return false, e.dispatcher.Cancel(taskID)
}

// printFinal renders the terminal result.
func printFinal(e *engine, taskID string) error {
	report, err := e.dispatcher.Status(taskID)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n", bold("task"), stateLabel(report.State))
	if report.Final == nil {
		return nil
	}

	if report.Final.Reason != "" {
		fmt.Printf("%s %s\n", red("reason:"), report.Final.Reason)
	}
	for _, st := range report.Final.Subtasks {
		marker := green("✓")
		if st.Status != models.SubtaskCompleted {
			marker = red("✗")
		}
		fmt.Printf("  %s %s (%s)\n", marker, st.AgentName, st.Status)
	}
	if report.Final.SynthesizedResult != "" {
		fmt.Printf("\n%s\n%s\n", bold("result:"), report.Final.SynthesizedResult)
	}
	return nil
}
