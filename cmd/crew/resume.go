package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Restart work recovered from an interrupted session",
	Long: `Activate the task at the head of the queue, if any. A task that was
active when a previous process stopped is re-queued at the head rather than
silently resumed, so it restarts from the top of its pipeline here.`,
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	req, err := e.dispatcher.Resume()
	if err != nil {
		return err
	}
	if req == nil {
		fmt.Println("nothing to resume")
		return nil
	}

	fmt.Printf("%s task %s  %s\n", bold("resumed"), cyan(req.ID), req.Text)
	return followTask(e, req.ID)
}
