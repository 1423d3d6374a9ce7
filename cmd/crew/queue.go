package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the task queue",
	RunE:  runQueue,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a queued or confirming task",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	queueCmd.AddCommand(cancelCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	snap := e.dispatcher.Queue()
	if snap.Active == nil && len(snap.Pending) == 0 {
		fmt.Println("queue is empty")
		return nil
	}

	if snap.Active != nil {
		fmt.Printf("%s %s  %s\n", green("active "), cyan(snap.Active.ID), snap.Active.Text)
	}
	for i, req := range snap.Pending {
		fmt.Printf("%s %s  %s\n", yellow(fmt.Sprintf("pending %d", i+1)), cyan(req.ID), req.Text)
	}
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.dispatcher.Cancel(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", red("cancelled"), cyan(args[0]))
	return nil
}
