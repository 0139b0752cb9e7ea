package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/todo-board/internal/client"
	"github.com/BuzzLyutic/todo-board/internal/model"
)

func watchCmd(c *cli) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every change to tasks or tags as it happens",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return c.client().Watch(ctx, collection, func(f client.Frame) error {
				if f.Type == "error" {
					fmt.Fprintf(out, "%s  %s: %s\n", time.Now().Format(time.TimeOnly), f.Collection, f.Error)
					return nil
				}
				if c.output() != "table" {
					return render(out, c.output(), f, nil)
				}
				fmt.Fprintf(out, "%s  %s: %s\n", time.Now().Format(time.TimeOnly), f.Collection, summary(f))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&collection, "collection", "c", "tasks", "tasks or tags")
	return cmd
}

func summary(f client.Frame) string {
	var items []json.RawMessage
	if err := json.Unmarshal(f.Data, &items); err != nil {
		return "unreadable snapshot"
	}
	if f.Collection != "tasks" {
		return fmt.Sprintf("%d items", len(items))
	}

	var tasks []model.Task
	if err := json.Unmarshal(f.Data, &tasks); err != nil {
		return fmt.Sprintf("%d items", len(items))
	}
	done := 0
	for _, t := range tasks {
		if t.Status == model.StatusDone {
			done++
		}
	}
	return fmt.Sprintf("%d tasks, %d done", len(tasks), done)
}
