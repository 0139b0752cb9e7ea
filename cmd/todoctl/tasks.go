package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/todo-board/internal/client"
	"github.com/BuzzLyutic/todo-board/internal/model"
)

func addCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Quick-add a task, e.g. todoctl add buy milk #home !p1 @tomorrow",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var def *model.Date
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return err
				}
				def = &d
			}

			task, err := c.client().QuickAdd(cmd.Context(), strings.Join(args, " "), def)
			if err != nil {
				return err
			}
			return printTask(cmd, c, task)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "date used when the text has no @date (YYYY-MM-DD)")
	return cmd
}

func listCmd(c *cli) *cobra.Command {
	var opts client.ListOptions
	var status, date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = model.Status(status)
			opts.Date = model.Date(date)
			tasks, err := c.client().ListTasks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), tasks, func(tw *tabwriter.Writer) {
				taskTable(tw, tasks)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "backlog, today, doing or done")
	cmd.Flags().StringVar(&date, "date", "", "scheduled date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&opts.TagID, "tag", 0, "tag id")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 100, "maximum results")
	return cmd
}

func todayCmd(c *cli) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the daily view",
		RunE: func(cmd *cobra.Command, args []string) error {
			var day *model.Date
			if date != "" {
				d := model.Date(date)
				day = &d
			}
			v, err := c.client().Today(cmd.Context(), day)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), v, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "%s\t%d remaining\n", v.Date, v.Remaining)
				for _, sec := range []struct {
					name  string
					tasks []model.Task
				}{{"TODO", v.Todo}, {"DOING", v.Doing}, {"DONE", v.Done}} {
					fmt.Fprintf(tw, "\n%s (%d)\n", sec.name, len(sec.tasks))
					for _, t := range sec.tasks {
						fmt.Fprintf(tw, "  %d\t%s\t%s\n", t.ID, orDash(t.Priority), t.Title)
					}
				}
			})
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to show (YYYY-MM-DD)")
	return cmd
}

func weekCmd(c *cli) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show Monday to Friday of a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.client().Week(cmd.Context(), offset)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), v, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, v.Label)
				for _, d := range v.Days {
					fmt.Fprintf(tw, "\n%s\n", d.Date)
					for _, t := range d.Tasks {
						fmt.Fprintf(tw, "  %d\t%s\t%s\n", t.ID, t.Status, t.Title)
					}
				}
				fmt.Fprintf(tw, "\nBACKLOG (%d)\n", len(v.Backlog))
				for _, t := range v.Backlog {
					fmt.Fprintf(tw, "  %d\t%s\n", t.ID, t.Title)
				}
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "weeks from the current one (negative for past)")
	return cmd
}

func boardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.client().Board(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), v, func(tw *tabwriter.Writer) {
				for _, col := range v.Columns {
					fmt.Fprintf(tw, "%s (%d)\n", strings.ToUpper(string(col.Status)), len(col.Tasks))
					for _, t := range col.Tasks {
						fmt.Fprintf(tw, "  %d\t%s\n", t.ID, t.Title)
					}
				}
			})
		},
	}
}

func doneCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between done and today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := c.client().Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printTask(cmd, c, task)
		},
	}
}

func postponeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:       "postpone <id> <tomorrow|nextweek|none>",
		Short:     "Push a task to tomorrow, next Monday or the backlog",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{model.PostponeTomorrow, model.PostponeNextWeek, model.PostponeNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := c.client().Postpone(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printTask(cmd, c, task)
		},
	}
}

func scheduleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <id> <YYYY-MM-DD|backlog>",
		Short: "Move a task to a day or to the backlog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var date *model.Date
			if args[1] != "backlog" {
				d, err := model.ParseDate(args[1])
				if err != nil {
					return err
				}
				date = &d
			}
			task, err := c.client().Schedule(cmd.Context(), id, date)
			if err != nil {
				return err
			}
			return printTask(cmd, c, task)
		},
	}
}

func moveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <backlog|today|doing|done>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := c.client().Move(cmd.Context(), id, model.Status(args[1]))
			if err != nil {
				return err
			}
			return printTask(cmd, c, task)
		},
	}
}

func reorderCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the order of tasks, first id first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if err := c.client().Reorder(cmd.Context(), ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reordered %d tasks\n", len(ids))
			return nil
		},
	}
}

func rmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.client().DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
			return nil
		},
	}
}

func statsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), s, func(tw *tabwriter.Writer) {
				for _, st := range model.Statuses {
					fmt.Fprintf(tw, "%s:\t%d\n", st, s.ByStatus[string(st)])
				}
				fmt.Fprintf(tw, "total:\t%d\n", s.TotalTasks)
				fmt.Fprintf(tw, "overdue:\t%d\n", s.Overdue)
				fmt.Fprintf(tw, "postponed:\t%d\n", s.Postponed)
				fmt.Fprintf(tw, "avg lead time:\t%.1f days\n", s.AvgLeadDays)
			})
		},
	}
}

func printTask(cmd *cobra.Command, c *cli, task model.Task) error {
	return render(cmd.OutOrStdout(), c.output(), task, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, taskLine(task))
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
