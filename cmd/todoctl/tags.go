package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func tagsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := c.client().Tags(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), c.output(), tags, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
				for _, t := range tags {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, t.Name, t.Color)
				}
			})
		},
	}

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := c.client().CreateTag(cmd.Context(), args[0], color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s\n", tag.ID, tag.Name, tag.Color)
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "#rrggbb (random when empty)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a tag and remove it from every task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.client().DeleteTag(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted tag #%d\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}
