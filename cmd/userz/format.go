package main

import (
	"fmt"
	"strings"

	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (c *cli) formatCmd() *cobra.Command {
	var showParts bool
	cmd := &cobra.Command{
		Use:   "format <full name...>",
		Short: "Split a full name and print it with the configured name format",
		Long: `Split a full name into first, middle and last name and suffix, then
print the display name using --name_order and --middle_name_mode.
No database connection is made.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&showParts, "parts", false, "Also print the parsed name fields")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		rt, err := c.load()
		if err != nil {
			return err
		}
		defer func() { _ = rt.log.Sync() }()

		parts := personname.Parse(strings.Join(args, " "))
		out := cmd.OutOrStdout()
		if showParts {
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"First", "Middle", "Last", "Suffix"})
			table.Append([]string{parts.First, parts.Middle, parts.Last, parts.Suffix})
			table.Render()
		}
		fmt.Fprintln(out, rt.cfg.Formatter().Format(parts))
		return nil
	}
	return cmd
}
