package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/userz/internal/app/system/timeouts"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func (c *cli) contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage a user's contact list",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <username> <contact>",
		Short: "Add contact to username's contacts",
		Args:  cobra.ExactArgs(2),
		RunE: c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "add contact")
			defer cancel()

			u, err := rt.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = rt.accounts.AddContact(ctx, u.ID, args[1])
			return err
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <username> <contact>",
		Aliases: []string{"remove"},
		Short:   "Remove contact from username's contacts",
		Args:    cobra.ExactArgs(2),
		RunE: c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "remove contact")
			defer cancel()

			u, err := rt.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return rt.accounts.RemoveContact(ctx, u.ID, args[1])
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "ls <username>",
		Aliases: []string{"list"},
		Short:   "List username's contacts",
		Args:    cobra.ExactArgs(1),
		RunE: c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "list contacts")
			defer cancel()

			u, err := rt.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			contacts, err := rt.accounts.Contacts(ctx, u.ID)
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no contacts")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"Username", "Name", "Email"})
			for _, ct := range contacts {
				table.Append([]string{ct.Username, rt.accounts.DisplayName(ct), ct.Email})
			}
			table.Render()
			return nil
		}),
	})

	return cmd
}
