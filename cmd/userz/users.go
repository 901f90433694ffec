package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/userz/internal/app/accounts"
	"github.com/dalemusser/userz/internal/app/bootstrap"
	"github.com/dalemusser/userz/internal/app/system/personname"
	"github.com/dalemusser/userz/internal/app/system/timeouts"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errMismatch makes verify exit non-zero without treating a wrong password as a fault.
var errMismatch = errors.New("password does not match")

// nameFlags collects --first/--middle/--last/--suffix.
type nameFlags struct {
	parts personname.Parts
}

func (n *nameFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&n.parts.First, "first", "", "First name")
	cmd.Flags().StringVar(&n.parts.Middle, "middle", "", "Middle name")
	cmd.Flags().StringVar(&n.parts.Last, "last", "", "Last name")
	cmd.Flags().StringVar(&n.parts.Suffix, "suffix", "", "Name suffix (up to 3 characters)")
}

func (n *nameFlags) set(cmd *cobra.Command) bool {
	for _, f := range []string{"first", "middle", "last", "suffix"} {
		if cmd.Flags().Changed(f) {
			return true
		}
	}
	return false
}

// patch holds only the flags given on the command line.
func (n *nameFlags) patch(cmd *cobra.Command) accounts.NamePatch {
	var np accounts.NamePatch
	if cmd.Flags().Changed("first") {
		np.First = &n.parts.First
	}
	if cmd.Flags().Changed("middle") {
		np.Middle = &n.parts.Middle
	}
	if cmd.Flags().Changed("last") {
		np.Last = &n.parts.Last
	}
	if cmd.Flags().Changed("suffix") {
		np.Suffix = &n.parts.Suffix
	}
	return np
}

// readSecret returns flagValue, or the first line of in when the flag is empty.
func readSecret(in io.Reader, flagValue, what string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%s is required (flag or stdin)", what)
	}
	return line, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users collection and attach its validator",
		Args:  cobra.NoArgs,
		RunE: c.withDB(func(ctx context.Context, rt *runtime, _ []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), rt.log, "migrate")
			defer cancel()
			if err := bootstrap.EnsureSchema(ctx, rt.deps, rt.log); err != nil {
				return err
			}
			rt.log.Info("schema ready", zap.String("database", rt.cfg.MongoDatabase))
			return nil
		}),
	}
}

func (c *cli) createCmd() *cobra.Command {
	var (
		password string
		email    string
		name     string
		nf       nameFlags
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Long: `Create a user. The full name given with --name is split into first,
middle and last name and suffix; any of --first, --middle, --last or
--suffix takes precedence. Without --password the password is read
from the first line of stdin.`,
		Args: cobra.ExactArgs(1),
	}
	nf.register(cmd)
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Full name")

	cmd.RunE = c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
		pw, err := readSecret(cmd.InOrStdin(), password, "password")
		if err != nil {
			return err
		}
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "create user")
		defer cancel()

		u, err := rt.accounts.Register(ctx, accounts.Registration{
			Username: args[0],
			Password: pw,
			Email:    email,
			FullName: name,
			Parts:    nf.parts,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", u.Username, u.ID.Hex(), rt.accounts.DisplayName(u))
		return nil
	})
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	var split bool
	cmd := &cobra.Command{
		Use:   "show <username>",
		Short: "Print the client view of a user as JSON",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&split, "split", false, "Show the name as separate fields")

	cmd.RunE = c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "show user")
		defer cancel()

		u, err := rt.accounts.Get(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rt.accounts.ClientUser(*u, split))
	})
	return cmd
}

func (c *cli) renameCmd() *cobra.Command {
	var (
		replace bool
		nf      nameFlags
	)
	cmd := &cobra.Command{
		Use:   "rename <username> [full name...]",
		Short: "Set a user's name",
		Long: `Set a user's name from free text or from --first/--middle/--last/--suffix.
Name flags change only the fields they name; the rest are kept.

Free text only fills a record that has nothing beyond a first name; use
--replace to overwrite an existing name with the parsed text.`,
		Args: cobra.MinimumNArgs(1),
	}
	nf.register(cmd)
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite an existing name with the parsed full name")

	cmd.RunE = c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "rename user")
		defer cancel()

		u, err := rt.accounts.Get(ctx, args[0])
		if err != nil {
			return err
		}
		full := strings.Join(args[1:], " ")

		var parts personname.Parts
		switch {
		case nf.set(cmd):
			parts, err = rt.accounts.PatchName(ctx, u.ID, nf.patch(cmd))
		case full == "":
			return errors.New("give a full name or at least one of --first, --middle, --last, --suffix")
		case replace:
			parts, err = rt.accounts.SetNameParts(ctx, u.ID, personname.Parse(full))
		default:
			parts, err = rt.accounts.SetFullName(ctx, u.ID, full)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rt.cfg.Formatter().Format(parts))
		return nil
	})
	return cmd
}

func (c *cli) emailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "email <username> <address>",
		Short: "Change a user's email address",
		Args:  cobra.ExactArgs(2),
		RunE: c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "change email")
			defer cancel()

			u, err := rt.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return rt.accounts.SetEmail(ctx, u.ID, args[1])
		}),
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "verify <username>",
		Short: "Check a password; exits non-zero on mismatch",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")

	cmd.RunE = c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
		pw, err := readSecret(cmd.InOrStdin(), password, "password")
		if err != nil {
			return err
		}
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "verify password")
		defer cancel()

		_, ok, err := rt.accounts.VerifyPassword(ctx, args[0], pw)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgRed, color.Bold).Sprint("mismatch"))
			return errMismatch
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen, color.Bold).Sprint("ok"))
		return nil
	})
	return cmd
}

func (c *cli) passwdCmd() *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&current, "current", "", "Current password")
	cmd.Flags().StringVar(&next, "new", "", "New password")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")

	cmd.RunE = c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
		ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), rt.log, "change password")
		defer cancel()

		u, err := rt.accounts.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if err := rt.accounts.ChangePassword(ctx, u.ID, current, next); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "password changed")
		return nil
	})
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user and remove them from every contact list",
		Args:  cobra.ExactArgs(1),
		RunE: c.withDB(func(ctx context.Context, rt *runtime, args []string) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), rt.log, "delete user")
			defer cancel()

			u, err := rt.accounts.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return rt.accounts.Delete(ctx, u.ID)
		}),
	}
}
