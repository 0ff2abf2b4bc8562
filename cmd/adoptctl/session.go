package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin USER_ID TOKEN",
		Short: "Store the session token of a user on this device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			if err := c.engine.Session.SignIn(cmd.Context(), userID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as user %d\n", userID)
			return nil
		},
	}
}

func (c *cli) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the device session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.engine.Session.SignOut(cmd.Context())
		},
	}
}
