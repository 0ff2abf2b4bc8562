package main

import (
	"fmt"

	"github.com/spf13/cobra"

	termscache "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/cache"
)

func (c *cli) cacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local cache of emailed adoption terms",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pets whose term this device saw emailed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := c.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			petIDs, err := termscache.NewSentCache(c.engine.Store).Emailed(cmd.Context(), userID)
			if err != nil {
				return err
			}
			for _, id := range petIDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})
	cache.AddCommand(&cobra.Command{
		Use:   "revalidate [PET_ID...]",
		Short: "Check cached pets, or the given ones, against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			petIDs, err := parseIDs(args, "pet id")
			if err != nil {
				return err
			}
			userID, err := c.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.engine.Terms.Revalidate(cmd.Context(), userID, petIDs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "confirmed: %v\nunconfirmed: %v\n", res.Confirmed, res.Unconfirmed)
			return nil
		},
	})
	return cache
}
