package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	petsapp "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application"
	pettypes "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application/types"
	petdomain "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	termscache "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/cache"
	usersports "github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
)

func (c *cli) petsCmd() *cobra.Command {
	var (
		screen   string
		statuses []string
	)
	cmd := &cobra.Command{
		Use:   "pets",
		Short: "Refresh a listing screen with its saved filter, favorites first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("status") {
				if err := c.saveStatusFilter(ctx, screen, statuses); err != nil {
					return err
				}
			}
			pets, err := c.engine.Listing.Refresh(ctx, screen)
			if err != nil {
				return err
			}
			emailed, err := c.emailedTerms(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS\tOWNER\tFAVORITE\tTERM\tDISEASES")
			for _, p := range pets {
				fav := ""
				if p.Favorite {
					fav = "*"
				}
				term := ""
				if emailed[p.ID] {
					term = "emailed"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Status, p.OwnerID, fav, term, strings.Join(p.Diseases, ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&screen, "screen", "home", "listing screen whose saved filter applies")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "save a status filter for the screen, by name or code (draft, available, pending, adopted)")
	return cmd
}

func (c *cli) saveStatusFilter(ctx context.Context, screen string, raw []string) error {
	sel, err := c.engine.Listing.Filter(ctx, screen)
	if err != nil {
		return err
	}
	sel.Statuses = sel.Statuses[:0]
	for _, r := range raw {
		status, err := petdomain.ParseStatus(r)
		if err != nil {
			return err
		}
		sel.Statuses = append(sel.Statuses, status)
	}
	return c.engine.Listing.SaveFilter(ctx, screen, sel)
}

// emailedTerms reads the signed-in user's sent cache. The column is a hint;
// the server is only asked when an adoption is completed.
func (c *cli) emailedTerms(ctx context.Context) (map[int64]bool, error) {
	userID, err := c.currentUser(ctx)
	if errors.Is(err, usersports.ErrSignedOut) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids, err := termscache.NewSentCache(c.engine.Store).Emailed(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (c *cli) favoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite PET_ID",
		Short: "Toggle a pet in the signed-in user's favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			petID, err := parseID(args[0], "pet id")
			if err != nil {
				return err
			}
			if err := c.engine.Favorites.Toggle(cmd.Context(), petID); err != nil {
				return err
			}
			pet, err := c.engine.Catalog.Get(cmd.Context(), petID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pet %d favorite=%t\n", petID, pet.Favorite)
			return nil
		},
	}
}

func (c *cli) adoptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adopt PET_ID",
		Short: "Add a pet to the signed-in user's adoption list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adopt(cmd.Context(), cmd.OutOrStdout(), args[0], false)
		},
	}
}

func (c *cli) readoptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readopt PET_ID",
		Short: "Confirm adopting a pet this user released before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.adopt(cmd.Context(), cmd.OutOrStdout(), args[0], true)
		},
	}
}

func (c *cli) adopt(ctx context.Context, out io.Writer, rawPetID string, confirm bool) error {
	petID, err := parseID(rawPetID, "pet id")
	if err != nil {
		return err
	}
	userID, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	// The re-adoption offer lives in the orchestrator, so readopt asks again
	// before confirming.
	res, err := c.engine.Adoption.RequestAdopt(ctx, petID, userID)
	if err != nil {
		return err
	}
	if confirm && res.Outcome == pettypes.OutcomeReadoptionOffered {
		if res, err = c.engine.Adoption.ConfirmReadoption(ctx, petID, userID); err != nil {
			return err
		}
	}
	switch res.Outcome {
	case pettypes.OutcomeAdded:
		fmt.Fprintf(out, "pet %d added to your list\n", petID)
	case pettypes.OutcomeAlreadyAdded:
		fmt.Fprintf(out, "pet %d is already on your list\n", petID)
	case pettypes.OutcomeReadoptionOffered:
		fmt.Fprintf(out, "you adopted pet %d before; run `adoptctl readopt %d` to confirm\n", petID, petID)
	case pettypes.OutcomeBlocked:
		fmt.Fprintf(out, "blocked: %s\n", res.Message)
	case pettypes.OutcomeRetryable:
		fmt.Fprintf(out, "could not add pet %d, try again: %s\n", petID, res.Message)
	}
	return nil
}

func (c *cli) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete PET_ID",
		Short: "Mark an adoption done once its term is emailed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			petID, err := parseID(args[0], "pet id")
			if err != nil {
				return err
			}
			adopterID, err := c.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			done, err := c.engine.Adoption.CompleteAdoption(cmd.Context(), petID, adopterID, func(context.Context) error {
				fmt.Fprintf(out, "adoption of pet %d complete\n", petID)
				return nil
			})
			if errors.Is(err, petsapp.ErrTermNotEmailed) {
				return fmt.Errorf("%w; sign and email it with `adoptctl term sign --pet %d --email`, or load it with `adoptctl term show --pet %d`", err, petID, petID)
			}
			if err != nil {
				return err
			}
			if done.StatusErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "status update pending: %v\n", done.StatusErr)
			}
			return done.HandoffErr
		},
	}
}
