package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	termsapp "github.com/Apurer/pet-adoption-engine/internal/domains/terms/application"
	"github.com/Apurer/pet-adoption-engine/internal/domains/terms/domain"
)

func (c *cli) termCmd() *cobra.Command {
	var petID, adopterID, donorID int64
	term := &cobra.Command{
		Use:   "term",
		Short: "Show, sign or email an adoption or donation term",
	}
	term.PersistentFlags().Int64Var(&petID, "pet", 0, "pet of an adoption term")
	term.PersistentFlags().Int64Var(&adopterID, "adopter", 0, "adopter of an adoption term; defaults to the signed-in user")
	term.PersistentFlags().Int64Var(&donorID, "donor", 0, "donor of a donation term; set instead of --pet")

	controller := func(cmd *cobra.Command) (*termsapp.Controller, error) {
		var key domain.Key
		switch {
		case donorID != 0:
			key = domain.DonationKey(donorID)
		default:
			if adopterID == 0 {
				id, err := c.currentUser(cmd.Context())
				if err != nil {
					return nil, err
				}
				adopterID = id
			}
			key = domain.AdoptionKey(petID, adopterID)
		}
		return c.engine.Terms.For(key)
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Load the term and report whether it is stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := controller(cmd)
			if err != nil {
				return err
			}
			defer ctl.Close()
			view, err := ctl.Load(cmd.Context())
			printView(cmd.OutOrStdout(), view)
			return err
		},
	}

	var signature, observations string
	var email bool
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Create or re-sign the term",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := controller(cmd)
			if err != nil {
				return err
			}
			defer ctl.Close()
			out := cmd.OutOrStdout()
			if _, err := ctl.Load(cmd.Context()); err != nil {
				return err
			}
			if _, err := ctl.Compose(); err != nil {
				return err
			}
			view, err := ctl.Submit(cmd.Context(), signature, observations)
			printView(out, view)
			if err != nil || !email {
				return err
			}
			view, err = ctl.SendEmail(cmd.Context())
			printView(out, view)
			return err
		},
	}
	sign.Flags().StringVar(&signature, "signature", "", "signature text")
	sign.Flags().StringVar(&observations, "observations", "", "observations; the motive of a donation term")
	sign.Flags().BoolVar(&email, "email", false, "email the term after signing")

	send := &cobra.Command{
		Use:   "email",
		Short: "Email the saved term to donor and adopter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctl, err := controller(cmd)
			if err != nil {
				return err
			}
			defer ctl.Close()
			if _, err := ctl.Load(cmd.Context()); err != nil {
				return err
			}
			view, err := ctl.SendEmail(cmd.Context())
			printView(cmd.OutOrStdout(), view)
			return err
		},
	}

	term.AddCommand(show, sign, send)
	return term
}

func printView(w io.Writer, v termsapp.View) {
	fmt.Fprintf(w, "term %s: %s\n", v.Key, v.State)
	if v.Term != nil {
		fmt.Fprintf(w, "  signed by %q, hash %s\n", v.Term.Signature, v.Term.Hash)
		if v.Term.EmailSentAt != nil {
			fmt.Fprintf(w, "  emailed at %s\n", v.Term.EmailSentAt.Format("2006-01-02 15:04"))
		}
	}
	if v.FormOpen {
		fmt.Fprintf(w, "  form: donor %q", v.Draft.Donor.Name)
		if v.Draft.Adopter != nil {
			fmt.Fprintf(w, ", adopter %q", v.Draft.Adopter.Name)
		}
		fmt.Fprintf(w, ", signature %q\n", v.Draft.Signature)
	}
	if len(v.StaleFields) > 0 {
		fmt.Fprintf(w, "  profile changed since signing: %s\n", strings.Join(v.StaleFields, ", "))
	}
	for _, n := range v.Notices {
		fmt.Fprintf(w, "  [%s] %s\n", n.Level, n.Message)
	}
}

func (c *cli) donationCmd() *cobra.Command {
	donation := &cobra.Command{
		Use:   "donation",
		Short: "Donation term gate",
	}
	donation.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report whether the signed-in user may list pets for donation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			donorID, err := c.currentUser(cmd.Context())
			if err != nil {
				return err
			}
			decision, err := c.engine.Terms.DonationGate().Check(cmd.Context(), donorID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "allowed=%t state=%s %s\n", decision.Allowed, decision.State, decision.Reason)
			return nil
		},
	})
	return donation
}
