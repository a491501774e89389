package commands

import (
	"errors"
	"log/slog"
	"strconv"

	"sportscentre/internal/portal"

	"github.com/spf13/cobra"
)

var bookCheckout *bool

func init() {
	bookCheckout = bookCmd.Flags().Bool("checkout", false, "Pay for the basket after adding the slots to it.")
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(checkoutCmd)
}

func checkout(cmd *cobra.Command) {
	accepted, err := client.Checkout(cmd.Context())
	if err != nil {
		fatal("failed to checkout", err)
	}
	if !accepted {
		slog.Warn("the portal did not accept the payment step, check the basket on the website")
		return
	}
	slog.Info("payment step accepted, check your bookings to confirm")
}

var bookCmd = &cobra.Command{
	Use:   "book <slot-id>... [--checkout]",
	Short: "Adds slots to the basket by their id.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			id, err := strconv.Atoi(arg)
			if err != nil {
				fatal("slot id must be a number", err)
			}

			err = client.AddToBasket(cmd.Context(), portal.Slot{Id: id})
			var conflict *portal.ConflictError
			if errors.As(err, &conflict) {
				slog.Warn("already booked", "slot", id, "message", conflict.Message)
				continue
			}
			if err != nil {
				fatal("failed to add slot to basket", err)
			}
			slog.Info("added to basket", "slot", id)
		}

		if *bookCheckout {
			checkout(cmd)
		}
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Pays for the slots in the basket.",
	Run: func(cmd *cobra.Command, args []string) {
		checkout(cmd)
	},
}
