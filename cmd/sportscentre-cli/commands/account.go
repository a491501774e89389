package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bookingsCmd)
	rootCmd.AddCommand(profileCmd)
}

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "Lists the account's bookings.",
	Run: func(cmd *cobra.Command, args []string) {
		bookings, err := client.Bookings(cmd.Context())
		if err != nil {
			fatal("failed to list bookings", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Date", "Time", "Location", "Status"})
		for _, b := range bookings {
			end := b.End.Format("15:04")
			if b.Overnight() {
				end += " (+1)"
			}
			t.AppendRow(table.Row{
				b.Name,
				b.Start.Format("Mon 2 Jan 2006"),
				b.Start.Format("15:04") + " - " + end,
				b.Location,
				b.Status,
			})
		}
		t.Render()
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Shows the account holder's details.",
	Run: func(cmd *cobra.Command, args []string) {
		user, err := client.Profile(cmd.Context())
		if err != nil {
			fatal("failed to load profile", err)
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"Name", user.Name},
			{"Email", user.Email},
			{"Mobile", user.Mobile},
			{"Membership", user.Membership},
			{"Membership number", user.MembershipNumber},
			{"Membership status", user.MembershipStatus},
			{"Member status", user.MemberStatus},
		})
		t.Render()
	},
}
