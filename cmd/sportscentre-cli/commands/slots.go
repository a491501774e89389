package commands

import (
	"strconv"

	"sportscentre/internal/portal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	gymAfter  *float64
	gymBefore *float64
)

func init() {
	gymAfter = gymCmd.Flags().Float64("after", 0, "Earliest start, in base-60 hours (9.30 is half past nine).")
	gymBefore = gymCmd.Flags().Float64("before", 24, "Latest end, in base-60 hours.")
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(gymCmd)
}

func renderSlots(slots []portal.Slot) {
	t := newTable()
	t.AppendHeader(table.Row{"Id", "Date", "Time", "Location", "Spaces"})
	for _, s := range slots {
		t.AppendRow(table.Row{
			s.Id,
			s.Start.Format("Mon 2 Jan"),
			s.Start.Format("15:04") + " - " + s.End.Format("15:04"),
			s.Location,
			s.Spaces,
		})
	}
	t.Render()
}

var slotsCmd = &cobra.Command{
	Use:   "slots <category> <activity>",
	Short: "Lists the bookable slots of an activity.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		category, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("category must be a number", err)
		}
		activity, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("activity must be a number", err)
		}

		slots, err := client.Slots(cmd.Context(), category, activity)
		if err != nil {
			fatal("failed to list slots", err)
		}
		renderSlots(slots)
	},
}

var gymCmd = &cobra.Command{
	Use:   "gym [--after <hour>] [--before <hour>]",
	Short: "Lists the bookable gym slots within a time of day window.",
	Run: func(cmd *cobra.Command, args []string) {
		slots, err := client.GymSlots(cmd.Context(), *gymAfter, *gymBefore)
		if err != nil {
			fatal("failed to list gym slots", err)
		}
		renderSlots(slots)
	},
}
