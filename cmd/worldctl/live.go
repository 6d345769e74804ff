package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/village"
)

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running simulation's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			st, err := opts.client().Status(ctx)
			if err != nil {
				return err
			}
			heading("%s", st.Name)
			fmt.Printf("   Sim time:      %s\n", st.Time.Format(time.RFC1123))
			fmt.Printf("   Speed:         %gx (running: %v)\n", st.Speed, st.Running)
			fmt.Printf("   Villages:      %s on a %d-tile map\n", humanize.Comma(int64(st.Villages)), st.MapSize)
			fmt.Printf("   Missions:      %s in flight\n", humanize.Comma(int64(st.Missions)))
			fmt.Printf("   Player points: %s\n", humanize.Comma(int64(st.PlayerPoints)))
			if st.LastSave.IsZero() {
				dimColor.Println("   Not saved yet")
			} else {
				fmt.Printf("   Last save:     %s\n", humanize.Time(st.LastSave))
			}
			return nil
		},
	}
}

func villagesCmd(opts *options) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "villages",
		Short: "List villages with resources and points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			vs, err := opts.client().Villages(ctx, village.Owner(owner))
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"ID", "Name", "Owner", "Coords", "Points", "Wood", "Clay", "Iron", "Loyalty"}),
			)
			for _, v := range vs {
				table.Append([]string{
					strconv.FormatUint(uint64(v.ID), 10),
					v.Name,
					string(v.Owner),
					fmt.Sprintf("%d|%d", v.X, v.Y),
					humanize.Comma(int64(v.Points)),
					humanize.Comma(int64(v.Resources[village.Wood])),
					humanize.Comma(int64(v.Resources[village.Clay])),
					humanize.Comma(int64(v.Resources[village.Iron])),
					fmt.Sprintf("%.0f", v.Loyalty),
				})
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only villages of this owner (player, barbarian, warlord-N)")
	return cmd
}

func reportsCmd(opts *options) *cobra.Command {
	var (
		id      uint64
		limit   int
		archive bool
	)
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List recent mission reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			rs, err := opts.client().Reports(ctx, village.ID(id), limit, archive)
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"When", "Result", "Mission", "Route", "Title"}),
			)
			for _, r := range rs {
				table.Append([]string{
					humanize.Time(r.Time),
					kindLabel(r.Kind),
					string(r.Mission),
					fmt.Sprintf("%d → %d", r.Origin, r.Target),
					r.Title,
				})
			}
			return table.Render()
		},
	}
	cmd.Flags().Uint64Var(&id, "village", 0, "only reports touching this village")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum reports to show")
	cmd.Flags().BoolVar(&archive, "archive", false, "read the long-term report log")
	return cmd
}

func kindLabel(k engine.ReportKind) string {
	switch k {
	case engine.ReportWin:
		return successColor.Sprint("win")
	case engine.ReportLoss:
		return failColor.Sprint("loss")
	default:
		return dimColor.Sprint(string(k))
	}
}

func missionsCmd(opts *options) *cobra.Command {
	var id uint64
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List missions in flight, soonest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			ms, err := opts.client().Missions(ctx, village.ID(id))
			if err != nil {
				return err
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Type", "Owner", "Route", "Arrives", "Units", "Resources"}),
			)
			for _, m := range ms {
				table.Append([]string{
					string(m.Type),
					string(m.Owner),
					fmt.Sprintf("%d → %d", m.Origin, m.Target),
					humanize.Time(m.Arrival),
					formatUnits(m.Units),
					formatResources(m.Resources),
				})
			}
			return table.Render()
		},
	}
	cmd.Flags().Uint64Var(&id, "village", 0, "only missions touching this village")
	return cmd
}

func buildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build <village> <building>",
		Short: "Queue the next level of a building",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("village id: %w", err)
			}
			ctx, cancel := opts.context()
			defer cancel()
			var order village.BuildOrder
			req := map[string]any{"village": id, "building": args[1]}
			if err := opts.client().Act(ctx, "build", req, &order); err != nil {
				return err
			}
			successColor.Printf("✓ %s queued", order.Building)
			fmt.Printf(" (%s)\n", order.Duration)
			return nil
		},
	}
}

func trainCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "train <village> <unit> <count>",
		Short: "Queue a training batch",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("village id: %w", err)
			}
			count, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			ctx, cancel := opts.context()
			defer cancel()
			var batch village.TrainingBatch
			req := map[string]any{"village": id, "unit": args[1], "count": count}
			if err := opts.client().Act(ctx, "train", req, &batch); err != nil {
				return err
			}
			successColor.Printf("✓ %d × %s in training\n", batch.Count, batch.Unit)
			return nil
		},
	}
}

func speedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "speed <multiplier>",
		Short: "Change the simulation speed (0 pauses)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			speed, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()
			if err := opts.client().SetSpeed(ctx, speed); err != nil {
				return err
			}
			successColor.Printf("✓ speed set to %gx\n", speed)
			return nil
		},
	}
}

func saveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Force the running world to save",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			if err := opts.client().Save(ctx); err != nil {
				return err
			}
			successColor.Println("✓ saved")
			return nil
		},
	}
}

func formatUnits(u village.Units) string {
	ids := unitOrder(u)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := u[id]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(n)), id))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatResources(r village.Resources) string {
	if r == (village.Resources{}) {
		return "-"
	}
	return fmt.Sprintf("%s/%s/%s",
		humanize.Comma(int64(r[village.Wood])),
		humanize.Comma(int64(r[village.Clay])),
		humanize.Comma(int64(r[village.Iron])))
}

// unitOrder lists units in catalog order for summaries.
func unitOrder(u village.Units) []catalog.UnitID {
	ids := slices.Collect(maps.Keys(u))
	catalog.Default().SortUnitIDs(ids)
	return ids
}
