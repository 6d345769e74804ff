package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/persistence"
	"github.com/talgya/hinterland/internal/village"
)

const defaultDB = "data/hinterland.db"

// openDB opens a save database that must already exist.
func openDB(path string) (*persistence.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("save database: %w", err)
	}
	return persistence.Open(path)
}

func latestWorld(ctx context.Context, db *persistence.DB) (*persistence.StoredSnapshot, *engine.World, error) {
	snap, err := db.LatestSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	w, err := persistence.Unmarshal(snap.Blob)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	return snap, w, nil
}

func exportCmd() *cobra.Command {
	var dbPath, out, compression string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the latest snapshot to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			snap, w, err := latestWorld(cmd.Context(), db)
			if err != nil {
				return err
			}
			blob, err := persistence.Marshal(w, compression)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, blob, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			successColor.Printf("✓ snapshot %d written to %s", snap.ID, out)
			fmt.Printf(" (%s, %s)\n", compression, humanize.Bytes(uint64(len(blob))))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDB, "save database")
	cmd.Flags().StringVarP(&out, "out", "o", "hinterland.snapshot", "output file")
	cmd.Flags().StringVar(&compression, "compression", persistence.CompressionNone, "zstd, lz4 or none")
	return cmd
}

func importCmd() *cobra.Command {
	var dbPath, in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a snapshot file as the newest save",
		Long:  "Store a snapshot file as the newest save. Stop worldsim first; it only reads saves at startup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			w, err := persistence.Unmarshal(blob)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			if len(w.Villages) == 0 {
				return fmt.Errorf("%s: snapshot has no villages", in)
			}

			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.SaveSnapshot(cmd.Context(), w.LastTick, blob); err != nil {
				return err
			}
			successColor.Printf("✓ imported %s", in)
			fmt.Printf(" (%d villages, last tick %s)\n", len(w.Villages), w.LastTick.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDB, "save database")
	cmd.Flags().StringVarP(&in, "in", "i", "hinterland.snapshot", "snapshot file")
	return cmd
}

func inspectCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize stored snapshots and the latest world",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			infos, err := db.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			heading("Snapshots (%d)", len(infos))
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"ID", "Saved", "World time", "Size", "Digest"}),
			)
			for _, s := range infos {
				table.Append([]string{
					strconv.FormatInt(s.ID, 10),
					humanize.Time(s.SavedAt),
					s.Tick.Format("2006-01-02 15:04:05"),
					humanize.Bytes(uint64(s.Size)),
					s.Digest[:min(12, len(s.Digest))],
				})
			}
			if err := table.Render(); err != nil {
				return err
			}
			if len(infos) == 0 {
				return nil
			}

			_, w, err := latestWorld(cmd.Context(), db)
			if err != nil {
				return err
			}
			heading("Latest world")
			fmt.Printf("   Villages: %d   Missions: %d   Reports: %d   Explored tiles: %s\n",
				len(w.Villages), len(w.Missions), len(w.Reports), humanize.Comma(int64(w.Map.Len())))
			return ownerTable(w)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDB, "save database")
	return cmd
}

// ownerTable prints village count and total points per owner.
func ownerTable(w *engine.World) error {
	type tally struct {
		villages int
		points   int
	}
	byOwner := make(map[village.Owner]*tally)
	for _, v := range w.Villages {
		t := byOwner[v.Owner]
		if t == nil {
			t = &tally{}
			byOwner[v.Owner] = t
		}
		t.villages++
		t.points += v.Points
	}
	owners := make([]village.Owner, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	slices.SortFunc(owners, func(a, b village.Owner) int {
		return byOwner[b].points - byOwner[a].points
	})

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Owner", "Villages", "Points"}),
	)
	for _, o := range owners {
		name := string(o)
		if p := w.Profiles[o]; p != nil && p.Name != "" {
			name = p.Name
		}
		table.Append([]string{name, strconv.Itoa(byOwner[o].villages), humanize.Comma(int64(byOwner[o].points))})
	}
	return table.Render()
}
