package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"classgrid/internal/ics"
	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/store"
	"classgrid/internal/tui"
)

// printFlags are the filter flags shared by print and ics.
type printFlags struct {
	locations []string
	programs  []string
	apparel   string
	beginner  bool
	from      string
	to        string
}

func (f *printFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.locations, "location", nil, "locations to show (default: preferred location)")
	cmd.Flags().StringSliceVar(&f.programs, "program", nil, "program categories to show (default: all)")
	cmd.Flags().StringVar(&f.apparel, "apparel", "any", "apparel filter: any|gi-only|no-gi-only")
	cmd.Flags().BoolVar(&f.beginner, "beginner", false, "only beginner-friendly sessions")
	cmd.Flags().StringVar(&f.from, "from", "", "earliest start time, e.g. 5:00 PM or 17:00")
	cmd.Flags().StringVar(&f.to, "to", "", "latest start time")
}

// events translates the flags into filter events.
func (f *printFlags) events(snap store.Snapshot) ([]schedule.Event, error) {
	var evs []schedule.Event

	if len(f.locations) > 0 {
		// Select the requested ones first so the selection never empties.
		for _, loc := range f.locations {
			if !snap.Filters.LocationSelected(loc) {
				evs = append(evs, schedule.Event{Kind: schedule.EventToggleLocation, Value: loc})
			}
		}
		for _, loc := range snap.Filters.SelectedLocations() {
			if !slices.Contains(f.locations, loc) {
				evs = append(evs, schedule.Event{Kind: schedule.EventToggleLocation, Value: loc})
			}
		}
	}
	for _, p := range f.programs {
		evs = append(evs, schedule.Event{Kind: schedule.EventToggleProgram, Value: p})
	}
	evs = append(evs, schedule.Event{Kind: schedule.EventSetApparel, Value: f.apparel})
	if f.beginner {
		evs = append(evs, schedule.Event{Kind: schedule.EventSetLevel, Value: string(schedule.LevelBeginnerOnly)})
	}

	if f.from != "" || f.to != "" {
		r := schedule.FullDay
		var err error
		if f.from != "" {
			if r.Start, err = schedule.ParseClock(f.from); err != nil {
				return nil, fmt.Errorf("--from: %w", err)
			}
		}
		if f.to != "" {
			if r.End, err = schedule.ParseClock(f.to); err != nil {
				return nil, fmt.Errorf("--to: %w", err)
			}
		}
		evs = append(evs, schedule.Event{Kind: schedule.EventSetTimeRange, Start: r.Start, End: r.End})
	}
	return evs, nil
}

func (f *printFlags) apply(st *store.Store) error {
	evs, err := f.events(st.Snapshot())
	if err != nil {
		return err
	}
	for _, ev := range evs {
		if _, err := st.Apply(ev); err != nil {
			return fmt.Errorf("%s %q: %w", ev.Kind, ev.Value, err)
		}
	}
	return nil
}

func newPrintCmd(configPath *string) *cobra.Command {
	var (
		filters printFlags
		width   int
		expand  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print the filtered weekly schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.mustLoad(cmd.Context()); err != nil {
				return err
			}
			if err := filters.apply(a.store); err != nil {
				return err
			}

			snap, week := a.store.Current()
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(week)
			}
			_, _ = fmt.Fprintln(w, tui.Summary(week, snap.LastUpdated))
			_, _ = fmt.Fprintln(w, tui.Render(week, tui.RenderOptions{
				Layout: schedule.SelectLayout(width, tui.DefaultBreakpoint),
				Width:  width,
				Expand: expand,
			}))
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&width, "width", 80, "output width in columns; decides the layout")
	cmd.Flags().BoolVar(&expand, "expand", false, "show session details")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the assembled week as JSON")
	return cmd
}

func newTUICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the schedule in an interactive terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.mustLoad(cmd.Context()); err != nil {
				return err
			}
			return tui.Run(cmd.Context(), a.store, 0)
		},
	}
}

func newICSCmd(configPath *string) *cobra.Command {
	var (
		filters printFlags
		out     string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export the schedule as a weekly-recurring iCalendar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath)
			if err != nil {
				return err
			}
			if err := a.mustLoad(cmd.Context()); err != nil {
				return err
			}
			if err := filters.apply(a.store); err != nil {
				return err
			}

			snap, week := a.store.Current()
			sessions := snap.Sessions
			if !all {
				sessions = make([]model.Session, 0, week.Visible)
				for _, g := range week.Days {
					sessions = append(sessions, g.Sessions...)
				}
			}

			body, err := ics.Export(sessions, ics.ExportOptions{
				Location: ics.LoadLocation(a.cfg.Timezone),
				Duration: time.Duration(a.cfg.SessionMinutes) * time.Minute,
			})
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = io.WriteString(w, body)
			return err
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&all, "all", false, "export every session, ignoring filters")
	return cmd
}
