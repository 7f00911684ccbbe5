package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/headlinestudio/internal/database"
	"github.com/TobiSchelling/headlinestudio/internal/fetch"
	"github.com/TobiSchelling/headlinestudio/internal/headlines"
)

// --- select command ---

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Manage your headline selection",
}

var (
	selectSourceTable string
	selectSourceID    string
	selectBrand       string
	selectURL         string
)

var selectAddCmd = &cobra.Command{
	Use:   "add [headline]",
	Short: "Add a headline (or a landing page with --url) to your selection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sel := database.NewSelection{SourceTable: selectSourceTable}
		if selectSourceID != "" {
			sel.SourceID = &selectSourceID
		}
		if selectBrand != "" {
			sel.Brand = &selectBrand
		}

		switch {
		case selectURL != "":
			title, err := fetch.NewTitleFetcher(cfg.Generation.Timeout()).FetchTitle(cmd.Context(), selectURL)
			if err != nil {
				return fmt.Errorf("reading %s: %w", selectURL, err)
			}
			sel.Headline = title
			sel.SourceTable = "landing_page"
			sel.SourceID = &selectURL
		case len(args) == 1:
			sel.Headline = args[0]
		default:
			return fmt.Errorf("give a headline or --url")
		}

		s, err := db.AddSelection(rc, sel)
		if err != nil {
			return err
		}
		fmt.Printf("Selected [%s]: %s\n", s.ID, s.Headline)
		return nil
	},
}

var selectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your selected headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListSelections(rc)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing selected. Add one with: headlinestudio select add")
			return nil
		}

		for _, s := range items {
			fmt.Printf("  [%s] %s (%s)\n", s.ID, s.Headline, s.SourceTable)
			if s.AIHeadline != nil {
				fmt.Printf("        AI: %s\n", *s.AIHeadline)
			}
		}
		return nil
	},
}

var selectRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a headline from your selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.GetSelection(rc, args[0])
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("selection %s not found", args[0])
		}
		if err := db.RemoveSelection(rc, args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed [%s]: %s\n", s.ID, s.Headline)
		return nil
	},
}

var selectClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every headline from your selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ClearSelections(rc); err != nil {
			return err
		}
		fmt.Println("Selection cleared.")
		return nil
	},
}

func init() {
	selectAddCmd.Flags().StringVar(&selectSourceTable, "source-table", "manual", "Table the headline was picked from")
	selectAddCmd.Flags().StringVar(&selectSourceID, "source-id", "", "Id of the source row")
	selectAddCmd.Flags().StringVar(&selectBrand, "brand", "", "Advertiser brand")
	selectAddCmd.Flags().StringVar(&selectURL, "url", "", "Landing page to read the headline from")

	selectCmd.AddCommand(selectAddCmd)
	selectCmd.AddCommand(selectListCmd)
	selectCmd.AddCommand(selectRemoveCmd)
	selectCmd.AddCommand(selectClearCmd)
}

// --- generate command ---

var generateItem string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Rewrite your selected headlines with the language model",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		selected, err := db.ListSelections(rc)
		if err != nil {
			return err
		}
		var items []headlines.BatchItem
		for _, s := range selected {
			if generateItem != "" && s.ID != generateItem {
				continue
			}
			items = append(items, headlines.BatchItem{
				Headline:    s.Headline,
				SourceTable: s.SourceTable,
				SourceID:    s.SourceID,
				Brand:       s.Brand,
			})
		}
		if generateItem != "" && len(items) == 0 {
			return fmt.Errorf("selection %s not found", generateItem)
		}

		fmt.Printf("Generating %d headline(s)...\n", len(items))
		n, err := newService(db).RegenerateBatch(cmd.Context(), rc, items)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d of %d.\n", n, len(items))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateItem, "item", "", "Only regenerate the selection with this id")
}

// --- top command ---

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Browse and rewrite the weekly top headlines",
}

var (
	topWeek int
	topYear int
)

func weekFromFlags() (database.WeekKey, error) {
	key := database.CurrentWeek()
	if topWeek != 0 {
		key.Week = topWeek
	}
	if topYear != 0 {
		key.Year = topYear
	}
	if !key.Valid() {
		return key, fmt.Errorf("invalid week %d/%d", key.Week, key.Year)
	}
	return key, nil
}

var topWeeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "List weeks with top headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		weeks, err := db.ListWeeks()
		if err != nil {
			return err
		}
		if len(weeks) == 0 {
			fmt.Println("No weekly data. Import some with: headlinestudio top import")
			return nil
		}
		for _, k := range weeks {
			fmt.Printf("  %s  %s\n", k, database.FormatWeekDisplay(k))
		}
		return nil
	},
}

var topListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show a week's top headlines with your rewrites",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		key, err := weekFromFlags()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		top, err := db.TopHeadlinesForUser(rc, key.Week, key.Year)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d of your own rewrites)\n\n", database.FormatWeekDisplay(key), top.NumOverrides)
		for _, h := range top.Items {
			fmt.Printf("  [%s] x%d %s\n", h.SourceID, h.Frequency, h.Headline)
			if h.AIHeadline != nil {
				fmt.Printf("        AI: %s\n", *h.AIHeadline)
			}
		}
		return nil
	},
}

var topRegenerateCmd = &cobra.Command{
	Use:   "regenerate [source_id...]",
	Short: "Rewrite top headlines for yourself only",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		key, err := weekFromFlags()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var items []headlines.OverrideItem
		for _, id := range args {
			h, err := db.GetWeeklyHeadline(id, key.Week, key.Year)
			if err != nil {
				return err
			}
			if h == nil {
				return fmt.Errorf("no top headline %s in %s", id, key)
			}
			items = append(items, headlines.OverrideItem{
				SourceID: h.SourceID, Headline: h.Headline, Week: h.Week, Year: h.Year, Frequency: h.Frequency,
			})
		}

		svc := newService(db)
		if len(items) == 1 {
			res, err := svc.RegenerateOne(cmd.Context(), rc, items[0])
			if err != nil {
				return err
			}
			fmt.Printf("  [%s] %s\n", res.SourceID, res.AIHeadline)
			return nil
		}

		results, err := svc.RegenerateOverrides(cmd.Context(), rc, items)
		if err != nil {
			return err
		}
		for _, res := range results {
			fmt.Printf("  [%s] %s\n", res.SourceID, res.AIHeadline)
		}
		fmt.Printf("Regenerated %d of %d.\n", len(results), len(items))
		return nil
	},
}

// weeklyFile is the YAML layout accepted by `top import`.
type weeklyFile struct {
	Week      int `yaml:"week"`
	Year      int `yaml:"year"`
	Headlines []struct {
		SourceID   string  `yaml:"source_id"`
		Headline   string  `yaml:"headline"`
		Frequency  int     `yaml:"frequency"`
		AIHeadline *string `yaml:"ai_headline"`
		ID         *string `yaml:"id"`
	} `yaml:"headlines"`
}

var topImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Load a week of aggregated top headlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var wf weeklyFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		key := database.WeekKey{Week: wf.Week, Year: wf.Year}
		if !key.Valid() {
			return fmt.Errorf("%s: invalid week %d/%d", args[0], wf.Week, wf.Year)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, h := range wf.Headlines {
			if err := db.InsertWeeklyHeadline(database.WeeklyHeadline{
				SourceID:   h.SourceID,
				Headline:   h.Headline,
				Week:       key.Week,
				Year:       key.Year,
				Frequency:  h.Frequency,
				AIHeadline: h.AIHeadline,
				ID:         h.ID,
			}); err != nil {
				return fmt.Errorf("importing %q: %w", h.Headline, err)
			}
		}
		fmt.Printf("Imported %d headline(s) for %s.\n", len(wf.Headlines), database.FormatWeekDisplay(key))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{topListCmd, topRegenerateCmd} {
		c.Flags().IntVar(&topWeek, "week", 0, "ISO week (default: current)")
		c.Flags().IntVar(&topYear, "year", 0, "ISO year (default: current)")
	}
	topCmd.AddCommand(topWeeksCmd)
	topCmd.AddCommand(topListCmd)
	topCmd.AddCommand(topRegenerateCmd)
	topCmd.AddCommand(topImportCmd)
}

// --- favorites command ---

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Star rewrites you like",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListFavorites(rc)
		if err != nil {
			return err
		}
		stats, err := db.GetFavoriteStats(rc)
		if err != nil {
			return err
		}
		fmt.Printf("%d favorites, %d originals, %d sources\n\n", stats.Total, stats.UniqueOriginals, stats.Sources)
		for _, f := range items {
			fmt.Printf("  [%s] %s\n        from: %s\n", f.ID, f.AIHeadline, f.Headline)
		}
		return nil
	},
}

var favoritesToggleCmd = &cobra.Command{
	Use:   "toggle [selection_id]",
	Short: "Star or unstar a rewritten selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := requestContext()
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.GetSelection(rc, args[0])
		if err != nil {
			return err
		}
		var snap *database.Snapshot
		if s != nil && s.AIHeadline != nil {
			snap = &database.Snapshot{AIHeadline: *s.AIHeadline, Headline: s.Headline}
		}

		state := newService(db).ToggleFavorite(cmd.Context(), rc, args[0], "selected", snap)
		label := "not a favorite"
		if state {
			label = "favorite"
		}
		fmt.Printf("[%s] %s\n", args[0], label)
		return nil
	},
}

func init() {
	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesToggleCmd)
}

// --- log command ---

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the most recent generated headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListGenerated(logLimit)
		if err != nil {
			return err
		}
		stats, err := db.GetGeneratedStats()
		if err != nil {
			return err
		}
		fmt.Printf("%d generated, average length %d\n\n", stats.Total, stats.AverageLength)
		for _, g := range items {
			fmt.Printf("  %s [%s] %s\n        from: %s\n", g.GeneratedAt, g.Region, g.AIHeadline, g.Headline)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of entries (0 for all)")
}
