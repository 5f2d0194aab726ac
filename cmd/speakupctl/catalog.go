package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/speakup-coach/backend/internal/config"
	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
	"github.com/speakup-coach/backend/internal/practice"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the practice catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a catalog and summarise its modes",
	Long:  "Validate the built-in practice catalog, or the YAML file given with --file, and print each mode's curve and fallback pool sizes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-14s  %-9s  %-44s  %s\n", "Mode", "Family", "Tiers (round ≤ bound)", "Pool")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, name := range c.ModeNames() {
			m := c.Modes[name]
			curve := m.Curve()
			var steps, pools []string
			for _, r := range curve.Rules {
				steps = append(steps, fmt.Sprintf("%s≤%d", r.Tier, r.UpTo))
			}
			steps = append(steps, string(curve.Final)+"+")
			for _, t := range curve.Reachable() {
				pools = append(pools, fmt.Sprintf("%s:%d", t, len(m.Fallback[t])))
			}
			fmt.Fprintf(out, "%-14s  %-9s  %-44s  %s\n", name, m.Family, strings.Join(steps, " "), strings.Join(pools, " "))
		}
		fmt.Fprintf(out, "\ncatalog OK: %d modes, default %q\n", len(c.Modes), c.DefaultMode)
		return nil
	},
}

var catalogPreviewCmd = &cobra.Command{
	Use:   "preview <mode>",
	Short: "Generate one item with the configured text generator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		round, _ := cmd.Flags().GetInt("round")
		exclude, _ := cmd.Flags().GetStringSlice("exclude")

		c, err := loadCatalog(cmd)
		if err != nil {
			return err
		}
		mode := practice.Mode(args[0])
		if _, ok := c.Modes[mode]; !ok {
			return fmt.Errorf("unknown mode %q (known: %v)", mode, c.ModeNames())
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logg, err := logger.New(cfg.Env)
		if err != nil {
			return err
		}
		defer logg.Sync()

		client, err := llm.NewClient(cfg.LLM, logg)
		if err != nil {
			return err
		}

		if round < 1 {
			round = 1
		}
		gen := practice.NewGenerator(client, c, logg, practice.WithTimeout(cfg.LLM.PracticeTimeout))
		item, err := gen.Generate(context.Background(), mode, c.SelectTier(mode, round), round, exclude)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

func init() {
	catalogCmd.PersistentFlags().String("file", "", "Catalog YAML to use instead of the built-in one")
	catalogPreviewCmd.Flags().Int("round", 1, "Round number that picks the tier")
	catalogPreviewCmd.Flags().StringSlice("exclude", nil, "Recently used items to steer away from")

	catalogCmd.AddCommand(catalogCheckCmd)
	catalogCmd.AddCommand(catalogPreviewCmd)
}

func loadCatalog(cmd *cobra.Command) (*practice.Catalog, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return practice.LoadCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return practice.ParseCatalog(data)
}
