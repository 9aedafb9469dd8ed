package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "collector",
		Short:   "VA facility collector",
		Version: version,
		Long: `collector assembles the canonical VA facility list from the facility
registry, the access-to-care feeds, the cemetery feeds and the static CSV
lists, layers operator overlays on top and publishes the result.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand(), newReloadCommand(), newCatalogCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reload periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.Reload.Interval = interval
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if ok, err := a.coordinator.WarmStart(cmd.Context()); err != nil {
				a.logger.Warn().Err(err).Msg("failed to load cached snapshot")
			} else if ok {
				a.logger.Info().Msg("warm start complete")
			}

			a.logger.Info().Dur("interval", cfg.Reload.Interval).Msg("starting reload loop")
			a.coordinator.Run(cmd.Context(), cfg.Reload.Interval)
			a.logger.Info().Msg("shutting down")
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "reload interval (overrides RELOAD_INTERVAL)")
	return cmd
}

func newReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Run one reload and print its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			reloadErr := a.service.Reload(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(a.service.Status()); err != nil {
				return err
			}
			return reloadErr
		},
	}
}

func newCatalogCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the service catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCatalog(cmd.OutOrStdout(), catalog.Default(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json, yaml")
	return cmd
}

type catalogRow struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category" yaml:"category"`
}

func writeCatalog(w io.Writer, c *catalog.Catalog, format string) error {
	entries := c.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].ID < entries[j].ID
	})
	rows := make([]catalogRow, len(entries))
	for i, e := range entries {
		rows[i] = catalogRow{ID: e.ID, Name: e.Name, Category: string(e.Category)}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		for _, r := range rows {
			if _, err := fmt.Fprintf(w, "%-10s %-50s %s\n", r.Category, r.ID, r.Name); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
