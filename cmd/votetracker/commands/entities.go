package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(entitiesCmd)
}

var entitiesCmd = &cobra.Command{
	Use:   "entities [query...]",
	Short: "Lists the tracked submissions, or resolves each query by id or (fuzzy) name.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		registry, err := cfg.Registry()
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		base := strings.TrimRight(cfg.BaseUrl, "/")

		if len(args) == 0 {
			t.AppendHeader(table.Row{"ID", "Name", "Page"})
			for _, e := range registry.Entities() {
				t.AppendRow(table.Row{e.ID, e.Name, fmt.Sprintf("%s/%s/", base, e.ID)})
			}
			t.Render()
			return nil
		}

		t.AppendHeader(table.Row{"Query", "ID", "Name"})
		missing := 0
		for _, query := range args {
			e, ok := registry.Lookup(query)
			if !ok {
				missing++
				t.AppendRow(table.Row{query, "-", "no match"})
				continue
			}
			t.AppendRow(table.Row{query, e.ID, e.Name})
		}
		t.Render()

		if missing > 0 {
			return fmt.Errorf("%d of %d queries matched nothing", missing, len(args))
		}
		return nil
	},
}
