package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/grez-lucas/dialer-helper/internal/dialer/countries"
)

func newRulesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the locator rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.cfg.LocateRules()
			if err != nil {
				return err
			}
			t := newTable(cmd)
			t.AppendHeader(table.Row{"Label", "Confidence", "Pattern"})
			for _, r := range rules {
				t.AppendRow(table.Row{r.Label, r.Confidence, r.Pattern})
			}
			t.Render()
			return nil
		},
	}
}

func newCountriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "countries",
		Short:             "List the selectable countries and their dial codes",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			all := countries.All()
			t := newTable(cmd)
			t.AppendHeader(table.Row{"", "Country", "Dial code"})
			for _, c := range all {
				t.AppendRow(table.Row{c.Flag, c.Name, c.DialCode})
			}
			t.AppendFooter(table.Row{"", "Total", len(all)})
			t.Render()
			return nil
		},
	}
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	return t
}
