package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grez-lucas/dialer-helper/internal/dialer/agent"
)

func newFillCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fill <country>",
		Short: "Fill the country picker once, in whichever frame has it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, cleanup, err := a.openAgent(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			resp := ag.Handle(cmd.Context(), agent.Request{
				Action:      agent.ActionFillCountry,
				CountryName: strings.Join(args, " "),
			})
			data, err := resp.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			if !resp.Success {
				return errors.New(resp.Error)
			}
			if !resp.Found {
				return errors.New("no country picker found in any frame")
			}
			return nil
		},
	}
}
