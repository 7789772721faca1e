package cli

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/grez-lucas/dialer-helper/internal/dialer/countries"
	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved dialer settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := settings.NewFileStore(a.cfg.Settings.File, a.logger.Named("settings"))
				if err != nil {
					return err
				}
				s, err := store.Get(cmd.Context(), settings.Defaults())
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(s, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set key=value...",
			Short: "Change settings; setting countryName also sets its dial code",
			Example: `  dialer settings set countryName=Germany
  dialer settings set enabled=false showToast=false`,
			Args: cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := settings.NewFileStore(a.cfg.Settings.File, a.logger.Named("settings"))
				if err != nil {
					return err
				}
				s, err := store.Get(cmd.Context(), settings.Defaults())
				if err != nil {
					return err
				}
				if s, err = applyAssignments(s, args); err != nil {
					return err
				}
				if err := store.Save(cmd.Context(), s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", store.Path())
				return nil
			},
		},
	)
	return cmd
}

// applyAssignments applies key=value pairs in order. A catalog country
// carries its dial code unless dialCode is assigned too.
func applyAssignments(s settings.Settings, args []string) (settings.Settings, error) {
	dialCodeSet := false
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return s, fmt.Errorf("expected key=value, got %q", arg)
		}
		switch key {
		case settings.KeyCountryName:
			if !fill.IsValidCountryName(value) {
				return s, fmt.Errorf("%s: %w: %q", key, fill.ErrValidationFailure, value)
			}
			s.CountryName = value
			if c, ok := countries.Lookup(value); ok {
				s.CountryName = c.Name
				if !dialCodeSet {
					s.DialCode = c.DialCode
				}
			}
		case settings.KeyDialCode:
			s.DialCode = value
			dialCodeSet = true
		case settings.KeyEnabled, settings.KeyShowToast:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return s, fmt.Errorf("%s: %w", key, err)
			}
			if key == settings.KeyEnabled {
				s.Enabled = b
			} else {
				s.ShowToast = b
			}
		default:
			return s, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settings.Keys, ", "))
		}
	}
	return s, nil
}
