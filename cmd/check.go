package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var CheckCmd = &cobra.Command{
	Use:          "check ./folder|file.theory",
	Short:        "Report every error and warning of a theory",
	RunE:         runCheck,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var checkFlags commonFlags

func init() {
	checkFlags = addCommonFlags(CheckCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args, checkFlags)
	if err != nil {
		return err
	}
	th, err := loadTheory(cfg)
	if err != nil {
		return err
	}
	diagnostics := th.Diagnostics()
	_, _ = fmt.Fprint(cmd.OutOrStdout(), th.FormatDiagnostics())
	if diagnostics.HasError() {
		return errors.Errorf("%d errors", len(diagnostics.Fatal()))
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d warnings\n", th.Name(), len(diagnostics.Warnings()))
	return nil
}
