package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var BuildCmd = &cobra.Command{
	Use:          "build ./folder|file.theory",
	Short:        "Compile a theory to Go types and rules",
	Long:         "Compile a theory, writing <name>.go with its term types and <name>.dl with its rule program",
	RunE:         runBuild,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var (
	buildFlags   commonFlags
	buildOutPath *string
	buildPackage *string
)

func init() {
	buildFlags = addCommonFlags(BuildCmd)
	buildOutPath = BuildCmd.Flags().StringP("out", "o", ".", "output folder")
	buildPackage = BuildCmd.Flags().StringP("package", "p", "main", "package of the generated Go file")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args, buildFlags)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("out") {
		cfg.Out = *buildOutPath
	}
	if cmd.Flags().Changed("package") || cfg.Package == "" {
		cfg.Package = *buildPackage
	}

	th, err := loadTheory(cfg)
	if err != nil {
		return err
	}
	if err := failOnErrors(cmd, th); err != nil {
		return err
	}
	if err := th.WriteOutputs(cfg.Out); err != nil {
		return errors.Wrap(err, "could not write outputs")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s.go and %s.dl to %s\n", th.OutputName(), th.OutputName(), cfg.Out)
	return nil
}
