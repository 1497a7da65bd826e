package cmd

import (
	"fmt"
	"strings"

	"github.com/cottand/theoryc/engine"
	"github.com/cottand/theoryc/theoryc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var RunCmd = &cobra.Command{
	Use:   "run [./folder|file.theory]",
	Short: "Evaluate the rules of a theory over ground terms",
	Long: "Evaluate the rules of a theory to their fixpoint, starting from the terms given with --term " +
		"or in the project file, and print what each term rewrites to",
	Example:      `theoryc run rho.theory -t 'Proc=(PPar {(PInput a x (PDrop x)), (POutput a PZero)})'`,
	RunE:         runRun,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
}

var (
	runFlags         commonFlags
	runTerms         *[]string
	runMaxIterations *int
)

func init() {
	runFlags = addCommonFlags(RunCmd)
	runTerms = RunCmd.Flags().StringArrayP("term", "t", nil, "ground term to evaluate, as Category=term")
	runMaxIterations = RunCmd.Flags().Int("max-iterations", 1000, "maximum number of rounds, 0 for no limit")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args, runFlags)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = *runMaxIterations
	}
	for _, t := range *runTerms {
		category, src, ok := strings.Cut(t, "=")
		if !ok {
			return errors.Errorf("term %q must be given as Category=term", t)
		}
		cfg.Terms = append(cfg.Terms, TermConfig{Category: strings.TrimSpace(category), Term: src})
	}
	if len(cfg.Terms) == 0 {
		return errors.New("no terms to evaluate")
	}

	th, err := loadTheory(cfg)
	if err != nil {
		return err
	}
	if err := failOnErrors(cmd, th); err != nil {
		return err
	}

	grounds := make([]theoryc.Ground, 0, len(cfg.Terms))
	for _, t := range cfg.Terms {
		g, err := th.Term(t.Category, t.Term)
		if err != nil {
			return err
		}
		grounds = append(grounds, g)
	}
	en, err := th.Evaluate(cmd.Context(), engine.Options{MaxIterations: cfg.MaxIterations}, grounds...)
	if err != nil {
		return errors.Wrap(err, "evaluation failed")
	}

	out := cmd.OutOrStdout()
	for _, g := range grounds {
		successors, err := en.Successors(g.Category, g.Value)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, g.Value.String())
		if len(successors) == 0 {
			_, _ = fmt.Fprintln(out, "  (normal form)")
		}
		for _, s := range successors {
			_, _ = fmt.Fprintf(out, "  => %s\n", s.String())
		}
	}
	_, _ = fmt.Fprintf(out, "%d rounds, %d facts\n", en.Iterations(), totalFacts(en.Size()))
	return nil
}

func totalFacts(sizes map[string]int) int {
	total := 0
	for _, n := range sizes {
		total += n
	}
	return total
}
