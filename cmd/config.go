package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cottand/theoryc/backend"
	"github.com/cottand/theoryc/internal/log"
	"github.com/cottand/theoryc/theoryc"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no --config is given
const DefaultConfigFile = "theoryc.yaml"

// Config is a theoryc project file. Flags override its values.
type Config struct {
	// Theory is a .theory file, or a folder holding one
	Theory        string       `yaml:"theory"`
	Out           string       `yaml:"out"`
	Package       string       `yaml:"package"`
	LogLevel      int          `yaml:"logLevel"`
	Sections      []string     `yaml:"sections"`
	MaxIterations int          `yaml:"maxIterations"`
	Terms         []TermConfig `yaml:"terms"`
}

// TermConfig is a ground term to evaluate with `theoryc run`
type TermConfig struct {
	Category string `yaml:"category"`
	Term     string `yaml:"term"`
}

func defaultConfig() Config {
	return Config{
		Out:           ".",
		LogLevel:      int(slog.LevelError),
		MaxIterations: 1000,
	}
}

// LoadConfig reads a project file over the defaults
func LoadConfig(at string) (Config, error) {
	cfg := defaultConfig()
	content, err := os.ReadFile(at)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read config")
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "could not decode config %s", at)
	}
	// relative paths in the file are relative to the file
	base := filepath.Dir(at)
	if cfg.Theory != "" && !filepath.IsAbs(cfg.Theory) {
		cfg.Theory = filepath.Join(base, cfg.Theory)
	}
	if !filepath.IsAbs(cfg.Out) {
		cfg.Out = filepath.Join(base, cfg.Out)
	}
	return cfg, nil
}

// commonFlags are the flags every subcommand understands
type commonFlags struct {
	config   *string
	logLevel *int
	sections *[]string
}

func addCommonFlags(cmd *cobra.Command) commonFlags {
	return commonFlags{
		config:   cmd.Flags().StringP("config", "c", "", "project file, "+DefaultConfigFile+" in the working directory by default"),
		logLevel: cmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level"),
		sections: cmd.Flags().StringSlice("sections", nil, "sections to print debug logs of"),
	}
}

// resolveConfig merges the project file, the positional theory argument and the flags that were set
func resolveConfig(cmd *cobra.Command, args []string, common commonFlags) (Config, error) {
	cfg := defaultConfig()
	var err error
	switch {
	case *common.config != "":
		cfg, err = LoadConfig(*common.config)
	default:
		if _, statErr := os.Stat(DefaultConfigFile); statErr == nil {
			cfg, err = LoadConfig(DefaultConfigFile)
		}
	}
	if err != nil {
		return cfg, err
	}

	if len(args) > 0 {
		cfg.Theory = args[0]
	}
	if cfg.Theory == "" {
		return cfg, errors.New("no theory given, pass a path or set theory in " + DefaultConfigFile)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = *common.logLevel
	}
	if cmd.Flags().Changed("sections") {
		cfg.Sections = *common.sections
	}
	log.SetLevel(slog.Level(cfg.LogLevel))
	if len(cfg.Sections) > 0 {
		log.EnableSections(cfg.Sections...)
	}
	return cfg, nil
}

// loadTheory compiles the theory at cfg.Theory, which is a file or a folder
func loadTheory(cfg Config) (*theoryc.Theory, error) {
	target, err := filepath.Abs(cfg.Theory)
	if err != nil {
		return nil, errors.Wrap(err, "could not get absolute path of target")
	}
	stat, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrap(err, "could not stat target")
	}

	settings := theoryc.LoadSettings{}
	settings.Go = backend.Options{Package: cfg.Package}
	root := target
	if !stat.IsDir() {
		root = filepath.Dir(target)
		settings.File = filepath.Base(target)
	}
	th, err := theoryc.LoadTheory(os.DirFS(root), settings)
	if err != nil {
		return nil, errors.Wrap(err, "could not load theory")
	}
	return th, nil
}

// failOnErrors returns an error listing the diagnostics of th if one of them is an error
func failOnErrors(cmd *cobra.Command, th *theoryc.Theory) error {
	if !th.Diagnostics().HasError() {
		if len(th.Diagnostics().Warnings()) > 0 {
			cmd.PrintErr(th.FormatDiagnostics())
		}
		return nil
	}
	return errors.Errorf("errors found during compilation:\n%s", strings.TrimSuffix(th.FormatDiagnostics(), "\n"))
}
