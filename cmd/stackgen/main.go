// main.go bootstraps stackgen: it builds the root Cobra command, binds
// environment overrides, and maps pipeline failures to exit codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/stackgen/internal/logging"
	"github.com/example/stackgen/pkg/orchestrator"
)

// Exit codes, part of the CLI contract.
const (
	exitOK               = 0
	exitRenderFailed     = 1
	exitVarsMissing      = 2
	exitTemplatesMissing = 3
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	bindViper(rootCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

type options struct {
	base        string
	varsDir     string
	templates   string
	output      string
	ext         string
	jobs        int
	logLevel    string
	interactive bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "stackgen",
		Short: "Render Jinja-style templates once per stack of a variables hierarchy",
		Long: `stackgen walks a nested directory of YAML variables files, merges them
from the hierarchy root down to each deepest directory (a "stack"), and
renders every applicable template once per stack into a mirrored output
tree. Deeper variables override shallower ones; a stack's resolved
configuration may pin the template set with "templates:" or drop entries
with "exclude:".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.base, "base", "b", "", "base directory prepended to relative paths")
	flags.StringVarP(&opts.varsDir, "vars", "v", "vars", "variables directory")
	flags.StringVarP(&opts.templates, "templates", "p", "templates", "templates directory")
	flags.StringVarP(&opts.output, "output", "o", "output", "output directory")
	flags.StringVar(&opts.ext, "extension", ".yaml", "extension appended to names in templates:/exclude: lists")
	flags.IntVarP(&opts.jobs, "jobs", "j", 1, "number of stacks rendered concurrently")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.interactive, "interactive", "i", false, "pick the stacks to render interactively")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	logger, err := logging.New(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	varsDir, err := resolvePath(opts.base, opts.varsDir)
	if err != nil {
		return err
	}
	templatesDir, err := resolvePath(opts.base, opts.templates)
	if err != nil {
		return err
	}
	outputDir, err := resolvePath(opts.base, opts.output)
	if err != nil {
		return err
	}

	runOptions := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithExtension(opts.ext),
		orchestrator.WithJobs(opts.jobs),
	}
	if opts.interactive {
		runOptions = append(runOptions, orchestrator.WithStackFilter(promptStacks))
	}

	o := orchestrator.New(runOptions...)
	return o.Run(ctx, orchestrator.Request{
		VarsDir:      varsDir,
		TemplatesDir: templatesDir,
		OutputDir:    outputDir,
	})
}

// promptStacks lets the user narrow the discovered stacks before rendering.
func promptStacks(stacks []string) ([]string, error) {
	if len(stacks) == 0 {
		return stacks, nil
	}
	var chosen []string
	prompt := &survey.MultiSelect{
		Message: "Stacks to render:",
		Options: stacks,
		Default: stacks,
	}
	if err := survey.AskOne(prompt, &chosen); err != nil {
		return nil, err
	}
	return chosen, nil
}

// resolvePath expands a leading ~ and anchors relative paths at base when
// one was given.
func resolvePath(base, path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	if base == "" || filepath.IsAbs(expanded) {
		return expanded, nil
	}
	expandedBase, err := homedir.Expand(base)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", base, err)
	}
	return filepath.Join(expandedBase, expanded), nil
}

// bindViper lets STACKGEN_* environment variables and an optional config
// file (STACKGEN_CONFIG) supply defaults for any flag the command line left
// untouched.
func bindViper(cmd *cobra.Command) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("STACKGEN")
	v.AutomaticEnv()
	configFile := os.Getenv("STACKGEN_CONFIG")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	cobra.OnInitialize(func() {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			cobra.CheckErr(err)
		}
		if configFile != "" {
			if err := v.ReadInConfig(); err != nil {
				cobra.CheckErr(err)
			}
		}
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) {
				return
			}
			if val := fmt.Sprintf("%v", v.Get(f.Name)); val != "" {
				_ = f.Value.Set(val)
			}
		})
	})
}

// exitCode maps pipeline failures to the documented process exit codes.
func exitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var missing *orchestrator.MissingDirError
	if errors.As(err, &missing) {
		switch missing.Input {
		case orchestrator.InputVars:
			return exitVarsMissing
		case orchestrator.InputTemplates:
			return exitTemplatesMissing
		}
	}
	return exitRenderFailed
}
