package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"character-quiz/internal/app"
	"character-quiz/internal/config"
	"character-quiz/internal/domain"
	"character-quiz/internal/service"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "quiz",
		Short:         "Character questionnaire in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(playCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(traitsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type playOptions struct {
	seed      uint64
	length    int
	timeLimit time.Duration
	catalog   string
	rules     string
	verbose   bool
}

func playCmd() *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Answer a full session and print the character report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("seed") {
				cfg.RandomSeed = opts.seed
			}
			if flags.Changed("length") {
				cfg.SessionLength = opts.length
			}
			if flags.Changed("time-limit") {
				cfg.SessionTimeLimit = opts.timeLimit
			}
			if flags.Changed("catalog") {
				cfg.CatalogPath = opts.catalog
			}
			if flags.Changed("rules") {
				cfg.RulesPath = opts.rules
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := zap.NewNop()
			if opts.verbose {
				logger, _ = zap.NewDevelopment()
			}
			defer logger.Sync()

			components, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), components.Engine, components.Classifier, cfg.SessionTimeLimit)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed for scenario order (0 = clock)")
	cmd.Flags().IntVar(&opts.length, "length", service.DefaultSessionLength, "questions per session")
	cmd.Flags().DurationVar(&opts.timeLimit, "time-limit", 90*time.Second, "session countdown (0 = none)")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "scenario catalog file (.json, .yaml)")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "classifier rules file (.yaml)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var rulesPath string
	cmd := &cobra.Command{
		Use:   "analyze trait=score [trait=score...]",
		Short: "Classify an adjusted score vector",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := parseScores(args)
			if err != nil {
				return err
			}
			rules := service.DefaultClassifierRules()
			if rulesPath != "" {
				if rules, err = service.LoadClassifierRules(rulesPath); err != nil {
					return err
				}
			}
			classifier, err := service.NewProfileClassifier(domain.DefaultTraitRegistry(), rules)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), classifier.Analyze(scores).Describe())
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesPath, "rules", "", "classifier rules file (.yaml)")
	return cmd
}

func traitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "traits",
		Short: "List the registered traits",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, def := range domain.DefaultTraitRegistry().Definitions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", def.Key, def.Name)
			}
		},
	}
}

// parseScores lee pares trait=score; una clave repetida es un error.
func parseScores(args []string) (domain.TraitVector, error) {
	scores := make(domain.TraitVector, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected trait=score, got %q", arg)
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("score for %s: %w", key, err)
		}
		if _, dup := scores[key]; dup {
			return nil, fmt.Errorf("trait %s given twice", key)
		}
		scores[key] = value
	}
	return scores, nil
}
