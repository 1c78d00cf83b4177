package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adcrew/internal"
	"adcrew/internal/config"
	"adcrew/internal/crew"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/executor"
	"adcrew/internal/generator"
	"adcrew/internal/loader"
	"adcrew/internal/pipeline"
	"adcrew/internal/util"

	"github.com/spf13/cobra"
)

var (
	actorsFile   string
	tasksFile    string
	answers      []string
	policy       string
	humanTimeout time.Duration
	allowEmpty   bool
	dryRun       bool
	runDir       string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&actorsFile, "actors", "", "actors YAML file (default: bundled ad-analysis crew)")
	runCmd.Flags().StringVarP(&tasksFile, "tasks", "f", "", "tasks YAML file (default: bundled ad-analysis tasks)")
	runCmd.Flags().StringArrayVar(&answers, "answer", nil, "answer for a human-input task, in order; repeatable")
	runCmd.Flags().StringVar(&policy, "policy", "", "failure policy: strict or lenient")
	runCmd.Flags().DurationVar(&humanTimeout, "human-timeout", 0, "give up waiting for human input after this long")
	runCmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "accept an empty human response")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "use the echo backend and mocked search; no credentials needed")
	runCmd.Flags().StringVar(&runDir, "run-dir", "", "write outputs and run.yaml under this directory")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the crew's tasks in order and print the final output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		actors, tasks, err := loadDefinitions(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := runCrew(ctx, cfg, actors, tasks)
		if err != nil {
			return err
		}
		if out.Status == pipeline.OutputPartial {
			util.Warn("run %s finished partially; printing the latest completed output", out.RunID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.Text)
		return nil
	},
}

func runCrew(ctx context.Context, cfg *config.Config, actors []internal.Actor, tasks []internal.Task) (*pipeline.Output, error) {
	tb, err := crew.NewToolbox(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer tb.Close()
	bound, err := crew.Bind(actors, tb.Registry)
	if err != nil {
		return nil, err
	}
	gen, err := generator.New(cfg)
	if err != nil {
		return nil, err
	}

	var gate executor.Gate
	if len(answers) > 0 {
		gate = executor.NewScriptedGate(answers...)
	} else {
		gate = executor.NewConsoleGate(os.Stdin, os.Stdout)
	}

	runID := util.NewUUID()
	opts := pipeline.Options{
		Policy:               pipeline.Policy(cfg.Pipeline.Policy),
		HumanTimeout:         cfg.Pipeline.HumanTimeout,
		AllowEmptyHumanInput: cfg.Pipeline.AllowEmptyHumanInput,
		RunID:                runID,
	}
	if cfg.Pipeline.RunDir != "" {
		rep, err := pipeline.NewReporter(cfg.Pipeline.RunDir, runID)
		if err != nil {
			return nil, err
		}
		if err := util.SetLogFile(rep.LogPath()); err != nil {
			return nil, err
		}
		defer util.CloseLogFile()
		util.Info("run directory: %s", rep.Dir())
		opts.Reporter = rep
	}

	p, err := pipeline.New(tasks, bound, crew.NewExecutor(cfg, gen), gate, opts)
	if err != nil {
		return nil, err
	}
	util.Success("crew ready: %d actors, %d tasks", len(bound), len(tasks))
	return p.Run(ctx)
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Pipeline.Policy = policy
	}
	if flags.Changed("human-timeout") {
		cfg.Pipeline.HumanTimeout = humanTimeout
	}
	if flags.Changed("allow-empty") {
		cfg.Pipeline.AllowEmptyHumanInput = allowEmpty
	}
	if flags.Changed("run-dir") {
		cfg.Pipeline.RunDir = runDir
	}
	if flags.Changed("actors") {
		cfg.Pipeline.ActorsFile = actorsFile
	}
	if flags.Changed("tasks") {
		cfg.Pipeline.TasksFile = tasksFile
	}
	if dryRun {
		cfg.Provider = config.ProviderEcho
		cfg.Search.Mock = true
	}
	return cfg, nil
}

func loadDefinitions(cfg *config.Config) ([]internal.Actor, []internal.Task, error) {
	var (
		actors []internal.Actor
		tasks  []internal.Task
		err    error
	)
	if cfg.Pipeline.ActorsFile != "" {
		actors, err = loader.LoadActors(cfg.Pipeline.ActorsFile)
	} else {
		actors, err = loader.DefaultActors()
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeDefinition, err, "load actors")
	}
	if cfg.Pipeline.TasksFile != "" {
		tasks, err = loader.LoadTasks(cfg.Pipeline.TasksFile)
	} else {
		tasks, err = loader.DefaultTasks()
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeDefinition, err, "load tasks")
	}
	return actors, tasks, nil
}
