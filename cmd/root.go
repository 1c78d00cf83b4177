package cmd

import (
	"errors"

	apperrors "adcrew/internal/errors"
	"adcrew/internal/pipeline"
	"adcrew/internal/util"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "adcrew",
	Short:         "Run a sequential crew of ad-analysis agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./adcrew.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
}

// Execute runs the CLI and reports a failure the way a user can act on it.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	var perr *pipeline.PipelineError
	switch {
	case errors.Is(err, apperrors.ErrConfiguration):
		util.Fail("configuration error: %v", err)
		util.Info("Make sure API_KEY, OPENAI_MODEL_NAME and SERPER_API_KEY are set in the environment or in .env (or pass --dry-run).")
	case errors.As(err, &perr):
		util.Fail("run %s stopped at %s (position %d, %s): %v", perr.RunID, perr.TaskID, perr.Position, perr.Status, errors.Unwrap(perr.Err))
		if len(perr.Partial) > 0 {
			util.Info("%d task output(s) completed before the failure", len(perr.Partial))
		}
	case errors.Is(err, apperrors.ErrDefinition):
		util.Fail("invalid crew definition: %v", err)
	default:
		util.Fail("unexpected error: %v", err)
	}
	return err
}
