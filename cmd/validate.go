package cmd

import (
	"fmt"
	"strings"

	"adcrew/internal/config"
	"adcrew/internal/crew"
	"adcrew/internal/dag"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/executor"
	"adcrew/internal/generator"
	"adcrew/internal/pipeline"
	"adcrew/internal/util"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&actorsFile, "actors", "", "actors YAML file (default: bundled ad-analysis crew)")
	validateCmd.Flags().StringVarP(&tasksFile, "tasks", "f", "", "tasks YAML file (default: bundled ad-analysis tasks)")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check actor and task definitions and print the execution order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		actors, tasks, err := loadDefinitions(cfg)
		if err != nil {
			return err
		}
		if err := dag.ValidateOrder(tasks); err != nil {
			if d, derr := dag.NewDAG(tasks); derr == nil {
				if order, serr := dag.TopoSort(d); serr == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "suggested order: %s\n", strings.Join(order, ", "))
				}
			}
			return apperrors.Wrap(apperrors.CodeDefinition, err, "invalid task order")
		}
		// Definitions are checked against mocked tools so no credentials are needed.
		offline := *cfg
		offline.Provider = config.ProviderEcho
		offline.Search.Mock = true
		offline.Cache.Enabled = false
		tb, err := crew.NewToolbox(cmd.Context(), &offline)
		if err != nil {
			return err
		}
		defer tb.Close()
		bound, err := crew.Bind(actors, tb.Registry)
		if err != nil {
			return err
		}
		p, err := pipeline.New(tasks, bound, crew.NewExecutor(&offline, generator.Echo{}), executor.NewScriptedGate(),
			pipeline.Options{Policy: pipeline.Policy(cfg.Pipeline.Policy)})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, n := range p.Nodes() {
			t := n.Task()
			marker := ""
			if t.HumanInput {
				marker = " [human input]"
			}
			fmt.Fprintf(out, "%d. %s (%s)%s\n", n.Position()+1, t.ID, n.Actor().Role, marker)
			if len(t.DependsOn) > 0 {
				fmt.Fprintf(out, "   depends on: %s\n", strings.Join(t.DependsOn, ", "))
			}
			if len(n.Actor().Tools) > 0 {
				fmt.Fprintf(out, "   tools: %s\n", strings.Join(n.Actor().Tools, ", "))
			}
		}
		util.Success("%d tasks, %d actors: definitions are valid", len(tasks), len(actors))
		return nil
	},
}
