package cmd

import (
	"fmt"
	"strings"

	"adcrew/internal/capability"
	"adcrew/internal/crew"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/util"

	"github.com/spf13/cobra"
)

var mockSearch bool

func init() {
	rootCmd.AddCommand(toolCmd)
	toolCmd.Flags().BoolVar(&mockSearch, "mock", false, "use the mocked web search")
}

var toolCmd = &cobra.Command{
	Use:   "tool <name> <query>",
	Short: "Invoke one capability directly and print its result",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if mockSearch {
			cfg.Search.Mock = true
		}
		name, query := args[0], strings.Join(args[1:], " ")
		if name == capability.WebSearchName && !cfg.Search.Mock && cfg.Search.APIKey == "" {
			return apperrors.New(apperrors.CodeConfiguration, "SERPER_API_KEY is not set")
		}
		if name != capability.WebSearchName {
			// only the search tool needs credentials
			cfg.Search.Mock = true
		}
		tb, err := crew.NewToolbox(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer tb.Close()
		c, ok := tb.Registry.Get(name)
		if !ok {
			return apperrors.Newf(apperrors.CodeDefinition, "unknown tool %q (available: %s)",
				name, strings.Join(tb.Registry.Names(), ", "))
		}
		util.Info("[TOOL] %s → %s", c.Name(), query)
		out, err := c.Invoke(cmd.Context(), query)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}
