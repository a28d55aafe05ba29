package main

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theplant/pagequery/internal/config"
	"github.com/theplant/pagequery/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and resource policies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		policies, err := model.LoadPolicies(cfg.PolicyFile)
		if err != nil {
			return err
		}
		if err := policies.Validate(); err != nil {
			return err
		}

		names := lo.Keys(policies)
		sort.Strings(names)
		for _, name := range names {
			p := policies[name]
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d filterable, %d searchable, %d sortable\n",
				name, len(p.Filterable), len(p.Searchable), len(p.Sortable))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
