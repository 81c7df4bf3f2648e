package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seantiz/proofmarket/internal/config"
	"github.com/seantiz/proofmarket/internal/matchmaker"
)

// NewRootCmd builds the proofmarket command tree.
func NewRootCmd() *cobra.Command {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:          "proofmarket",
		Short:        "Marketplace matching zero-knowledge proof jobs with provers",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	_ = v.BindPFlag(config.KeyConfigFile, rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(
		serveCmd(v),
		strategiesCmd(),
	)
	return rootCmd
}

func strategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available prover ranking strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range matchmaker.DefaultRegistry().Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// bindFlag binds the named flag of cmd to a viper key.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(name))
}
