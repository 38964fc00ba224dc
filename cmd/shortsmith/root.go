package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFlag string

	ctx := newCommandContext(&configFlag, &envFlag)

	rootCmd := &cobra.Command{
		Use:           "shortsmith",
		Short:         "Produce, render, and publish scripted short videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.loadEnv(); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", ".env", "Dotenv file loaded before configuration (ignored when missing)")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newProduceCommand(ctx))
	rootCmd.AddCommand(newScriptsCommand(ctx))
	rootCmd.AddCommand(newOutputsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
