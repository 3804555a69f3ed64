package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/churchfinance/ledger-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and local data",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newClearCacheCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop every cached response",
		RunE:  runClearCache,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		return printJSON(os.Stdout, resolvedCfg)
	}

	return config.RenderEffective(resolvedCfg, os.Stdout)
}

func runClearCache(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		if a.cache == nil {
			statusf(flagQuiet, "The response cache is disabled.\n")
			return nil
		}

		if err := a.cache.Invalidate(""); err != nil {
			return err
		}

		statusf(flagQuiet, "Cache cleared.\n")

		return nil
	})
}
