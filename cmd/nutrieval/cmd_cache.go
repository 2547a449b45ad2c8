package main

import (
	"fmt"
	"path/filepath"

	"github.com/openfoodfacts/nutrieval/internal/cache"
	"github.com/openfoodfacts/nutrieval/internal/projectconfig"
	"github.com/spf13/cobra"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the prediction cache",
		Long: `Manage the prediction cache.

The cache stores successful Robotoff predictions so repeated evaluations of
the same products do not query the services again. Entries are keyed by the
Robotoff endpoint, the image keys and the product code.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the prediction cache",
		Long: `Clear all cached predictions.

The next evaluation run will query the prediction services for every product.`,
		RunE: cacheClearE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory to clear (default: cache.dir from .nutrieval.yaml)")

	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	dir := cacheDir
	if dir == "" {
		cfg, err := projectconfig.Load(".")
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		dir = cfg.Cache.Dir
	}

	// Resolve to absolute path
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
	return nil
}
