package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pagecomposer/pkg/cache"
	"github.com/matzehuels/pagecomposer/pkg/rest"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// openFileCache opens the on-disk cache, or returns nil when nothing has
// been cached yet.
func (c *CLI) openFileCache() (*cache.FileCache, error) {
	dir, err := c.Config.CacheDir()
	if err != nil {
		return nil, fmt.Errorf("get cache dir: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return cache.NewFileCache(dir)
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached page models, toolkits and documents",
		Long: `Clear cached page models, toolkits and documents.

Without --backend every entry is removed. With --backend only the entries
fetched from that backend are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openFileCache()
			if err != nil {
				return err
			}
			if fc == nil {
				printInfo("Cache is empty")
				return nil
			}
			defer fc.Close()

			var count int
			if backend != "" {
				client, err := rest.NewClient(backend)
				if err != nil {
					return err
				}
				count, err = fc.ClearScope(backendScope(client))
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries for %s", count, client.Base())
			} else {
				count, err = fc.Clear()
				if err != nil {
					return err
				}
				printSuccess("Cleared %d cached entries", count)
			}
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "only clear entries of this backend URL")

	return cmd
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached entries per backend and kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.openFileCache()
			if err != nil {
				return err
			}
			if fc == nil {
				printInfo("Cache is empty")
				return nil
			}
			stats, err := fc.Stats()
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				printInfo("Cache is empty")
				return nil
			}
			for _, st := range stats {
				var kinds []string
				for _, kind := range slices.Sorted(maps.Keys(st.Entries)) {
					kinds = append(kinds, fmt.Sprintf("%s=%d", kind, st.Entries[kind]))
				}
				printKeyValue(st.Scope, strings.Join(kinds, " "))
				printDetail("%d bytes, %d expired", st.Bytes, st.Expired)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.Config.CacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
