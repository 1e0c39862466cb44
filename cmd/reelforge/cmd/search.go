package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchSrc     string
	searchAll     bool
	searchNoCache bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search a catalog provider for titles matching keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		manager := newManager()
		if err := validateSrc(manager, searchSrc); err != nil {
			return err
		}

		entries, err := manager.Search(c.Context(), args[0], searchSrc)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if searchAll && e.CoverURL != "" {
				fmt.Printf("[%s] %s  (id=%s, cover=%s)\n", e.Source, e.Title, e.ID, e.CoverURL)
			} else {
				fmt.Printf("[%s] %s  (id=%s)\n", e.Source, e.Title, e.ID)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchSrc, "src", "", "restrict search to a single provider")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "include extra metadata (cover URL) in results")
	searchCmd.Flags().BoolVar(&searchNoCache, "nocache", false, "accepted for symmetry with download; search does not use the response cache")
}
