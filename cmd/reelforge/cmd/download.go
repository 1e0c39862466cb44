package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/progressui"
	"github.com/reelforge/reelforge/internal/resolver"
)

var (
	downloadSrc      string
	downloadIndex    int
	downloadSaveDir  string
	downloadPrint    bool
	downloadCLimit   int
	downloadNoCache  bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Resolve a catalog id to a stream and download it",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		manager := newManager()
		if err := validateSrc(manager, downloadSrc); err != nil {
			return err
		}
		if downloadSrc == "" {
			return fmt.Errorf("--src is required for download")
		}

		provider, err := manager.Get(downloadSrc)
		if err != nil {
			return err
		}

		episodes, err := provider.Episodes(c.Context(), args[0])
		if err != nil {
			return err
		}
		if len(episodes) == 0 {
			return fmt.Errorf("no episodes found for %q", args[0])
		}

		// --index is 1-based per spec.md §6.1; convert to a zero-based
		// slice position only at the point of use.
		chosen := downloadIndex - 1
		if !c.Flags().Changed("index") && len(episodes) > 1 {
			chosen, err = pickEpisode(episodes)
			if err != nil {
				return err
			}
		}
		if chosen < 0 || chosen >= len(episodes) {
			return fmt.Errorf("--index %d out of range (1-%d)", chosen+1, len(episodes))
		}
		episode := episodes[chosen]

		streamURL, _, err := provider.StreamURL(c.Context(), episode.ID)
		if err != nil {
			return err
		}

		if downloadPrint {
			fmt.Println(streamURL)
			return nil
		}

		saveDir := downloadSaveDir
		if saveDir == "" {
			saveDir = sanitizeDirName(args[0])
		}
		output := filepath.Join(saveDir, fmt.Sprintf("episode-%s.mp4", episode.Number))

		var observer progressui.ProgressObserver = progressui.NewBar()
		if progressui.IsTTY() {
			observer = progressui.NewTUI()
		}

		j := job.New(job.Config{
			URI:         streamURL,
			SaveFile:    output,
			CacheDir:    cacheDirFlag,
			CLimit:      downloadCLimit,
			IgnoreCache: downloadNoCache,
			Observer:    observer,
		})
		if err := j.Run(c.Context()); err != nil {
			return err
		}

		fmt.Printf("saved to %s\n", output)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadSrc, "src", "", "provider to resolve the id against")
	downloadCmd.Flags().IntVar(&downloadIndex, "index", 1, "episode group to download (1-based)")
	downloadCmd.Flags().StringVar(&downloadSaveDir, "save-dir", "", "output directory (default: derived from id)")
	downloadCmd.Flags().BoolVar(&downloadPrint, "print", false, "print the resolved stream URL instead of downloading")
	downloadCmd.Flags().IntVar(&downloadCLimit, "climit", 32, "maximum concurrent segment downloads")
	downloadCmd.Flags().BoolVar(&downloadNoCache, "nocache", false, "bypass the on-disk response cache")
}

func sanitizeDirName(id string) string {
	return filepath.Base(filepath.Clean(id))
}

// pickEpisode prompts the user to choose among several episodes when
// --index was not given explicitly.
func pickEpisode(episodes []resolver.Episode) (int, error) {
	items := make([]string, len(episodes))
	for i, ep := range episodes {
		title := ep.Title
		if title == "" {
			title = fmt.Sprintf("episode %s", ep.Number)
		}
		items[i] = fmt.Sprintf("%s — %s", ep.Number, title)
	}

	prompt := promptui.Select{
		Label: "Select an episode",
		Items: items,
	}
	index, _, err := prompt.Run()
	if err != nil {
		return -1, err
	}
	return index, nil
}
