// Package cmd implements the reelforge CLI commands.
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/resolver"
	"github.com/reelforge/reelforge/internal/resolver/providers"
	"github.com/reelforge/reelforge/internal/xlog"
)

var (
	debugFlag    bool
	cacheDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "reelforge",
	Short: "Resolve, download, and assemble HLS video streams",
	Long: `reelforge resolves a direct M3U8 URL or a (source, id) catalog
reference, downloads the stream's segments with bounded concurrency,
decrypts AES-128 protected segments, and assembles the result into a
single media file, transcoding to MP4 via ffmpeg when requested.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		envDebug, _ := strconv.ParseBool(os.Getenv("REELFORGE_DEBUG"))
		xlog.SetDebug(debugFlag || envDebug)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", ".cache", "response and segment cache directory")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(m3u8Cmd)
}

// newManager builds a resolver.Manager with every provider this build
// supports registered under its --src identifier.
func newManager() *resolver.Manager {
	requestor := httpx.New(0, 3)
	manager := resolver.NewManager()
	manager.Register(providers.NewAnimefire(requestor))
	manager.Register(providers.NewAllAnime(requestor))
	return manager
}

func validateSrc(manager *resolver.Manager, src string) error {
	if src == "" {
		return nil
	}
	if _, err := manager.Get(src); err != nil {
		return fmt.Errorf("--src must be one of %v: %w", manager.Names(), err)
	}
	return nil
}
