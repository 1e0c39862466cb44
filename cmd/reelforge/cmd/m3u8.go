package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/progressui"
)

var (
	m3u8Output string
	m3u8CLimit int
)

var m3u8Cmd = &cobra.Command{
	Use:   "m3u8 <url>",
	Short: "Download a direct M3U8 playlist URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		output := m3u8Output
		if output == "" {
			output = "output.mp4"
		}

		var observer progressui.ProgressObserver = progressui.NewBar()
		if progressui.IsTTY() {
			observer = progressui.NewTUI()
		}

		j := job.New(job.Config{
			URI:      args[0],
			SaveFile: output,
			CacheDir: cacheDirFlag,
			CLimit:   m3u8CLimit,
			Observer: observer,
		})
		if err := j.Run(c.Context()); err != nil {
			return err
		}

		fmt.Printf("saved to %s\n", output)
		return nil
	},
}

func init() {
	m3u8Cmd.Flags().StringVar(&m3u8Output, "output", "", "output file path (default output.mp4)")
	m3u8Cmd.Flags().IntVar(&m3u8CLimit, "climit", 32, "maximum concurrent segment downloads")
}
