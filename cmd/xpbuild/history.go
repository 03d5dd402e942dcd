package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xpbuild/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build/test runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		h, err := store.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer h.Close()

		runs, err := h.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println(dimStyle.Render("no recorded runs"))
			return nil
		}

		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  %d passed, %d failed  (%dms)",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.Entry, r.Passed, r.Failed, r.DurationMS)
			if r.Failed > 0 {
				fmt.Println(failStyle.Render(line))
			} else {
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max runs to list")
}
