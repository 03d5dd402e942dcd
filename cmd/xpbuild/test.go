package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xpbuild/internal/pipeline"
	"xpbuild/internal/store"
)

var noHistory bool

var testCmd = &cobra.Command{
	Use:   "test [entry]",
	Short: "Build the experience and run its declared tests",
	Long: `Test builds the entry module, extracts its tools and declared tests,
and runs the suite sequentially against the extracted handlers.

Exit code 0 when every declared test passes (or none are declared);
exit code 1 when any test fails or the module could not be extracted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg.DependencySet(), cfg.Registry, logger)
		res, summary, err := p.VerifyFile(entryPath(cfg, args))
		if err != nil {
			// Extraction and evaluation failures abort the cycle: exit 1.
			return err
		}

		for _, r := range summary.Results {
			if r.Passed {
				fmt.Println(passStyle.Render("PASS " + r.Name))
			} else {
				fmt.Println(failStyle.Render(fmt.Sprintf("FAIL %s: %s", r.Name, r.Message)))
			}
		}
		fmt.Printf("%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total())

		if cfg.History.Enabled && !noHistory {
			if err := recordRun(cfg.History.Path, res, summary.Passed, summary.Failed); err != nil {
				logger.Warn("could not record run history: " + err.Error())
			}
		}

		if !summary.Ok() {
			return fmt.Errorf("%d test(s) failed", summary.Failed)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording this run")
}

func recordRun(path string, res *pipeline.BuildResult, passed, failed int) error {
	h, err := store.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()

	return h.Record(store.Run{
		BuildID:     res.ID,
		Entry:       res.Entry,
		ServerBytes: len(res.Server.Code),
		ClientBytes: len(res.Client.Code),
		Passed:      passed,
		Failed:      failed,
		Findings:    res.Findings,
		DurationMS:  res.Duration.Milliseconds(),
	})
}
