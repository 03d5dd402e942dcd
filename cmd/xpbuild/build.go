package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xpbuild/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build [entry]",
	Short: "Build the server and client artifacts",
	Long: `Build reads the entry source module, produces both artifacts and the
build manifest under the out directory, and prints the advisory validator
findings for the client artifact. Findings never fail the build; the
deployer decides severity.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := pipeline.New(cfg.DependencySet(), cfg.Registry, logger)
		res, err := p.BuildFile(entryPath(cfg, args))
		if err != nil {
			return err
		}

		if err := res.WriteTo(cfg.OutDir); err != nil {
			return err
		}

		fmt.Printf("build %s\n", res.ID)
		fmt.Printf("  server  %6d bytes\n", len(res.Server.Code))
		fmt.Printf("  client  %6d bytes\n", len(res.Client.Code))
		fmt.Printf("  tools   %v\n", res.Module.ToolNames())
		for _, f := range res.Findings {
			fmt.Println(findingStyle.Render("  finding: " + f))
		}
		fmt.Println(dimStyle.Render("  wrote " + cfg.OutDir + "/"))
		return nil
	},
}
