package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xpbuild/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <artifact>",
	Short: "Run the advisory pre-flight checks on a client artifact",
	Long: `Validate runs the static checks (syntax, dangling alias references)
against an already-built client artifact. Findings are informational; the
command fails only when the artifact cannot be read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		findings := validate.New().Check(string(data))
		if len(findings) == 0 {
			fmt.Println(passStyle.Render("no findings"))
			return nil
		}
		for _, f := range findings {
			fmt.Println(findingStyle.Render("finding: " + f))
		}
		return nil
	},
}
