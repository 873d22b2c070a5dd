package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version information",
	Annotations: map[string]string{skipWorkspace: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sessionctl version %s\n", version.Current)

		checker := version.NewChecker(version.ReleasesURL, version.DefaultCachePath())
		rel, err := checker.Latest(ctxOf(cmd))
		if err != nil {
			fmt.Printf("Unable to check for updates: %v\n", err)
			return
		}
		_ = checker.Remember(rel.TagName)

		if version.IsNewer(rel.TagName, version.Current) {
			fmt.Printf("\n💡 Update available: %s → %s\n", version.Current, rel.TagName)
			fmt.Printf("   Download: %s\n", rel.HTMLURL)
		} else {
			fmt.Println("✅ You're running the latest version")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
