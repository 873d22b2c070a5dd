package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	instancesRegion string
	instancesAll    bool
)

var instancesCmd = &cobra.Command{
	Use:   "instances [session]",
	Short: "List EC2 instances reachable with a session's credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := current.find(argOr(args), isAWS)
		if err != nil {
			return err
		}
		creds, err := current.manager.GenerateCredentials(ctxOf(cmd), sess.ID)
		if err != nil {
			return err
		}

		region := instancesRegion
		if region == "" {
			region = sess.Region
		}
		instances, err := current.aws.ListInstances(ctxOf(cmd), region, creds, instancesAll)
		if err != nil {
			return err
		}
		if len(instances) == 0 {
			fmt.Printf("📭 No instances found in %s.\n", region)
			return nil
		}

		header := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%-21s %-32s %-16s %-10s %s\n", header("INSTANCE"), header("NAME"), header("PRIVATE IP"), header("PLATFORM"), header("STATE"))
		fmt.Println(strings.Repeat("-", 96))
		running := color.New(color.FgGreen).SprintFunc()
		other := color.New(color.FgYellow).SprintFunc()
		for _, in := range instances {
			state := other(in.State)
			if in.State == "running" {
				state = running(in.State)
			}
			fmt.Printf("%-21s %-32s %-16s %-10s %s\n", in.ID, truncateText(in.Name, 32), in.PrivateIP, in.Platform, state)
		}
		return nil
	},
}

func init() {
	instancesCmd.Flags().StringVar(&instancesRegion, "region", "", "Region to list (defaults to the session's region)")
	instancesCmd.Flags().BoolVar(&instancesAll, "all", false, "Include instances that are not running")
	rootCmd.AddCommand(instancesCmd)
}
