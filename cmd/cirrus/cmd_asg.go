package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

var (
	asgNames []string
	asgTags  map[string]string
)

var asgCmd = &cobra.Command{
	Use:   "asg",
	Short: "Query auto scaling groups",
}

var asgSubscribedCmd = &cobra.Command{
	Use:   "subscribed",
	Short: "Report whether the account can use auto scaling",
	Args:  cobra.NoArgs,
	RunE: withScaling(func(ctx context.Context, cmd *cobra.Command, asg cloud.AutoScalingSupport, _ []string) error {
		ok, err := asg.IsSubscribed(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
		return err
	}),
}

var asgGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Show one scaling group",
	Args:  cobra.ExactArgs(1),
	RunE: withScaling(func(ctx context.Context, cmd *cobra.Command, asg cloud.AutoScalingSupport, args []string) error {
		g, err := asg.GetScalingGroup(ctx, args[0])
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("scaling group %s not found", args[0])
		}
		return render(cmd.OutOrStdout(), g, groupTable([]cloud.ScalingGroup{*g}))
	}),
}

var asgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scaling groups",
	Args:  cobra.NoArgs,
	RunE: withScaling(func(ctx context.Context, cmd *cobra.Command, asg cloud.AutoScalingSupport, _ []string) error {
		opts := cloud.ScalingGroupFilterOptions{}.WithNames(asgNames...)
		for k, v := range asgTags {
			opts = opts.WithTag(k, v)
		}
		groups, err := asg.ListScalingGroups(ctx, opts)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), groups, groupTable(groups))
	}),
}

var asgStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List which scaling groups are active",
	Args:  cobra.NoArgs,
	RunE: withScaling(func(ctx context.Context, cmd *cobra.Command, asg cloud.AutoScalingSupport, _ []string) error {
		statuses, err := asg.ListScalingGroupStatus(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), statuses, statusTable(statuses))
	}),
}

func init() {
	rootCmd.AddCommand(asgCmd)
	asgCmd.AddCommand(asgSubscribedCmd, asgGetCmd, asgListCmd, asgStatusCmd)

	asgListCmd.Flags().StringSliceVar(&asgNames, "name", nil, "Group names")
	asgListCmd.Flags().StringToStringVar(&asgTags, "tag", nil, "Tag constraints, key=value")
}

func withScaling(run func(ctx context.Context, cmd *cobra.Command, asg cloud.AutoScalingSupport, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := openProvider(cmd.Context(), nil)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cmd, p.AutoScaling(), args)
	}
}
