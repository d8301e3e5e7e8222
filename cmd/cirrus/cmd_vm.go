package main

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

var (
	vmListIDs        []string
	vmListStates     []string
	vmListLifecycles []string
	vmListTags       map[string]string
	vmListVlan       string
	vmListZone       string
	vmListSpot       string
	vmListName       string

	vmHealthIDs      []string
	vmHealthStatuses []string

	vmStopForce bool
)

var vmCmd = &cobra.Command{
	Use:     "vm",
	Aliases: []string{"vms"},
	Short:   "Query and manage virtual machines",
}

var vmGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one virtual machine",
	Args:  cobra.ExactArgs(1),
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
		vm, err := vms.GetVirtualMachine(ctx, args[0])
		if err != nil {
			return err
		}
		if vm == nil {
			return fmt.Errorf("virtual machine %s not found", args[0])
		}
		return render(cmd.OutOrStdout(), vm, vmTable([]cloud.VirtualMachine{*vm}))
	}),
}

var vmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List virtual machines",
	Example: `  cirrus vm list --state running --tag env=prod
  cirrus vm list --name '^web-' -o json`,
	Args: cobra.NoArgs,
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, _ []string) error {
		opts, err := vmListOptions()
		if err != nil {
			return err
		}
		list, err := vms.ListVirtualMachines(ctx, opts)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), list, vmTable(list))
	}),
}

var vmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the state of every virtual machine",
	Args:  cobra.NoArgs,
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, _ []string) error {
		statuses, err := vms.ListVirtualMachineStatus(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), statuses, statusTable(statuses))
	}),
}

var vmHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show host and guest health checks",
	Args:  cobra.NoArgs,
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, _ []string) error {
		opts := cloud.VmStatusFilterOptions{}.WithVmIDs(vmHealthIDs...)
		for _, s := range vmHealthStatuses {
			opts = opts.WithStatuses(cloud.VmStatus(s))
		}
		statuses, err := vms.GetVMStatus(ctx, opts)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), statuses, vmStatusTable(statuses))
	}),
}

var vmFirewallsCmd = &cobra.Command{
	Use:   "firewalls ID",
	Short: "List the security groups of a virtual machine",
	Args:  cobra.ExactArgs(1),
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
		ids, err := vms.ListFirewalls(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), ids, listTable("FIREWALL", ids))
	}),
}

var vmResizeCmd = &cobra.Command{
	Use:   "resize ID PRODUCT",
	Short: "Change the instance type of a stopped virtual machine",
	Args:  cobra.ExactArgs(2),
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
		vm, err := vms.AlterVirtualMachineProduct(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return renderRefreshed(cmd, args[0], vm)
	}),
}

var vmSetFirewallsCmd = &cobra.Command{
	Use:   "set-firewalls ID FIREWALL...",
	Short: "Replace the security groups of a virtual machine",
	Args:  cobra.MinimumNArgs(2),
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
		vm, err := vms.AlterVirtualMachineFirewalls(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		return renderRefreshed(cmd, args[0], vm)
	}),
}

var vmStopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a virtual machine",
	Args:  cobra.ExactArgs(1),
	RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
		if err := vms.Stop(ctx, args[0], vmStopForce); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stop requested for %s\n", args[0])
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(vmCmd)

	vmCmd.AddCommand(vmGetCmd, vmListCmd, vmStatusCmd, vmHealthCmd, vmFirewallsCmd)
	vmCmd.AddCommand(
		vmTextCmd("password", "Show the encrypted administrator password", cloud.VirtualMachineSupport.GetPassword),
		vmTextCmd("userdata", "Show the decoded user data", cloud.VirtualMachineSupport.GetUserData),
		vmTextCmd("console", "Show the decoded console output", cloud.VirtualMachineSupport.GetConsoleOutput),
	)
	vmCmd.AddCommand(vmResizeCmd, vmSetFirewallsCmd, vmStopCmd)
	vmCmd.AddCommand(
		vmActionCmd("start", "Start a virtual machine", cloud.VirtualMachineSupport.Start),
		vmActionCmd("reboot", "Reboot a virtual machine", cloud.VirtualMachineSupport.Reboot),
		vmActionCmd("terminate", "Terminate a virtual machine", cloud.VirtualMachineSupport.Terminate),
		vmActionCmd("monitor", "Enable detailed monitoring", cloud.VirtualMachineSupport.EnableAnalytics),
		vmActionCmd("unmonitor", "Disable detailed monitoring", cloud.VirtualMachineSupport.DisableAnalytics),
	)

	f := vmListCmd.Flags()
	f.StringSliceVar(&vmListIDs, "id", nil, "Instance ids")
	f.StringSliceVar(&vmListStates, "state", nil, "States (pending, running, rebooting, stopping, stopped, terminated)")
	f.StringSliceVar(&vmListLifecycles, "lifecycle", nil, "Lifecycles (normal, spot, scheduled)")
	f.StringToStringVar(&vmListTags, "tag", nil, "Tag constraints, key=value")
	f.StringVar(&vmListVlan, "vlan", "", "VPC id")
	f.StringVar(&vmListZone, "zone", "", "Availability zone")
	f.StringVar(&vmListSpot, "spot-request", "", "Spot instance request id")
	f.StringVar(&vmListName, "name", "", "Regular expression matched against the name")

	vmHealthCmd.Flags().StringSliceVar(&vmHealthIDs, "id", nil, "Instance ids")
	vmHealthCmd.Flags().StringSliceVar(&vmHealthStatuses, "status", nil, "Health statuses (ok, impaired, insufficient-data, not-applicable, initializing)")

	vmStopCmd.Flags().BoolVar(&vmStopForce, "force", false, "Force the stop without a clean shutdown")
}

// vmRunE is a subcommand body that works on the virtual machine surface.
type vmRunE func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error

func withVMs(run vmRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := openProvider(cmd.Context(), nil)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cmd, p.VirtualMachines(), args)
	}
}

func vmTextCmd(use, short string, get func(cloud.VirtualMachineSupport, context.Context, string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
			text, err := get(vms, ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		}),
	}
}

func vmActionCmd(use, short string, act func(cloud.VirtualMachineSupport, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withVMs(func(ctx context.Context, cmd *cobra.Command, vms cloud.VirtualMachineSupport, args []string) error {
			if err := act(vms, ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s requested for %s\n", use, args[0])
			return nil
		}),
	}
}

func renderRefreshed(cmd *cobra.Command, id string, vm *cloud.VirtualMachine) error {
	if vm == nil {
		return fmt.Errorf("virtual machine %s not found after update", id)
	}
	return render(cmd.OutOrStdout(), vm, vmTable([]cloud.VirtualMachine{*vm}))
}

// vmListOptions builds the list filter from the command flags.
func vmListOptions() (cloud.VMFilterOptions, error) {
	opts := cloud.VMFilterOptions{}.
		WithIDs(vmListIDs...).
		WithTags(vmListTags).
		WithVlanID(vmListVlan).
		WithDataCenterID(vmListZone).
		WithSpotRequestID(vmListSpot)
	for _, s := range vmListStates {
		opts = opts.WithStates(cloud.VmState(s))
	}
	for _, l := range vmListLifecycles {
		opts = opts.WithLifecycles(cloud.VirtualMachineLifecycle(l))
	}
	if vmListName != "" {
		re, err := regexp.Compile(vmListName)
		if err != nil {
			return cloud.VMFilterOptions{}, fmt.Errorf("parse --name: %w", err)
		}
		opts = opts.WithNameRegex(re)
	}
	return opts, nil
}
