package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

var (
	ipVersion        string
	ipUnassignedOnly bool
)

var ipCmd = &cobra.Command{
	Use:     "ip",
	Aliases: []string{"ips"},
	Short:   "Query elastic IP addresses",
}

var ipGetCmd = &cobra.Command{
	Use:   "get ID|ADDRESS",
	Short: "Show one address by allocation id or address",
	Args:  cobra.ExactArgs(1),
	RunE: withIPs(func(ctx context.Context, cmd *cobra.Command, ips cloud.IpAddressSupport, args []string) error {
		ip, err := ips.GetIpAddress(ctx, args[0])
		if err != nil {
			return err
		}
		if ip == nil {
			return fmt.Errorf("ip address %s not found", args[0])
		}
		return render(cmd.OutOrStdout(), ip, ipTable([]cloud.IpAddress{*ip}))
	}),
}

var ipListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the address pool",
	Args:  cobra.NoArgs,
	RunE: withIPs(func(ctx context.Context, cmd *cobra.Command, ips cloud.IpAddressSupport, _ []string) error {
		version, err := parseIPVersion(ipVersion)
		if err != nil {
			return err
		}
		list, err := ips.ListIpPool(ctx, version, ipUnassignedOnly)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), list, ipTable(list))
	}),
}

var ipStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List which addresses are free to assign",
	Args:  cobra.NoArgs,
	RunE: withIPs(func(ctx context.Context, cmd *cobra.Command, ips cloud.IpAddressSupport, _ []string) error {
		version, err := parseIPVersion(ipVersion)
		if err != nil {
			return err
		}
		statuses, err := ips.ListIpPoolStatus(ctx, version)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), statuses, statusTable(statuses))
	}),
}

var ipRulesCmd = &cobra.Command{
	Use:   "rules ID",
	Short: "List forwarding rules of an address",
	Args:  cobra.ExactArgs(1),
	RunE: withIPs(func(ctx context.Context, cmd *cobra.Command, ips cloud.IpAddressSupport, args []string) error {
		rules, err := ips.ListRules(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), rules, ruleTable(rules))
	}),
}

func init() {
	rootCmd.AddCommand(ipCmd)
	ipCmd.AddCommand(ipGetCmd, ipListCmd, ipStatusCmd, ipRulesCmd)

	ipCmd.PersistentFlags().StringVar(&ipVersion, "version", string(cloud.IPv4), "IP version (ipv4, ipv6)")
	ipListCmd.Flags().BoolVar(&ipUnassignedOnly, "unassigned", false, "Only addresses without an association")
}

func withIPs(run func(ctx context.Context, cmd *cobra.Command, ips cloud.IpAddressSupport, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := openProvider(cmd.Context(), nil)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cmd, p.IpAddresses(), args)
	}
}

func parseIPVersion(s string) (cloud.IPVersion, error) {
	switch v := cloud.IPVersion(s); v {
	case cloud.IPv4, cloud.IPv6:
		return v, nil
	default:
		return "", fmt.Errorf("unknown ip version %q (want ipv4 or ipv6)", s)
	}
}
