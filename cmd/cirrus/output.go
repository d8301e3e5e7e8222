package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

// render writes v in the selected output format. table fills the tab writer for the
// table format.
func render(w io.Writer, v any, table func(w io.Writer)) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", outputFormat)
	}
}

func vmTable(vms []cloud.VirtualMachine) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATE\tPRODUCT\tZONE\tPUBLIC IP\tPRIVATE IP\tADDRESS")
		for _, vm := range vms {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				vm.ProviderVirtualMachineID,
				truncate(vm.Name, 30),
				vm.CurrentState,
				vm.ProductID,
				vm.ProviderDataCenterID,
				strings.Join(vm.PublicIPAddresses, ","),
				strings.Join(vm.PrivateIPAddresses, ","),
				orDash(vm.ProviderAssignedIpAddressID),
			)
		}
	}
}

func vmStatusTable(statuses []cloud.VirtualMachineStatus) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tZONE\tSTATE\tHOST\tGUEST")
		for _, s := range statuses {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.ProviderVirtualMachineID, s.ProviderDataCenterID, s.CurrentState, s.ProviderHostStatus, s.ProviderVmStatus)
		}
	}
}

func ipTable(ips []cloud.IpAddress) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tADDRESS\tVLAN\tASSIGNED\tSERVER")
		for _, ip := range ips {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n",
				ip.ProviderIpAddressID, ip.Address, ip.ForVlan, ip.Assigned, orDash(ip.ServerID))
		}
	}
}

func ruleTable(rules []cloud.IpForwardingRule) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tPUBLIC\tPRIVATE\tPROTOCOL\tSERVER")
		for _, r := range rules {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", r.ProviderRuleID, r.PublicPort, r.PrivatePort, r.Protocol, r.ServerID)
		}
	}
}

func groupTable(groups []cloud.ScalingGroup) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "NAME\tMIN\tMAX\tDESIRED\tINSTANCES\tZONES\tSTATUS")
		for _, g := range groups {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
				g.Name, g.MinServers, g.MaxServers, g.TargetCapacity, len(g.Instances),
				strings.Join(g.ProviderDataCenterIDs, ","), orDash(g.Status))
		}
	}
}

func statusTable[S comparable](statuses []cloud.ResourceStatus[S]) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, "ID\tSTATUS")
		for _, s := range statuses {
			_, _ = fmt.Fprintf(w, "%s\t%v\n", s.ProviderResourceID, s.Status)
		}
	}
}

func listTable(header string, values []string) func(io.Writer) {
	return func(w io.Writer) {
		_, _ = fmt.Fprintln(w, header)
		for _, v := range values {
			_, _ = fmt.Fprintln(w, v)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
