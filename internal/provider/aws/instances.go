package aws

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Faults EC2 returns for an id that names no instance.
var notFoundCodes = []string{"InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed"}

// VirtualMachines implements cloud.VirtualMachineSupport over EC2.
type VirtualMachines struct {
	ec2    client
	region string
}

// GetVirtualMachine returns nil, nil when no instance has id.
func (v *VirtualMachines) GetVirtualMachine(ctx context.Context, id string) (*cloud.VirtualMachine, error) {
	b, _ := describeInstances(cloud.VMFilterOptions{}.WithIDs(id))
	vms, err := v.describe(ctx, b, nil)
	if hasCode(err, notFoundCodes...) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get virtual machine %s: %w", id, err)
	}

	vm, err := single("virtual machine", id, vms)
	if err != nil || vm == nil {
		return vm, err
	}

	join := newAddressJoin(v.ec2, v.region)
	if vm.ProviderAssignedIpAddressID, err = join.resolve(ctx, vm.ProviderVirtualMachineID); err != nil {
		return nil, fmt.Errorf("get virtual machine %s: join addresses: %w", id, err)
	}
	return vm, nil
}

// ListVirtualMachines sends every constraint EC2 can evaluate and checks the rest
// against the mapped machines.
func (v *VirtualMachines) ListVirtualMachines(ctx context.Context, opts cloud.VMFilterOptions) ([]cloud.VirtualMachine, error) {
	b, local := describeInstances(opts)
	join := newAddressJoin(v.ec2, v.region)

	vms, err := v.describe(ctx, b, join.optional(ctx))
	if err != nil {
		return nil, fmt.Errorf("list virtual machines: %w", err)
	}
	if !local.HasCriteria() {
		return vms, nil
	}

	matched := vms[:0]
	for _, vm := range vms {
		if local.Matches(vm) {
			matched = append(matched, vm)
		}
	}
	return matched, nil
}

// describe pages through DescribeInstances, mapping every instance.
func (v *VirtualMachines) describe(ctx context.Context, b *query.Builder, lookup addressLookup) ([]cloud.VirtualMachine, error) {
	base := b.Params()
	vms := make([]cloud.VirtualMachine, 0)
	err := v.ec2.paginate(ctx, "nextToken", "NextToken", rebuild(base), func(doc *document.Document) error {
		for _, res := range doc.Items("reservationSet/item") {
			owner := res.String("ownerId")
			for _, it := range res.Set("instancesSet") {
				if vm, ok := toVirtualMachine(it, owner, v.region, lookup); ok {
					vms = append(vms, vm)
				}
			}
		}
		return nil
	})
	return vms, err
}

// ListVirtualMachineStatus projects every instance to its id and state.
func (v *VirtualMachines) ListVirtualMachineStatus(ctx context.Context) ([]cloud.ResourceStatus[cloud.VmState], error) {
	statuses := make([]cloud.ResourceStatus[cloud.VmState], 0)
	base := query.New("DescribeInstances").Params()
	err := v.ec2.paginate(ctx, "nextToken", "NextToken", rebuild(base), func(doc *document.Document) error {
		for _, res := range doc.Items("reservationSet/item") {
			for _, it := range res.Set("instancesSet") {
				id := it.String("instanceId")
				if id == "" {
					log.Warn().Str("region", v.region).Msg("skipping instance without instanceId")
					continue
				}
				statuses = append(statuses, cloud.ResourceStatus[cloud.VmState]{
					ProviderResourceID: id,
					Status:             toVmState(it.Group("instanceState")),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list virtual machine status: %w", err)
	}
	return statuses, nil
}

// GetVMStatus returns the health checks of the requested machines. A machine is kept
// only when both its host and its own check are in the requested status set.
func (v *VirtualMachines) GetVMStatus(ctx context.Context, opts cloud.VmStatusFilterOptions) ([]cloud.VirtualMachineStatus, error) {
	base := describeInstanceStatus(opts).Params()
	statuses := make([]cloud.VirtualMachineStatus, 0)
	err := v.ec2.paginate(ctx, "nextToken", "NextToken", rebuild(base), func(doc *document.Document) error {
		for _, it := range doc.Items("instanceStatusSet/item") {
			s, ok := toVirtualMachineStatus(it)
			if ok && opts.Matches(s) {
				statuses = append(statuses, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get vm status: %w", err)
	}
	return statuses, nil
}

// ListFirewalls returns the security groups of the instance and of its network
// interfaces, each once, in document order.
func (v *VirtualMachines) ListFirewalls(ctx context.Context, id string) ([]string, error) {
	doc, err := v.ec2.call(ctx, query.New("DescribeInstances").List("InstanceId", []string{id}))
	if hasCode(err, notFoundCodes...) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list firewalls %s: %w", id, err)
	}

	groups := make([]string, 0)
	for _, res := range doc.Items("reservationSet/item") {
		for _, it := range res.Set("instancesSet") {
			if it.String("instanceId") != id {
				continue
			}
			for _, g := range it.Set("groupSet") {
				groups = appendIf(groups, g.String("groupId"))
			}
			for _, eni := range it.Set("networkInterfaceSet") {
				for _, g := range eni.Set("groupSet") {
					groups = appendIf(groups, g.String("groupId"))
				}
			}
		}
	}
	return groups, nil
}

// GetPassword returns the encrypted administrator password as EC2 reports it.
func (v *VirtualMachines) GetPassword(ctx context.Context, id string) (string, error) {
	doc, err := v.ec2.call(ctx, query.New("GetPasswordData").Set("InstanceId", id))
	if err != nil {
		return "", fmt.Errorf("get password %s: %w", id, err)
	}
	return doc.Text("passwordData"), nil
}

func (v *VirtualMachines) GetUserData(ctx context.Context, id string) (string, error) {
	doc, err := v.ec2.call(ctx, query.New("DescribeInstanceAttribute").
		Set("InstanceId", id).
		Set("Attribute", "userData"))
	if err != nil {
		return "", fmt.Errorf("get user data %s: %w", id, err)
	}
	data, err := decodeBase64(doc.Text("userData/value"))
	if err != nil {
		return "", fmt.Errorf("get user data %s: %w", id, err)
	}
	return data, nil
}

func (v *VirtualMachines) GetConsoleOutput(ctx context.Context, id string) (string, error) {
	doc, err := v.ec2.call(ctx, query.New("GetConsoleOutput").Set("InstanceId", id))
	if err != nil {
		return "", fmt.Errorf("get console output %s: %w", id, err)
	}
	out, err := decodeBase64(doc.Text("output"))
	if err != nil {
		return "", fmt.Errorf("get console output %s: %w", id, err)
	}
	return out, nil
}

// AlterVirtualMachineProduct changes the instance type and returns the refreshed machine.
func (v *VirtualMachines) AlterVirtualMachineProduct(ctx context.Context, id, productID string) (*cloud.VirtualMachine, error) {
	b := query.New("ModifyInstanceAttribute").
		Set("InstanceId", id).
		Set("InstanceType.Value", productID)
	if err := v.modify(ctx, b); err != nil {
		return nil, fmt.Errorf("alter product %s: %w", id, err)
	}
	return v.GetVirtualMachine(ctx, id)
}

// AlterVirtualMachineFirewalls replaces the security groups and returns the refreshed machine.
func (v *VirtualMachines) AlterVirtualMachineFirewalls(ctx context.Context, id string, firewallIDs []string) (*cloud.VirtualMachine, error) {
	if len(firewallIDs) == 0 {
		return nil, fmt.Errorf("alter firewalls %s: at least one firewall required", id)
	}
	b := query.New("ModifyInstanceAttribute").
		Set("InstanceId", id).
		List("GroupId", firewallIDs)
	if err := v.modify(ctx, b); err != nil {
		return nil, fmt.Errorf("alter firewalls %s: %w", id, err)
	}
	return v.GetVirtualMachine(ctx, id)
}

func (v *VirtualMachines) modify(ctx context.Context, b *query.Builder) error {
	doc, err := v.ec2.call(ctx, b)
	if err != nil {
		return err
	}
	if ret := doc.Text("return"); ret != "true" {
		return fmt.Errorf("%w: ModifyInstanceAttribute returned %q", cloud.ErrInternal, ret)
	}
	return nil
}

func (v *VirtualMachines) EnableAnalytics(ctx context.Context, id string) error {
	return v.instanceAction(ctx, "MonitorInstances", id, false)
}

func (v *VirtualMachines) DisableAnalytics(ctx context.Context, id string) error {
	return v.instanceAction(ctx, "UnmonitorInstances", id, false)
}

func (v *VirtualMachines) Start(ctx context.Context, id string) error {
	return v.instanceAction(ctx, "StartInstances", id, false)
}

// Stop stops the instance; force skips the guest shutdown.
func (v *VirtualMachines) Stop(ctx context.Context, id string, force bool) error {
	return v.instanceAction(ctx, "StopInstances", id, force)
}

func (v *VirtualMachines) Reboot(ctx context.Context, id string) error {
	return v.instanceAction(ctx, "RebootInstances", id, false)
}

func (v *VirtualMachines) Terminate(ctx context.Context, id string) error {
	return v.instanceAction(ctx, "TerminateInstances", id, false)
}

func (v *VirtualMachines) instanceAction(ctx context.Context, action, id string, force bool) error {
	b := query.New(action).
		List("InstanceId", []string{id}).
		SetBool("Force", force)
	if _, err := v.ec2.call(ctx, b); err != nil {
		return fmt.Errorf("%s %s: %w", action, id, err)
	}
	log.Debug().Str("action", action).Str("instance", id).Msg("instance action sent")
	return nil
}

// rebuild returns a page builder that starts from a fixed parameter set.
func rebuild(base query.Params) func() *query.Builder {
	return func() *query.Builder {
		return query.From(base)
	}
}

func decodeBase64(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: decode base64: %v", cloud.ErrInternal, err)
	}
	return string(raw), nil
}
