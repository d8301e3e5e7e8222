// Package cloud defines the provider-neutral compute and network model for cirrus.
//
// Entities returned by a provider are created fresh for every call and are never
// modified after they are handed to the caller.
package cloud

import "context"

// Provider is a single cloud account/region exposed through the neutral model.
type Provider interface {
	// Name returns the provider identifier (e.g., "aws")
	Name() string

	// Region returns the region every call is scoped to.
	Region() string

	VirtualMachines() VirtualMachineSupport
	IpAddresses() IpAddressSupport
	AutoScaling() AutoScalingSupport
}

// VirtualMachineSupport is the query surface for virtual machines.
type VirtualMachineSupport interface {
	// GetVirtualMachine returns nil, nil when no machine has the given id.
	GetVirtualMachine(ctx context.Context, id string) (*VirtualMachine, error)
	ListVirtualMachines(ctx context.Context, opts VMFilterOptions) ([]VirtualMachine, error)
	ListVirtualMachineStatus(ctx context.Context) ([]ResourceStatus[VmState], error)
	GetVMStatus(ctx context.Context, opts VmStatusFilterOptions) ([]VirtualMachineStatus, error)
	ListFirewalls(ctx context.Context, id string) ([]string, error)

	GetPassword(ctx context.Context, id string) (string, error)
	GetUserData(ctx context.Context, id string) (string, error)
	GetConsoleOutput(ctx context.Context, id string) (string, error)

	AlterVirtualMachineProduct(ctx context.Context, id, productID string) (*VirtualMachine, error)
	AlterVirtualMachineFirewalls(ctx context.Context, id string, firewallIDs []string) (*VirtualMachine, error)
	EnableAnalytics(ctx context.Context, id string) error
	DisableAnalytics(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, force bool) error
	Reboot(ctx context.Context, id string) error
	Terminate(ctx context.Context, id string) error
}

// IpAddressSupport is the query surface for elastic IP addresses.
type IpAddressSupport interface {
	// GetIpAddress accepts either the provider id or the raw address.
	// It returns nil, nil when nothing matches.
	GetIpAddress(ctx context.Context, id string) (*IpAddress, error)
	ListIpPool(ctx context.Context, version IPVersion, unassignedOnly bool) ([]IpAddress, error)

	// ListIpPoolStatus reports true for addresses that are free to be assigned.
	ListIpPoolStatus(ctx context.Context, version IPVersion) ([]ResourceStatus[bool], error)
	ListRules(ctx context.Context, id string) ([]IpForwardingRule, error)
}

// AutoScalingSupport is the query surface for scaling groups.
type AutoScalingSupport interface {
	IsSubscribed(ctx context.Context) (bool, error)
	GetScalingGroup(ctx context.Context, id string) (*ScalingGroup, error)
	ListScalingGroups(ctx context.Context, opts ScalingGroupFilterOptions) ([]ScalingGroup, error)

	// ListScalingGroupStatus reports true for groups that are not being deleted.
	ListScalingGroupStatus(ctx context.Context) ([]ResourceStatus[bool], error)
}

// ResourceStatus is the cheap projection used by polling loops: identity plus a
// normalized status, without building the full entity.
type ResourceStatus[S comparable] struct {
	ProviderResourceID string `json:"provider_resource_id" yaml:"provider_resource_id"`
	Status             S      `json:"status" yaml:"status"`
}
