package cloud

import "time"

// VmState is the normalized lifecycle state of a virtual machine.
type VmState string

const (
	VmStatePending    VmState = "pending"
	VmStateRunning    VmState = "running"
	VmStateStopping   VmState = "stopping"
	VmStateStopped    VmState = "stopped"
	VmStateRebooting  VmState = "rebooting"
	VmStateTerminated VmState = "terminated"
	// VmStateUnknown is used for any state the provider reports that cirrus does not know.
	VmStateUnknown VmState = "unknown"
)

// Architecture is the CPU architecture of a machine image or instance.
type Architecture string

const (
	ArchitectureI32     Architecture = "i32"
	ArchitectureI64     Architecture = "i64"
	ArchitectureARM64   Architecture = "arm64"
	ArchitectureUnknown Architecture = "unknown"
)

// Platform is the operating system family.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformUnix    Platform = "unix"
	PlatformUnknown Platform = "unknown"
)

// VirtualMachineLifecycle distinguishes on-demand from spot and scheduled capacity.
type VirtualMachineLifecycle string

const (
	LifecycleNormal    VirtualMachineLifecycle = "normal"
	LifecycleSpot      VirtualMachineLifecycle = "spot"
	LifecycleScheduled VirtualMachineLifecycle = "scheduled"
)

// VolumeState is the normalized state of a volume attached to a machine.
type VolumeState string

const (
	VolumeStatePending   VolumeState = "pending"
	VolumeStateAvailable VolumeState = "available"
	VolumeStateDeleted   VolumeState = "deleted"
	VolumeStateUnknown   VolumeState = "unknown"
)

// VmStatus is a health check result reported for the host or the guest.
type VmStatus string

const (
	VmStatusOK               VmStatus = "ok"
	VmStatusImpaired         VmStatus = "impaired"
	VmStatusInsufficientData VmStatus = "insufficient-data"
	VmStatusNotApplicable    VmStatus = "not-applicable"
	VmStatusInitializing     VmStatus = "initializing"
	VmStatusUnknown          VmStatus = "unknown"
)

// Volume is a block device attached to a virtual machine.
type Volume struct {
	ProviderVolumeID    string      `json:"provider_volume_id" yaml:"provider_volume_id"`
	DeviceID            string      `json:"device_id" yaml:"device_id"`
	CurrentState        VolumeState `json:"current_state" yaml:"current_state"`
	DeleteOnTermination bool        `json:"delete_on_termination" yaml:"delete_on_termination"`
	AttachedAt          time.Time   `json:"attached_at" yaml:"attached_at"`
}

// VirtualMachine is a compute instance in the neutral model.
// Collection fields are always non-nil.
type VirtualMachine struct {
	ProviderVirtualMachineID string `json:"provider_virtual_machine_id" yaml:"provider_virtual_machine_id"`
	Name                     string `json:"name" yaml:"name"`
	Description              string `json:"description" yaml:"description"`

	ProviderOwnerID        string `json:"provider_owner_id" yaml:"provider_owner_id"`
	ProviderRegionID       string `json:"provider_region_id" yaml:"provider_region_id"`
	ProviderDataCenterID   string `json:"provider_data_center_id" yaml:"provider_data_center_id"`
	ProviderMachineImageID string `json:"provider_machine_image_id" yaml:"provider_machine_image_id"`
	ProductID              string `json:"product_id" yaml:"product_id"`
	ProviderSubnetID       string `json:"provider_subnet_id" yaml:"provider_subnet_id"`
	ProviderVlanID         string `json:"provider_vlan_id" yaml:"provider_vlan_id"`
	ProviderKeypairID      string `json:"provider_keypair_id" yaml:"provider_keypair_id"`

	// ProviderAssignedIpAddressID is joined from the address listing; empty when the
	// machine holds no elastic address or the listing was unavailable.
	ProviderAssignedIpAddressID string `json:"provider_assigned_ip_address_id" yaml:"provider_assigned_ip_address_id"`

	ProviderFirewallIDs         []string `json:"provider_firewall_ids" yaml:"provider_firewall_ids"`
	ProviderNetworkInterfaceIDs []string `json:"provider_network_interface_ids" yaml:"provider_network_interface_ids"`
	PublicIPAddresses           []string `json:"public_ip_addresses" yaml:"public_ip_addresses"`
	PrivateIPAddresses          []string `json:"private_ip_addresses" yaml:"private_ip_addresses"`
	PublicDNSAddress            string   `json:"public_dns_address" yaml:"public_dns_address"`
	PrivateDNSAddress           string   `json:"private_dns_address" yaml:"private_dns_address"`

	CurrentState      VmState                 `json:"current_state" yaml:"current_state"`
	Architecture      Architecture            `json:"architecture" yaml:"architecture"`
	Platform          Platform                `json:"platform" yaml:"platform"`
	Lifecycle         VirtualMachineLifecycle `json:"lifecycle" yaml:"lifecycle"`
	SpotRequestID     string                  `json:"spot_request_id" yaml:"spot_request_id"`
	CreationTimestamp time.Time               `json:"creation_timestamp" yaml:"creation_timestamp"`

	RootDeviceName     string `json:"root_device_name" yaml:"root_device_name"`
	RootDeviceType     string `json:"root_device_type" yaml:"root_device_type"`
	VirtualizationType string `json:"virtualization_type" yaml:"virtualization_type"`
	Monitored          bool   `json:"monitored" yaml:"monitored"`
	Persistent         bool   `json:"persistent" yaml:"persistent"`
	Rebootable         bool   `json:"rebootable" yaml:"rebootable"`
	Pausable           bool   `json:"pausable" yaml:"pausable"`

	Tags    map[string]string `json:"tags" yaml:"tags"`
	Volumes []Volume          `json:"volumes" yaml:"volumes"`
}

// Tag returns the value of a tag, or "" when the machine does not carry it.
func (vm VirtualMachine) Tag(key string) string {
	return vm.Tags[key]
}

// VirtualMachineStatus carries the two independent health checks of a machine.
type VirtualMachineStatus struct {
	ProviderVirtualMachineID string   `json:"provider_virtual_machine_id" yaml:"provider_virtual_machine_id"`
	ProviderDataCenterID     string   `json:"provider_data_center_id" yaml:"provider_data_center_id"`
	CurrentState             VmState  `json:"current_state" yaml:"current_state"`
	ProviderHostStatus       VmStatus `json:"provider_host_status" yaml:"provider_host_status"`
	ProviderVmStatus         VmStatus `json:"provider_vm_status" yaml:"provider_vm_status"`
}
