package aws

import (
	"slices"
	"strings"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// addressLookup resolves the elastic address held by an instance.
type addressLookup func(instanceID string) string

// toVirtualMachine maps one instancesSet item. ok is false for items without an id.
func toVirtualMachine(it document.Item, ownerID, region string, lookup addressLookup) (cloud.VirtualMachine, bool) {
	id := it.String("instanceId")
	if id == "" {
		log.Warn().Str("region", region).Msg("skipping instance without instanceId")
		return cloud.VirtualMachine{}, false
	}

	tags := toTags(it.Set("tagSet"), "key", "value")
	vm := cloud.VirtualMachine{
		ProviderVirtualMachineID: id,
		Name:                     tags["Name"],
		Description:              tags["Description"],
		ProviderOwnerID:          ownerID,
		ProviderRegionID:         region,
		ProviderDataCenterID:     it.String("placement/availabilityZone"),
		ProviderMachineImageID:   it.String("imageId"),
		ProductID:                it.String("instanceType"),
		ProviderSubnetID:         it.String("subnetId"),
		ProviderVlanID:           it.String("vpcId"),
		ProviderKeypairID:        it.String("keyName"),
		ProviderFirewallIDs:      groupIDs(it.Set("groupSet")),
		PublicDNSAddress:         it.String("dnsName"),
		PrivateDNSAddress:        it.String("privateDnsName"),
		CurrentState:             toVmState(it.Group("instanceState")),
		Architecture:             toArchitecture(it.String("architecture")),
		Platform:                 toPlatform(it.String("platform")),
		Lifecycle:                toLifecycle(it.String("instanceLifecycle")),
		SpotRequestID:            it.String("spotInstanceRequestId"),
		CreationTimestamp:        it.Time("launchTime"),
		RootDeviceName:           it.String("rootDeviceName"),
		RootDeviceType:           it.String("rootDeviceType"),
		VirtualizationType:       it.String("virtualizationType"),
		Monitored:                it.String("monitoring/state") == string(ec2types.MonitoringStateEnabled),
		Tags:                     tags,
		Volumes:                  toVolumes(it.Set("blockDeviceMapping")),
	}
	if vm.Name == "" {
		vm.Name = id
	}
	if vm.Description == "" {
		vm.Description = vm.Name
	}

	vm.Persistent = vm.RootDeviceType == string(ec2types.DeviceTypeEbs)
	vm.Rebootable = vm.CurrentState == cloud.VmStateRunning
	vm.Pausable = vm.Persistent && vm.Lifecycle != cloud.LifecycleSpot

	vm.PublicIPAddresses = appendIf(make([]string, 0, 1), it.String("ipAddress"))
	vm.PrivateIPAddresses = appendIf(make([]string, 0, 1), it.String("privateIpAddress"))
	vm.ProviderNetworkInterfaceIDs = make([]string, 0)
	for _, eni := range it.Set("networkInterfaceSet") {
		vm.ProviderNetworkInterfaceIDs = appendIf(vm.ProviderNetworkInterfaceIDs, eni.String("networkInterfaceId"))
		vm.PublicIPAddresses = appendIf(vm.PublicIPAddresses, eni.String("association/publicIp"))
		vm.PrivateIPAddresses = appendIf(vm.PrivateIPAddresses, eni.String("privateIpAddress"))
		for _, p := range eni.Set("privateIpAddressesSet") {
			vm.PrivateIPAddresses = appendIf(vm.PrivateIPAddresses, p.String("privateIpAddress"))
		}
	}

	if lookup != nil {
		vm.ProviderAssignedIpAddressID = lookup(id)
	}
	return vm, true
}

// toVmState prefers the state name and falls back to the low byte of the state code.
func toVmState(state document.Item) cloud.VmState {
	switch ec2types.InstanceStateName(state.String("name")) {
	case ec2types.InstanceStateNamePending:
		return cloud.VmStatePending
	case ec2types.InstanceStateNameRunning:
		return cloud.VmStateRunning
	case ec2types.InstanceStateNameShuttingDown, ec2types.InstanceStateNameStopping:
		return cloud.VmStateStopping
	case ec2types.InstanceStateNameStopped:
		return cloud.VmStateStopped
	case ec2types.InstanceStateNameTerminated:
		return cloud.VmStateTerminated
	}

	if !state.Has("code") {
		return cloud.VmStateUnknown
	}
	switch state.Int("code") & 0xff {
	case 0:
		return cloud.VmStatePending
	case 16:
		return cloud.VmStateRunning
	case 32, 64:
		return cloud.VmStateStopping
	case 48:
		return cloud.VmStateTerminated
	case 80:
		return cloud.VmStateStopped
	default:
		return cloud.VmStateUnknown
	}
}

func toArchitecture(s string) cloud.Architecture {
	switch ec2types.ArchitectureValues(s) {
	case ec2types.ArchitectureValuesX8664, ec2types.ArchitectureValuesX8664Mac:
		return cloud.ArchitectureI64
	case ec2types.ArchitectureValuesI386:
		return cloud.ArchitectureI32
	case ec2types.ArchitectureValuesArm64, ec2types.ArchitectureValuesArm64Mac:
		return cloud.ArchitectureARM64
	default:
		return cloud.ArchitectureUnknown
	}
}

// toPlatform: EC2 only reports a platform for Windows instances.
func toPlatform(s string) cloud.Platform {
	switch {
	case s == "":
		return cloud.PlatformUnix
	case strings.EqualFold(s, string(ec2types.PlatformValuesWindows)):
		return cloud.PlatformWindows
	default:
		return cloud.PlatformUnknown
	}
}

func toLifecycle(s string) cloud.VirtualMachineLifecycle {
	switch ec2types.InstanceLifecycleType(s) {
	case ec2types.InstanceLifecycleTypeSpot:
		return cloud.LifecycleSpot
	case ec2types.InstanceLifecycleTypeScheduled:
		return cloud.LifecycleScheduled
	default:
		return cloud.LifecycleNormal
	}
}

func toVolumes(mappings []document.Item) []cloud.Volume {
	volumes := make([]cloud.Volume, 0, len(mappings))
	for _, m := range mappings {
		ebs := m.Group("ebs")
		volumes = append(volumes, cloud.Volume{
			ProviderVolumeID:    ebs.String("volumeId"),
			DeviceID:            m.String("deviceName"),
			CurrentState:        toVolumeState(ebs.String("status")),
			DeleteOnTermination: ebs.Bool("deleteOnTermination"),
			AttachedAt:          ebs.Time("attachTime"),
		})
	}
	return volumes
}

func toVolumeState(s string) cloud.VolumeState {
	switch ec2types.AttachmentStatus(s) {
	case ec2types.AttachmentStatusAttaching:
		return cloud.VolumeStatePending
	case ec2types.AttachmentStatusAttached:
		return cloud.VolumeStateAvailable
	case ec2types.AttachmentStatusDetaching, ec2types.AttachmentStatusDetached:
		return cloud.VolumeStateDeleted
	default:
		return cloud.VolumeStateUnknown
	}
}

// toVirtualMachineStatus maps one instanceStatusSet item.
func toVirtualMachineStatus(it document.Item) (cloud.VirtualMachineStatus, bool) {
	id := it.String("instanceId")
	if id == "" {
		log.Warn().Msg("skipping instance status without instanceId")
		return cloud.VirtualMachineStatus{}, false
	}
	return cloud.VirtualMachineStatus{
		ProviderVirtualMachineID: id,
		ProviderDataCenterID:     it.String("availabilityZone"),
		CurrentState:             toVmState(it.Group("instanceState")),
		ProviderHostStatus:       toVmStatus(it.String("systemStatus/status")),
		ProviderVmStatus:         toVmStatus(it.String("instanceStatus/status")),
	}, true
}

func toVmStatus(s string) cloud.VmStatus {
	switch ec2types.SummaryStatus(s) {
	case ec2types.SummaryStatusOk:
		return cloud.VmStatusOK
	case ec2types.SummaryStatusImpaired:
		return cloud.VmStatusImpaired
	case ec2types.SummaryStatusInsufficientData:
		return cloud.VmStatusInsufficientData
	case ec2types.SummaryStatusNotApplicable:
		return cloud.VmStatusNotApplicable
	case ec2types.SummaryStatusInitializing:
		return cloud.VmStatusInitializing
	default:
		return cloud.VmStatusUnknown
	}
}

// toIpAddress maps one addressesSet item. ok is false for items without an address.
func toIpAddress(it document.Item, region string) (cloud.IpAddress, bool) {
	public := it.String("publicIp")
	if public == "" {
		log.Warn().Str("region", region).Msg("skipping address without publicIp")
		return cloud.IpAddress{}, false
	}

	addr := cloud.IpAddress{
		ProviderIpAddressID:        it.String("allocationId"),
		ProviderAssociationID:      it.String("associationId"),
		ProviderNetworkInterfaceID: it.String("networkInterfaceId"),
		Address:                    public,
		PrivateAddress:             it.String("privateIpAddress"),
		AddressType:                cloud.AddressTypePublic,
		Version:                    cloud.IPv4,
		RegionID:                   region,
		ServerID:                   it.String("instanceId"),
		ForVlan:                    it.String("domain") == string(ec2types.DomainTypeVpc),
	}
	if addr.ProviderIpAddressID == "" {
		addr.ProviderIpAddressID = public
	}
	addr.Assigned = addr.ProviderAssociationID != ""
	return addr, true
}

func toTags(items []document.Item, keyField, valueField string) map[string]string {
	tags := make(map[string]string, len(items))
	for _, t := range items {
		if k := t.String(keyField); k != "" {
			tags[k] = t.String(valueField)
		}
	}
	return tags
}

func groupIDs(items []document.Item) []string {
	ids := make([]string, 0, len(items))
	for _, g := range items {
		ids = appendIf(ids, g.String("groupId"))
	}
	return ids
}

// appendIf appends s unless it is empty or already present.
func appendIf(dst []string, s string) []string {
	if s == "" || slices.Contains(dst, s) {
		return dst
	}
	return append(dst, s)
}
