package cloud

// AddressType says whether an address is reachable from the internet.
type AddressType string

const (
	AddressTypePublic  AddressType = "public"
	AddressTypePrivate AddressType = "private"
)

// IPVersion is the IP protocol version of an address.
type IPVersion string

const (
	IPv4 IPVersion = "ipv4"
	IPv6 IPVersion = "ipv6"
)

// IpAddress is a static address that can be moved between machines.
type IpAddress struct {
	ProviderIpAddressID        string      `json:"provider_ip_address_id" yaml:"provider_ip_address_id"`
	ProviderAssociationID      string      `json:"provider_association_id" yaml:"provider_association_id"`
	ProviderNetworkInterfaceID string      `json:"provider_network_interface_id" yaml:"provider_network_interface_id"`
	Address                    string      `json:"address" yaml:"address"`
	PrivateAddress             string      `json:"private_address" yaml:"private_address"`
	AddressType                AddressType `json:"address_type" yaml:"address_type"`
	Version                    IPVersion   `json:"version" yaml:"version"`
	RegionID                   string      `json:"region_id" yaml:"region_id"`

	// ServerID is the machine the address is attached to, or "".
	ServerID string `json:"server_id" yaml:"server_id"`

	// ForVlan is true for addresses scoped to a virtual network rather than the classic platform.
	ForVlan bool `json:"for_vlan" yaml:"for_vlan"`

	// Assigned is true when the address has an active association.
	Assigned bool `json:"assigned" yaml:"assigned"`
}

// IpForwardingRule maps a public port on an address to a port on a machine.
type IpForwardingRule struct {
	ProviderRuleID string `json:"provider_rule_id" yaml:"provider_rule_id"`
	AddressID      string `json:"address_id" yaml:"address_id"`
	PublicPort     int    `json:"public_port" yaml:"public_port"`
	PrivatePort    int    `json:"private_port" yaml:"private_port"`
	Protocol       string `json:"protocol" yaml:"protocol"`
	ServerID       string `json:"server_id" yaml:"server_id"`
}
