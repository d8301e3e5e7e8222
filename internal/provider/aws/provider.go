// Package aws implements the cloud support interfaces over the EC2 and Auto Scaling
// Query APIs.
package aws

import (
	"fmt"

	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Name is the registry name of this provider.
const Name = "aws"

// Config holds provider configuration.
type Config struct {
	Region string
}

// Provider is the AWS provider. It holds no mutable state and is safe for concurrent
// use when its invoker is.
type Provider struct {
	region string
	vms    *VirtualMachines
	ips    *ElasticIPs
	asg    *AutoScaling
}

// New creates a provider that sends every request through inv.
func New(inv invoker.Invoker, cfg Config) (*Provider, error) {
	if inv == nil {
		return nil, fmt.Errorf("aws provider: invoker required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("aws provider: region required")
	}

	ec2 := client{service: invoker.ServiceEC2, inv: inv}
	return &Provider{
		region: cfg.Region,
		vms:    &VirtualMachines{ec2: ec2, region: cfg.Region},
		ips:    &ElasticIPs{ec2: ec2, region: cfg.Region},
		asg:    &AutoScaling{asg: client{service: invoker.ServiceAutoScaling, inv: inv}, region: cfg.Region},
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return Name
}

// Region returns the region every request targets.
func (p *Provider) Region() string {
	return p.region
}

func (p *Provider) VirtualMachines() cloud.VirtualMachineSupport {
	return p.vms
}

func (p *Provider) IpAddresses() cloud.IpAddressSupport {
	return p.ips
}

func (p *Provider) AutoScaling() cloud.AutoScalingSupport {
	return p.asg
}

var (
	_ cloud.Provider              = (*Provider)(nil)
	_ cloud.VirtualMachineSupport = (*VirtualMachines)(nil)
	_ cloud.IpAddressSupport      = (*ElasticIPs)(nil)
	_ cloud.AutoScalingSupport    = (*AutoScaling)(nil)
)
