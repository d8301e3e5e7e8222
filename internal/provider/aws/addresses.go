package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// ElasticIPs implements cloud.IpAddressSupport over EC2 elastic addresses. Elastic
// addresses are IPv4 only.
type ElasticIPs struct {
	ec2    client
	region string
}

// addressNotFoundCodes are the faults DescribeAddresses raises for an id it does not
// know, including a public ip that is not an address at all.
var addressNotFoundCodes = []string{"InvalidAllocationID.NotFound", "InvalidAddress.NotFound", "InvalidParameterValue"}

// GetIpAddress looks id up as an allocation id when it has the eipalloc- prefix and
// as a public ip otherwise.
func (e *ElasticIPs) GetIpAddress(ctx context.Context, id string) (*cloud.IpAddress, error) {
	b := query.New("DescribeAddresses")
	if strings.HasPrefix(id, "eipalloc-") {
		b.List("AllocationId", []string{id})
	} else {
		b.List("PublicIp", []string{id})
	}
	all, err := e.describe(ctx, b)
	switch {
	case hasCode(err, addressNotFoundCodes...):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("get ip address %s: %w", id, err)
	}
	found := make([]cloud.IpAddress, 0, 1)
	for _, a := range all {
		if a.ProviderIpAddressID == id || a.Address == id {
			found = append(found, a)
		}
	}
	return single("ip address", id, found)
}

func (e *ElasticIPs) ListIpPool(ctx context.Context, version cloud.IPVersion, unassignedOnly bool) ([]cloud.IpAddress, error) {
	if version != cloud.IPv4 {
		return []cloud.IpAddress{}, nil
	}
	all, err := e.describe(ctx, query.New("DescribeAddresses"))
	if err != nil {
		return nil, fmt.Errorf("list ip pool: %w", err)
	}
	if !unassignedOnly {
		return all, nil
	}
	free := all[:0]
	for _, a := range all {
		if !a.Assigned {
			free = append(free, a)
		}
	}
	return free, nil
}

// ListIpPoolStatus reports true for addresses not associated with anything.
func (e *ElasticIPs) ListIpPoolStatus(ctx context.Context, version cloud.IPVersion) ([]cloud.ResourceStatus[bool], error) {
	if version != cloud.IPv4 {
		return []cloud.ResourceStatus[bool]{}, nil
	}
	all, err := e.describe(ctx, query.New("DescribeAddresses"))
	if err != nil {
		return nil, fmt.Errorf("list ip pool status: %w", err)
	}
	statuses := make([]cloud.ResourceStatus[bool], 0, len(all))
	for _, a := range all {
		statuses = append(statuses, cloud.ResourceStatus[bool]{
			ProviderResourceID: a.ProviderIpAddressID,
			Status:             !a.Assigned,
		})
	}
	return statuses, nil
}

// ListRules is always empty: elastic addresses map one-to-one and carry no
// forwarding rules.
func (e *ElasticIPs) ListRules(context.Context, string) ([]cloud.IpForwardingRule, error) {
	return []cloud.IpForwardingRule{}, nil
}

func (e *ElasticIPs) describe(ctx context.Context, b *query.Builder) ([]cloud.IpAddress, error) {
	doc, err := e.ec2.call(ctx, b)
	if err != nil {
		return nil, err
	}
	items := doc.Items("addressesSet/item")
	addrs := make([]cloud.IpAddress, 0, len(items))
	for _, it := range items {
		if a, ok := toIpAddress(it, e.region); ok {
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}
