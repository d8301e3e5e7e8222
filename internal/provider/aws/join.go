package aws

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/query"
)

// addressJoin indexes elastic addresses by the instance holding them. It issues a
// single DescribeAddresses on first use and is never refreshed; one join serves one
// outer operation.
type addressJoin struct {
	ec2    client
	region string

	loaded bool
	err    error
	index  map[string]string
}

func newAddressJoin(ec2 client, region string) *addressJoin {
	return &addressJoin{ec2: ec2, region: region}
}

// resolve returns the address id held by instanceID, or "" when it holds none.
func (j *addressJoin) resolve(ctx context.Context, instanceID string) (string, error) {
	if !j.loaded {
		j.loaded = true
		j.index, j.err = j.load(ctx)
	}
	if j.err != nil {
		return "", j.err
	}
	return j.index[instanceID], nil
}

func (j *addressJoin) load(ctx context.Context) (map[string]string, error) {
	doc, err := j.ec2.call(ctx, query.New("DescribeAddresses"))
	if err != nil {
		return nil, err
	}
	index := make(map[string]string)
	for _, it := range doc.Items("addressesSet/item") {
		addr, ok := toIpAddress(it, j.region)
		if !ok || addr.ServerID == "" {
			continue
		}
		index[addr.ServerID] = addr.ProviderIpAddressID
	}
	return index, nil
}

// optional adapts the join for listings: a failed load is logged once and every
// lookup then yields "".
func (j *addressJoin) optional(ctx context.Context) addressLookup {
	return func(instanceID string) string {
		first := !j.loaded
		id, err := j.resolve(ctx, instanceID)
		if err != nil {
			if first {
				log.Warn().Err(err).Str("region", j.region).Msg("address join failed, listing without assigned addresses")
			}
			return ""
		}
		return id
	}
}
