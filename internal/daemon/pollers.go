package daemon

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/emitter"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Pollers builds one poller per resource kind of p. Scaling groups are polled only
// when the account is subscribed to them.
func Pollers(ctx context.Context, p cloud.Provider) ([]Poller, error) {
	pollers := []Poller{
		{Kind: emitter.KindVirtualMachine, Poll: func(ctx context.Context) ([]emitter.Status, error) {
			statuses, err := p.VirtualMachines().ListVirtualMachineStatus(ctx)
			return project(statuses, err)
		}},
		{Kind: emitter.KindIpAddress, Poll: func(ctx context.Context) ([]emitter.Status, error) {
			statuses, err := p.IpAddresses().ListIpPoolStatus(ctx, cloud.IPv4)
			return project(statuses, err)
		}},
	}

	subscribed, err := p.AutoScaling().IsSubscribed(ctx)
	if err != nil {
		return nil, fmt.Errorf("check scaling group subscription: %w", err)
	}
	if !subscribed {
		log.Info().Str("region", p.Region()).Msg("auto scaling not available, skipping scaling groups")
		return pollers, nil
	}

	return append(pollers, Poller{Kind: emitter.KindScalingGroup, Poll: func(ctx context.Context) ([]emitter.Status, error) {
		statuses, err := p.AutoScaling().ListScalingGroupStatus(ctx)
		return project(statuses, err)
	}}), nil
}

// project turns a status projection into snapshot entries.
func project[S cloud.VmState | bool](statuses []cloud.ResourceStatus[S], err error) ([]emitter.Status, error) {
	if err != nil {
		return nil, err
	}
	out := make([]emitter.Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, emitter.Status{ID: s.ProviderResourceID, Value: format(s.Status)})
	}
	return out, nil
}

func format(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case cloud.VmState:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
