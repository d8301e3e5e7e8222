package aws

import (
	"context"
	"fmt"
	"strings"

	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

const (
	asgItems = "DescribeAutoScalingGroupsResult/AutoScalingGroups/member"
	asgToken = "DescribeAutoScalingGroupsResult/NextToken"
)

// Fault codes meaning the account cannot use Auto Scaling with these credentials.
var unsubscribedCodes = []string{
	"SubscriptionCheckFailed",
	"AuthFailure",
	"SignatureDoesNotMatch",
	"UnsupportedOperation",
	"InvalidClientTokenId",
	"OptInRequired",
}

// AutoScaling implements cloud.AutoScalingSupport.
type AutoScaling struct {
	asg    client
	region string
}

// IsSubscribed probes DescribeAutoScalingGroups. An empty answer still counts.
func (a *AutoScaling) IsSubscribed(ctx context.Context) (bool, error) {
	_, err := a.asg.call(ctx, query.New("DescribeAutoScalingGroups").SetInt("MaxRecords", 1))
	switch {
	case err == nil:
		return true, nil
	case hasCode(err, unsubscribedCodes...):
		log.Debug().Err(err).Str("region", a.region).Msg("auto scaling not subscribed")
		return false, nil
	default:
		return false, fmt.Errorf("check auto scaling subscription: %w", err)
	}
}

// GetScalingGroup returns nil, nil when no group is named id.
func (a *AutoScaling) GetScalingGroup(ctx context.Context, id string) (*cloud.ScalingGroup, error) {
	groups, err := a.describe(ctx, cloud.ScalingGroupFilterOptions{}.WithNames(id))
	if err != nil {
		return nil, fmt.Errorf("get scaling group %s: %w", id, err)
	}
	return single("scaling group", id, groups)
}

// ListScalingGroups keeps only the returned groups that opts matches.
func (a *AutoScaling) ListScalingGroups(ctx context.Context, opts cloud.ScalingGroupFilterOptions) ([]cloud.ScalingGroup, error) {
	groups, err := a.describe(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list scaling groups: %w", err)
	}
	matched := groups[:0]
	for _, g := range groups {
		if opts.Matches(g) {
			matched = append(matched, g)
		}
	}
	return matched, nil
}

// ListScalingGroupStatus reports true for every group without a status; the service
// only sets one while the group is being deleted.
func (a *AutoScaling) ListScalingGroupStatus(ctx context.Context) ([]cloud.ResourceStatus[bool], error) {
	statuses := make([]cloud.ResourceStatus[bool], 0)
	base := query.New("DescribeAutoScalingGroups").Params()
	err := a.asg.paginate(ctx, asgToken, "NextToken", rebuild(base), func(doc *document.Document) error {
		for _, it := range doc.Items(asgItems) {
			name := it.String("AutoScalingGroupName")
			if name == "" {
				log.Warn().Str("region", a.region).Msg("skipping scaling group without name")
				continue
			}
			statuses = append(statuses, cloud.ResourceStatus[bool]{
				ProviderResourceID: name,
				Status:             it.String("Status") == "",
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scaling group status: %w", err)
	}
	return statuses, nil
}

func (a *AutoScaling) describe(ctx context.Context, opts cloud.ScalingGroupFilterOptions) ([]cloud.ScalingGroup, error) {
	base := query.New("DescribeAutoScalingGroups").
		MemberList("AutoScalingGroupNames", opts.Names()).
		TagMemberFilters(opts.Tags()).
		Params()

	groups := make([]cloud.ScalingGroup, 0)
	err := a.asg.paginate(ctx, asgToken, "NextToken", rebuild(base), func(doc *document.Document) error {
		for _, it := range doc.Items(asgItems) {
			if g, ok := toScalingGroup(it, a.region); ok {
				groups = append(groups, g)
			}
		}
		return nil
	})
	return groups, err
}

func toScalingGroup(it document.Item, region string) (cloud.ScalingGroup, bool) {
	name := it.String("AutoScalingGroupName")
	if name == "" {
		log.Warn().Str("region", region).Msg("skipping scaling group without name")
		return cloud.ScalingGroup{}, false
	}

	g := cloud.ScalingGroup{
		ProviderScalingGroupID:    name,
		Name:                      name,
		ARN:                       it.String("AutoScalingGroupARN"),
		RegionID:                  region,
		CreationTimestamp:         it.Time("CreatedTime"),
		MinServers:                it.Int("MinSize"),
		MaxServers:                it.Int("MaxSize"),
		TargetCapacity:            it.Int("DesiredCapacity"),
		DefaultCooldown:           it.Int("DefaultCooldown"),
		HealthCheckType:           it.String("HealthCheckType"),
		HealthCheckGracePeriod:    it.Int("HealthCheckGracePeriod"),
		LaunchConfigurationID:     it.String("LaunchConfigurationName"),
		LaunchTemplateID:          it.String("LaunchTemplate/LaunchTemplateId"),
		Status:                    it.String("Status"),
		ProviderDataCenterIDs:     it.Strings("AvailabilityZones"),
		ProviderSubnetIDs:         splitList(it.String("VPCZoneIdentifier")),
		ProviderLoadBalancerNames: it.Strings("LoadBalancerNames"),
		ProviderTargetGroupARNs:   it.Strings("TargetGroupARNs"),
		TerminationPolicies:       it.Strings("TerminationPolicies"),
		SuspendedProcesses:        fieldOf(it.Set("SuspendedProcesses"), "ProcessName"),
		EnabledMetrics:            fieldOf(it.Set("EnabledMetrics"), "Metric"),
		Tags:                      toTags(it.Set("Tags"), "Key", "Value"),
	}

	members := it.Set("Instances")
	g.Instances = make([]cloud.ScalingGroupMember, 0, len(members))
	for _, m := range members {
		id := m.String("InstanceId")
		if id == "" {
			continue
		}
		state := m.String("LifecycleState")
		g.Instances = append(g.Instances, cloud.ScalingGroupMember{
			ProviderVirtualMachineID: id,
			ProviderDataCenterID:     m.String("AvailabilityZone"),
			LifecycleState:           state,
			Healthy:                  strings.EqualFold(m.String("HealthStatus"), "Healthy"),
			InService:                asgtypes.LifecycleState(state) == asgtypes.LifecycleStateInService,
			ProtectedFromScaleIn:     m.Bool("ProtectedFromScaleIn"),
		})
	}
	return g, true
}

// splitList reads the comma-separated subnet list of VPCZoneIdentifier.
func splitList(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		out = appendIf(out, strings.TrimSpace(p))
	}
	return out
}

func fieldOf(items []document.Item, field string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = appendIf(out, it.String(field))
	}
	return out
}
