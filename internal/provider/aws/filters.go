package aws

import (
	"slices"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// stateNames are the EC2 instance-state-name values of each neutral state.
var stateNames = map[cloud.VmState][]string{
	cloud.VmStatePending:    {string(ec2types.InstanceStateNamePending)},
	cloud.VmStateRunning:    {string(ec2types.InstanceStateNameRunning)},
	cloud.VmStateStopping:   {string(ec2types.InstanceStateNameShuttingDown), string(ec2types.InstanceStateNameStopping)},
	cloud.VmStateStopped:    {string(ec2types.InstanceStateNameStopped)},
	cloud.VmStateTerminated: {string(ec2types.InstanceStateNameTerminated)},
}

var lifecycleNames = map[cloud.VirtualMachineLifecycle]string{
	cloud.LifecycleSpot:      string(ec2types.InstanceLifecycleTypeSpot),
	cloud.LifecycleScheduled: string(ec2types.InstanceLifecycleTypeScheduled),
}

var statusNames = map[cloud.VmStatus]string{
	cloud.VmStatusOK:               string(ec2types.SummaryStatusOk),
	cloud.VmStatusImpaired:         string(ec2types.SummaryStatusImpaired),
	cloud.VmStatusInsufficientData: string(ec2types.SummaryStatusInsufficientData),
	cloud.VmStatusNotApplicable:    string(ec2types.SummaryStatusNotApplicable),
	cloud.VmStatusInitializing:     string(ec2types.SummaryStatusInitializing),
}

// describeInstances turns filter options into a DescribeInstances request. The
// returned options hold the constraints the request could not express; they must be
// checked against every mapped machine.
func describeInstances(opts cloud.VMFilterOptions) (*query.Builder, cloud.VMFilterOptions) {
	var local cloud.VMFilterOptions
	if re := opts.NameRegex(); re != nil {
		local = local.WithNameRegex(re)
	}

	b := query.New("DescribeInstances").
		List("InstanceId", opts.IDs()).
		TagFilters(opts.Tags())

	if states := opts.States(); len(states) > 0 {
		if names, ok := wireStates(states); ok {
			b.Filter("instance-state-name", names...)
		} else {
			local = local.WithStates(states...)
		}
	}

	// EC2 has no lifecycle value for on-demand instances, so a set including normal
	// cannot be sent.
	if lifecycles := opts.Lifecycles(); len(lifecycles) > 0 {
		if slices.Contains(lifecycles, cloud.LifecycleNormal) {
			local = local.WithLifecycles(lifecycles...)
		} else {
			names := make([]string, 0, len(lifecycles))
			for _, l := range lifecycles {
				names = append(names, lifecycleNames[l])
			}
			b.Filter("instance-lifecycle", names...)
		}
	}

	b.Filter("spot-instance-request-id", nonEmpty(opts.SpotRequestID())...).
		Filter("vpc-id", nonEmpty(opts.VlanID())...).
		Filter("availability-zone", nonEmpty(opts.DataCenterID())...)

	return b, local
}

// describeInstanceStatus sends ids and the health filter; both checks take the same
// status set.
func describeInstanceStatus(opts cloud.VmStatusFilterOptions) *query.Builder {
	ids := opts.VmIDs()
	// Without IncludeAllInstances EC2 reports running instances only.
	b := query.New("DescribeInstanceStatus").
		List("InstanceId", ids).
		SetBool("IncludeAllInstances", len(ids) > 0)
	statuses := opts.Statuses()
	if len(statuses) == 0 {
		return b
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		n, ok := statusNames[s]
		if !ok {
			return b
		}
		names = append(names, n)
	}
	return b.Filter("system-status.status", names...).
		Filter("instance-status.status", names...)
}

// wireStates reports false when a state has no EC2 equivalent.
func wireStates(states []cloud.VmState) ([]string, bool) {
	var names []string
	for _, s := range states {
		n, ok := stateNames[s]
		if !ok {
			return nil, false
		}
		names = append(names, n...)
	}
	return names, true
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
