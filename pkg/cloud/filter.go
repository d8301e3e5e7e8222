package cloud

import (
	"maps"
	"regexp"
	"slices"
)

// VMFilterOptions narrows a virtual machine listing. The zero value matches everything.
// Every With method returns a modified copy; the receiver is never changed.
type VMFilterOptions struct {
	ids           []string
	tags          map[string]string
	states        []VmState
	lifecycles    []VirtualMachineLifecycle
	spotRequestID string
	vlanID        string
	dataCenterID  string
	name          *regexp.Regexp
}

func (o VMFilterOptions) clone() VMFilterOptions {
	o.ids = slices.Clone(o.ids)
	o.tags = maps.Clone(o.tags)
	o.states = slices.Clone(o.states)
	o.lifecycles = slices.Clone(o.lifecycles)
	return o
}

// WithIDs restricts the listing to the given machine ids.
func (o VMFilterOptions) WithIDs(ids ...string) VMFilterOptions {
	c := o.clone()
	c.ids = appendUnique(c.ids, ids...)
	return c
}

// WithTag requires the machine to carry key with exactly value.
func (o VMFilterOptions) WithTag(key, value string) VMFilterOptions {
	c := o.clone()
	if c.tags == nil {
		c.tags = make(map[string]string)
	}
	c.tags[key] = value
	return c
}

// WithTags adds every pair in tags as a required tag.
func (o VMFilterOptions) WithTags(tags map[string]string) VMFilterOptions {
	c := o.clone()
	if len(tags) > 0 && c.tags == nil {
		c.tags = make(map[string]string, len(tags))
	}
	maps.Copy(c.tags, tags)
	return c
}

func (o VMFilterOptions) WithStates(states ...VmState) VMFilterOptions {
	c := o.clone()
	c.states = appendUnique(c.states, states...)
	return c
}

func (o VMFilterOptions) WithLifecycles(lifecycles ...VirtualMachineLifecycle) VMFilterOptions {
	c := o.clone()
	c.lifecycles = appendUnique(c.lifecycles, lifecycles...)
	return c
}

func (o VMFilterOptions) WithSpotRequestID(id string) VMFilterOptions {
	c := o.clone()
	c.spotRequestID = id
	return c
}

func (o VMFilterOptions) WithVlanID(id string) VMFilterOptions {
	c := o.clone()
	c.vlanID = id
	return c
}

func (o VMFilterOptions) WithDataCenterID(id string) VMFilterOptions {
	c := o.clone()
	c.dataCenterID = id
	return c
}

// WithNameRegex matches machine names locally; it is never sent to the provider.
func (o VMFilterOptions) WithNameRegex(re *regexp.Regexp) VMFilterOptions {
	c := o.clone()
	c.name = re
	return c
}

func (o VMFilterOptions) IDs() []string { return slices.Clone(o.ids) }
func (o VMFilterOptions) Tags() map[string]string { return maps.Clone(o.tags) }
func (o VMFilterOptions) States() []VmState { return slices.Clone(o.states) }
func (o VMFilterOptions) Lifecycles() []VirtualMachineLifecycle { return slices.Clone(o.lifecycles) }
func (o VMFilterOptions) SpotRequestID() string { return o.spotRequestID }
func (o VMFilterOptions) VlanID() string { return o.vlanID }
func (o VMFilterOptions) DataCenterID() string { return o.dataCenterID }
func (o VMFilterOptions) NameRegex() *regexp.Regexp { return o.name }

// HasCriteria reports whether any constraint is set.
func (o VMFilterOptions) HasCriteria() bool {
	return len(o.ids) > 0 || len(o.tags) > 0 || len(o.states) > 0 || len(o.lifecycles) > 0 ||
		o.spotRequestID != "" || o.vlanID != "" || o.dataCenterID != "" || o.name != nil
}

// Matches re-checks every constraint against a mapped machine.
func (o VMFilterOptions) Matches(vm VirtualMachine) bool {
	if len(o.ids) > 0 && !slices.Contains(o.ids, vm.ProviderVirtualMachineID) {
		return false
	}
	for k, v := range o.tags {
		got, ok := vm.Tags[k]
		if !ok || got != v {
			return false
		}
	}
	if len(o.states) > 0 && !slices.Contains(o.states, vm.CurrentState) {
		return false
	}
	if len(o.lifecycles) > 0 && !slices.Contains(o.lifecycles, vm.Lifecycle) {
		return false
	}
	if o.spotRequestID != "" && o.spotRequestID != vm.SpotRequestID {
		return false
	}
	if o.vlanID != "" && o.vlanID != vm.ProviderVlanID {
		return false
	}
	if o.dataCenterID != "" && o.dataCenterID != vm.ProviderDataCenterID {
		return false
	}
	if o.name != nil && !o.name.MatchString(vm.Name) {
		return false
	}
	return true
}

// VmStatusFilterOptions narrows a health status query.
type VmStatusFilterOptions struct {
	vmIDs    []string
	statuses []VmStatus
}

func (o VmStatusFilterOptions) WithVmIDs(ids ...string) VmStatusFilterOptions {
	o.vmIDs = appendUnique(slices.Clone(o.vmIDs), ids...)
	return o
}

func (o VmStatusFilterOptions) WithStatuses(statuses ...VmStatus) VmStatusFilterOptions {
	o.statuses = appendUnique(slices.Clone(o.statuses), statuses...)
	return o
}

func (o VmStatusFilterOptions) VmIDs() []string { return slices.Clone(o.vmIDs) }
func (o VmStatusFilterOptions) Statuses() []VmStatus { return slices.Clone(o.statuses) }

// Matches requires the id to be requested and both health checks to be in the status set.
func (o VmStatusFilterOptions) Matches(s VirtualMachineStatus) bool {
	if len(o.vmIDs) > 0 && !slices.Contains(o.vmIDs, s.ProviderVirtualMachineID) {
		return false
	}
	if len(o.statuses) > 0 {
		if !slices.Contains(o.statuses, s.ProviderHostStatus) || !slices.Contains(o.statuses, s.ProviderVmStatus) {
			return false
		}
	}
	return true
}

// ScalingGroupFilterOptions narrows a scaling group listing.
type ScalingGroupFilterOptions struct {
	names []string
	tags  map[string]string
}

func (o ScalingGroupFilterOptions) WithNames(names ...string) ScalingGroupFilterOptions {
	o.names = appendUnique(slices.Clone(o.names), names...)
	return o
}

func (o ScalingGroupFilterOptions) WithTag(key, value string) ScalingGroupFilterOptions {
	tags := maps.Clone(o.tags)
	if tags == nil {
		tags = make(map[string]string)
	}
	tags[key] = value
	o.tags = tags
	return o
}

func (o ScalingGroupFilterOptions) Names() []string { return slices.Clone(o.names) }
func (o ScalingGroupFilterOptions) Tags() map[string]string { return maps.Clone(o.tags) }

func (o ScalingGroupFilterOptions) Matches(g ScalingGroup) bool {
	if len(o.names) > 0 && !slices.Contains(o.names, g.ProviderScalingGroupID) {
		return false
	}
	for k, v := range o.tags {
		got, ok := g.Tags[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

func appendUnique[T comparable](dst []T, values ...T) []T {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
