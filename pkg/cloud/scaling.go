package cloud

import "time"

// ScalingGroup is a managed set of machines kept between a minimum and maximum size.
// Collection fields are always non-nil.
type ScalingGroup struct {
	ProviderScalingGroupID string    `json:"provider_scaling_group_id" yaml:"provider_scaling_group_id"`
	Name                   string    `json:"name" yaml:"name"`
	ARN                    string    `json:"arn" yaml:"arn"`
	RegionID               string    `json:"region_id" yaml:"region_id"`
	CreationTimestamp      time.Time `json:"creation_timestamp" yaml:"creation_timestamp"`

	MinServers             int    `json:"min_servers" yaml:"min_servers"`
	MaxServers             int    `json:"max_servers" yaml:"max_servers"`
	TargetCapacity         int    `json:"target_capacity" yaml:"target_capacity"`
	DefaultCooldown        int    `json:"default_cooldown" yaml:"default_cooldown"`
	HealthCheckType        string `json:"health_check_type" yaml:"health_check_type"`
	HealthCheckGracePeriod int    `json:"health_check_grace_period" yaml:"health_check_grace_period"`
	LaunchConfigurationID  string `json:"launch_configuration_id" yaml:"launch_configuration_id"`
	LaunchTemplateID       string `json:"launch_template_id" yaml:"launch_template_id"`

	// Status is empty for healthy groups; the provider sets it while a delete is in progress.
	Status string `json:"status" yaml:"status"`

	ProviderDataCenterIDs     []string             `json:"provider_data_center_ids" yaml:"provider_data_center_ids"`
	ProviderSubnetIDs         []string             `json:"provider_subnet_ids" yaml:"provider_subnet_ids"`
	ProviderLoadBalancerNames []string             `json:"provider_load_balancer_names" yaml:"provider_load_balancer_names"`
	ProviderTargetGroupARNs   []string             `json:"provider_target_group_arns" yaml:"provider_target_group_arns"`
	TerminationPolicies       []string             `json:"termination_policies" yaml:"termination_policies"`
	SuspendedProcesses        []string             `json:"suspended_processes" yaml:"suspended_processes"`
	EnabledMetrics            []string             `json:"enabled_metrics" yaml:"enabled_metrics"`
	Instances                 []ScalingGroupMember `json:"instances" yaml:"instances"`
	Tags                      map[string]string    `json:"tags" yaml:"tags"`
}

// ServerIDs returns the ids of the machines currently in the group.
func (g ScalingGroup) ServerIDs() []string {
	ids := make([]string, 0, len(g.Instances))
	for _, m := range g.Instances {
		ids = append(ids, m.ProviderVirtualMachineID)
	}
	return ids
}

// ScalingGroupMember is a machine as seen by its scaling group.
type ScalingGroupMember struct {
	ProviderVirtualMachineID string `json:"provider_virtual_machine_id" yaml:"provider_virtual_machine_id"`
	ProviderDataCenterID     string `json:"provider_data_center_id" yaml:"provider_data_center_id"`
	LifecycleState           string `json:"lifecycle_state" yaml:"lifecycle_state"`
	Healthy                  bool   `json:"healthy" yaml:"healthy"`
	InService                bool   `json:"in_service" yaml:"in_service"`
	ProtectedFromScaleIn     bool   `json:"protected_from_scale_in" yaml:"protected_from_scale_in"`
}
