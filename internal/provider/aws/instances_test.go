package aws

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/invoker"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

const emptyInstances = `<DescribeInstancesResponse><reservationSet/></DescribeInstancesResponse>`

func TestGetVirtualMachine(t *testing.T) {
	fake := newFake(t).
		serve("DescribeInstances", "describe_instances.xml").
		serve("DescribeAddresses", "describe_addresses.xml")
	vms := newTestProvider(t, fake).VirtualMachines()

	vm, err := vms.GetVirtualMachine(context.Background(), "i-2574e22a")
	require.NoError(t, err)
	require.NotNil(t, vm)

	assert.Equal(t, []string{"DescribeInstances", "DescribeAddresses"}, fake.actions())
	assert.Equal(t, "i-2574e22a", param(t, fake.last("DescribeInstances"), "InstanceId.1"))

	assert.Equal(t, "i-2574e22a", vm.ProviderVirtualMachineID)
	assert.Equal(t, "eipalloc-08229861", vm.ProviderAssignedIpAddressID)
	assert.Equal(t, cloud.ArchitectureI64, vm.Architecture)
	assert.Equal(t, cloud.VmStateRunning, vm.CurrentState)
	assert.Equal(t, cloud.PlatformWindows, vm.Platform)
	assert.Equal(t, cloud.LifecycleNormal, vm.Lifecycle)
	assert.Equal(t, "c1.medium", vm.ProductID)
	assert.Equal(t, "us-west-2a", vm.ProviderDataCenterID)
	assert.Equal(t, "ami-1a2b3c4d", vm.ProviderMachineImageID)
	assert.Equal(t, "subnet-1a2b3c4d", vm.ProviderSubnetID)
	assert.Equal(t, "vpc-1a2b3c4d", vm.ProviderVlanID)
	assert.Equal(t, "my-key-pair", vm.ProviderKeypairID)
	assert.Equal(t, []string{"sg-1a2b3c4d"}, vm.ProviderFirewallIDs)
	assert.Equal(t, []string{"46.51.219.63"}, vm.PublicIPAddresses)
	assert.Equal(t, []string{"10.0.0.12", "10.0.0.14"}, vm.PrivateIPAddresses)
	assert.Equal(t, []string{"eni-1a2b3c4d"}, vm.ProviderNetworkInterfaceIDs)
	assert.Equal(t, "123456789012", vm.ProviderOwnerID)
	assert.Equal(t, testRegion, vm.ProviderRegionID)
	assert.Equal(t, map[string]string{"Name": "Windows Instance"}, vm.Tags)
	assert.Equal(t, "Windows Instance", vm.Name)
	assert.Equal(t, "Windows Instance", vm.Description)
	assert.Equal(t, time.Date(2016, 11, 20, 12, 0, 0, 0, time.UTC), vm.CreationTimestamp)

	assert.True(t, vm.Persistent)
	assert.True(t, vm.Rebootable)
	assert.True(t, vm.Pausable)
	assert.False(t, vm.Monitored)

	require.Len(t, vm.Volumes, 1)
	assert.Equal(t, "/dev/sda1", vm.Volumes[0].DeviceID)
	assert.Equal(t, "vol-1a2b3c4d", vm.Volumes[0].ProviderVolumeID)
	assert.Equal(t, cloud.VolumeStatePending, vm.Volumes[0].CurrentState)
	assert.True(t, vm.Volumes[0].DeleteOnTermination)
}

func TestGetVirtualMachine_Idempotent(t *testing.T) {
	fake := newFake(t).
		serve("DescribeInstances", "describe_instances.xml").
		serve("DescribeAddresses", "describe_addresses.xml")
	vms := newTestProvider(t, fake).VirtualMachines()

	first, err := vms.GetVirtualMachine(context.Background(), "i-2574e22a")
	require.NoError(t, err)
	second, err := vms.GetVirtualMachine(context.Background(), "i-2574e22a")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, fake.actions(), 4)
}

func TestGetVirtualMachine_NotFound(t *testing.T) {
	tests := []struct {
		name string
		fake func(*fakeInvoker)
	}{
		{"empty reservation set", func(f *fakeInvoker) {
			f.serveBody("DescribeInstances", emptyInstances)
		}},
		{"not found fault", func(f *fakeInvoker) {
			f.fail("DescribeInstances", fault(invoker.ServiceEC2, "DescribeInstances", "InvalidInstanceID.NotFound"))
		}},
		{"malformed id fault", func(f *fakeInvoker) {
			f.fail("DescribeInstances", fault(invoker.ServiceEC2, "DescribeInstances", "InvalidInstanceID.Malformed"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(t)
			tt.fake(fake)

			vm, err := newTestProvider(t, fake).VirtualMachines().GetVirtualMachine(context.Background(), "i-missing")
			require.NoError(t, err)
			assert.Nil(t, vm)
			assert.NotContains(t, fake.actions(), "DescribeAddresses")
		})
	}
}

func TestGetVirtualMachine_Ambiguous(t *testing.T) {
	body := `<DescribeInstancesResponse><reservationSet>
		<item><ownerId>1</ownerId><instancesSet><item><instanceId>i-1</instanceId></item></instancesSet></item>
		<item><ownerId>1</ownerId><instancesSet><item><instanceId>i-1</instanceId></item></instancesSet></item>
	</reservationSet></DescribeInstancesResponse>`
	fake := newFake(t).serveBody("DescribeInstances", body)

	vm, err := newTestProvider(t, fake).VirtualMachines().GetVirtualMachine(context.Background(), "i-1")
	assert.Nil(t, vm)
	assert.ErrorIs(t, err, cloud.ErrAmbiguousResult)
	assert.ErrorIs(t, err, cloud.ErrInternal)
}

func TestGetVirtualMachine_JoinFailurePropagates(t *testing.T) {
	boom := fault(invoker.ServiceEC2, "DescribeAddresses", "InternalError")
	fake := newFake(t).
		serve("DescribeInstances", "describe_instances.xml").
		fail("DescribeAddresses", boom)

	vm, err := newTestProvider(t, fake).VirtualMachines().GetVirtualMachine(context.Background(), "i-2574e22a")
	assert.Nil(t, vm)
	assert.ErrorIs(t, err, boom)
}

func TestGetVirtualMachine_OtherFaultPropagates(t *testing.T) {
	fake := newFake(t).fail("DescribeInstances", fault(invoker.ServiceEC2, "DescribeInstances", "UnauthorizedOperation"))

	_, err := newTestProvider(t, fake).VirtualMachines().GetVirtualMachine(context.Background(), "i-2574e22a")
	require.Error(t, err)
	assert.Equal(t, "UnauthorizedOperation", cloud.ErrorCodeOf(err))
}

func TestListVirtualMachines_SendsFilters(t *testing.T) {
	fake := newFake(t).
		serve("DescribeInstances", "describe_instances.xml").
		serve("DescribeAddresses", "describe_addresses.xml")

	opts := cloud.VMFilterOptions{}.
		WithTag("Name", "Windows Instance").
		WithStates(cloud.VmStateRunning).
		WithLifecycles(cloud.LifecycleSpot).
		WithSpotRequestID("sir-1")

	got, err := newTestProvider(t, fake).VirtualMachines().ListVirtualMachines(context.Background(), opts)
	require.NoError(t, err)

	filters, err := query.ParseFilters(fake.last("DescribeInstances"))
	require.NoError(t, err)
	assert.Equal(t, []query.Filter{
		{Name: "tag:Name", Values: []string{"Windows Instance"}},
		{Name: "instance-state-name", Values: []string{"running"}},
		{Name: "instance-lifecycle", Values: []string{"spot"}},
		{Name: "spot-instance-request-id", Values: []string{"sir-1"}},
	}, filters)

	// The provider evaluated the filters; the answer is taken as is.
	require.Len(t, got, 1)
	assert.Equal(t, "i-2574e22a", got[0].ProviderVirtualMachineID)
	assert.Equal(t, "eipalloc-08229861", got[0].ProviderAssignedIpAddressID)
}

func TestListVirtualMachines_LocalConstraints(t *testing.T) {
	tests := []struct {
		name      string
		opts      cloud.VMFilterOptions
		wantCount int
		wantSent  []string
	}{
		{
			name:      "normal lifecycle is checked locally",
			opts:      cloud.VMFilterOptions{}.WithLifecycles(cloud.LifecycleNormal, cloud.LifecycleSpot),
			wantCount: 1,
			wantSent:  []string{},
		},
		{
			name:      "spot only excludes nothing locally",
			opts:      cloud.VMFilterOptions{}.WithLifecycles(cloud.LifecycleSpot),
			wantCount: 1,
			wantSent:  []string{"instance-lifecycle"},
		},
		{
			name:      "name regex matches",
			opts:      cloud.VMFilterOptions{}.WithNameRegex(regexp.MustCompile("^Windows")),
			wantCount: 1,
			wantSent:  []string{},
		},
		{
			name:      "name regex rejects",
			opts:      cloud.VMFilterOptions{}.WithNameRegex(regexp.MustCompile("^linux")),
			wantCount: 0,
			wantSent:  []string{},
		},
		{
			name:      "state without wire value is checked locally",
			opts:      cloud.VMFilterOptions{}.WithStates(cloud.VmStateRebooting),
			wantCount: 0,
			wantSent:  []string{},
		},
		{
			name:      "vlan and data center",
			opts:      cloud.VMFilterOptions{}.WithVlanID("vpc-1a2b3c4d").WithDataCenterID("us-west-2a"),
			wantCount: 1,
			wantSent:  []string{"vpc-id", "availability-zone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake(t).
				serve("DescribeInstances", "describe_instances.xml").
				serve("DescribeAddresses", "describe_addresses.xml")

			got, err := newTestProvider(t, fake).VirtualMachines().ListVirtualMachines(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)

			filters, err := query.ParseFilters(fake.last("DescribeInstances"))
			require.NoError(t, err)
			sent := make([]string, 0, len(filters))
			for _, f := range filters {
				sent = append(sent, f.Name)
			}
			assert.Equal(t, tt.wantSent, sent)
		})
	}
}

func TestListVirtualMachines_OptionalJoin(t *testing.T) {
	fake := newFake(t).
		serve("DescribeInstances", "describe_instances.xml").
		fail("DescribeAddresses", fault(invoker.ServiceEC2, "DescribeAddresses", "UnauthorizedOperation"))

	got, err := newTestProvider(t, fake).VirtualMachines().ListVirtualMachines(context.Background(), cloud.VMFilterOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].ProviderAssignedIpAddressID)
	assert.Equal(t, []string{"DescribeInstances", "DescribeAddresses"}, fake.actions())
}

func TestListVirtualMachines_EmptySkipsJoin(t *testing.T) {
	fake := newFake(t).serveBody("DescribeInstances", emptyInstances)

	got, err := newTestProvider(t, fake).VirtualMachines().ListVirtualMachines(context.Background(), cloud.VMFilterOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []string{"DescribeInstances"}, fake.actions())
}

func TestListVirtualMachines_Paginates(t *testing.T) {
	pages := []string{
		`<DescribeInstancesResponse><reservationSet><item><ownerId>1</ownerId><instancesSet>
			<item><instanceId>i-1</instanceId></item>
		</instancesSet></item></reservationSet><nextToken>page-2</nextToken></DescribeInstancesResponse>`,
		`<DescribeInstancesResponse><reservationSet><item><ownerId>1</ownerId><instancesSet>
			<item><instanceId>i-2</instanceId></item>
			<item><instanceState><code>16</code></instanceState></item>
		</instancesSet></item></reservationSet></DescribeInstancesResponse>`,
	}
	var sent []query.Params
	inv := invoker.Func(func(_ context.Context, req invoker.Request) (*document.Document, error) {
		if req.Action() == "DescribeAddresses" {
			return document.ParseString(`<DescribeAddressesResponse><addressesSet/></DescribeAddressesResponse>`)
		}
		sent = append(sent, req.Params)
		return document.ParseString(pages[len(sent)-1])
	})

	got, err := newTestProvider(t, inv).VirtualMachines().ListVirtualMachines(context.Background(),
		cloud.VMFilterOptions{}.WithStates(cloud.VmStateRunning))
	require.NoError(t, err)

	require.Len(t, sent, 2)
	_, ok := sent[0].Get("NextToken")
	assert.False(t, ok)
	assert.Equal(t, "page-2", param(t, sent[1], "NextToken"))
	assert.Equal(t, "running", param(t, sent[1], "Filter.0.Value.0"))

	require.Len(t, got, 2)
	assert.Equal(t, "i-1", got[0].ProviderVirtualMachineID)
	assert.Equal(t, "i-2", got[1].ProviderVirtualMachineID)
	assert.Equal(t, "i-2", got[1].Name)
}

func TestListVirtualMachineStatus(t *testing.T) {
	fake := newFake(t).serve("DescribeInstances", "describe_instances.xml")

	got, err := newTestProvider(t, fake).VirtualMachines().ListVirtualMachineStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []cloud.ResourceStatus[cloud.VmState]{
		{ProviderResourceID: "i-2574e22a", Status: cloud.VmStateRunning},
	}, got)
	assert.Equal(t, []string{"DescribeInstances"}, fake.actions())
}

func TestGetVMStatus(t *testing.T) {
	fake := newFake(t).serve("DescribeInstanceStatus", "describe_instance_status.xml")

	opts := cloud.VmStatusFilterOptions{}.
		WithVmIDs("i-2574e22a", "i-2a2b3c4d").
		WithStatuses(cloud.VmStatusImpaired)

	got, err := newTestProvider(t, fake).VirtualMachines().GetVMStatus(context.Background(), opts)
	require.NoError(t, err)

	params := fake.last("DescribeInstanceStatus")
	assert.Equal(t, "i-2574e22a", param(t, params, "InstanceId.1"))
	assert.Equal(t, "i-2a2b3c4d", param(t, params, "InstanceId.2"))
	assert.Equal(t, "true", param(t, params, "IncludeAllInstances"))
	assert.Equal(t, "system-status.status", param(t, params, "Filter.0.Name"))
	assert.Equal(t, "impaired", param(t, params, "Filter.0.Value.0"))
	assert.Equal(t, "instance-status.status", param(t, params, "Filter.1.Name"))
	assert.Equal(t, "impaired", param(t, params, "Filter.1.Value.0"))

	require.Len(t, got, 1)
	assert.Equal(t, "i-2574e22a", got[0].ProviderVirtualMachineID)
	assert.Equal(t, cloud.VmStatusImpaired, got[0].ProviderHostStatus)
	assert.Equal(t, cloud.VmStatusImpaired, got[0].ProviderVmStatus)
	assert.Equal(t, cloud.VmStateRunning, got[0].CurrentState)
	assert.Equal(t, "us-east-1d", got[0].ProviderDataCenterID)
}

func TestGetVMStatus_NoIDsScansRunningOnly(t *testing.T) {
	fake := newFake(t).serve("DescribeInstanceStatus", "describe_instance_status.xml")

	_, err := newTestProvider(t, fake).VirtualMachines().GetVMStatus(context.Background(), cloud.VmStatusFilterOptions{})
	require.NoError(t, err)

	_, ok := fake.last("DescribeInstanceStatus").Get("IncludeAllInstances")
	assert.False(t, ok)
}

func TestListFirewalls(t *testing.T) {
	fake := newFake(t).serve("DescribeInstances", "describe_instances.xml")

	got, err := newTestProvider(t, fake).VirtualMachines().ListFirewalls(context.Background(), "i-2574e22a")
	require.NoError(t, err)
	assert.Equal(t, []string{"sg-1a2b3c4d", "sg-2a2b3c4d", "sg-3a2b3c4d"}, got)
}

func TestInstanceData(t *testing.T) {
	fake := newFake(t).
		serve("GetPasswordData", "get_password_data.xml").
		serve("DescribeInstanceAttribute", "describe_instance_attribute.xml").
		serve("GetConsoleOutput", "get_console_output.xml")
	vms := newTestProvider(t, fake).VirtualMachines()
	ctx := context.Background()

	password, err := vms.GetPassword(ctx, "i-2574e22a")
	require.NoError(t, err)
	assert.Equal(t, "TGludXggdmVyc2lvbiAyLjYuMTYteGVuVSAoYnVpbGRlckBwYXRjaGJhdC5hbWF6b25zYSkgKGdj", password)
	assert.Equal(t, "i-2574e22a", param(t, fake.last("GetPasswordData"), "InstanceId"))

	userData, err := vms.GetUserData(ctx, "i-2574e22a")
	require.NoError(t, err)
	assert.Equal(t, "exmple_user_data", userData)
	assert.Equal(t, "userData", param(t, fake.last("DescribeInstanceAttribute"), "Attribute"))

	output, err := vms.GetConsoleOutput(ctx, "i-2574e22a")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "Linux version 2.6.16-xenU"), output)
}

func TestGetUserData_BadEncoding(t *testing.T) {
	body := `<DescribeInstanceAttributeResponse><userData><value>%%%</value></userData></DescribeInstanceAttributeResponse>`
	fake := newFake(t).serveBody("DescribeInstanceAttribute", body)

	_, err := newTestProvider(t, fake).VirtualMachines().GetUserData(context.Background(), "i-1")
	assert.ErrorIs(t, err, cloud.ErrInternal)
}

func TestAlterVirtualMachineProduct(t *testing.T) {
	fake := newFake(t).
		serve("ModifyInstanceAttribute", "modify_instance_attribute.xml").
		serve("DescribeInstances", "describe_instances.xml").
		serve("DescribeAddresses", "describe_addresses.xml")

	vm, err := newTestProvider(t, fake).VirtualMachines().AlterVirtualMachineProduct(context.Background(), "i-2574e22a", "m1.large")
	require.NoError(t, err)
	require.NotNil(t, vm)

	params := fake.last("ModifyInstanceAttribute")
	assert.Equal(t, "i-2574e22a", param(t, params, "InstanceId"))
	assert.Equal(t, "m1.large", param(t, params, "InstanceType.Value"))
	assert.Equal(t, []string{"ModifyInstanceAttribute", "DescribeInstances", "DescribeAddresses"}, fake.actions())
}

func TestAlterVirtualMachineProduct_Rejected(t *testing.T) {
	body := `<ModifyInstanceAttributeResponse><return>false</return></ModifyInstanceAttributeResponse>`
	fake := newFake(t).serveBody("ModifyInstanceAttribute", body)

	vm, err := newTestProvider(t, fake).VirtualMachines().AlterVirtualMachineProduct(context.Background(), "i-2574e22a", "m1.large")
	assert.Nil(t, vm)
	assert.ErrorIs(t, err, cloud.ErrInternal)
	assert.Equal(t, []string{"ModifyInstanceAttribute"}, fake.actions())
}

func TestAlterVirtualMachineFirewalls(t *testing.T) {
	fake := newFake(t).
		serve("ModifyInstanceAttribute", "modify_instance_attribute.xml").
		serve("DescribeInstances", "describe_instances.xml").
		serve("DescribeAddresses", "describe_addresses.xml")
	vms := newTestProvider(t, fake).VirtualMachines()

	_, err := vms.AlterVirtualMachineFirewalls(context.Background(), "i-2574e22a", []string{"sg-1a2b3c4d", "sg-2a2b3c4d"})
	require.NoError(t, err)

	params := fake.last("ModifyInstanceAttribute")
	assert.Equal(t, "sg-1a2b3c4d", param(t, params, "GroupId.1"))
	assert.Equal(t, "sg-2a2b3c4d", param(t, params, "GroupId.2"))
	_, zeroBased := params.Get("GroupId.0")
	assert.False(t, zeroBased)

	_, err = vms.AlterVirtualMachineFirewalls(context.Background(), "i-2574e22a", nil)
	assert.Error(t, err)
}

func TestInstanceActions(t *testing.T) {
	tests := []struct {
		action string
		call   func(cloud.VirtualMachineSupport) error
		force  bool
	}{
		{"MonitorInstances", func(v cloud.VirtualMachineSupport) error { return v.EnableAnalytics(context.Background(), "i-2574e22a") }, false},
		{"UnmonitorInstances", func(v cloud.VirtualMachineSupport) error { return v.DisableAnalytics(context.Background(), "i-2574e22a") }, false},
		{"StartInstances", func(v cloud.VirtualMachineSupport) error { return v.Start(context.Background(), "i-2574e22a") }, false},
		{"StopInstances", func(v cloud.VirtualMachineSupport) error { return v.Stop(context.Background(), "i-2574e22a", false) }, false},
		{"StopInstances", func(v cloud.VirtualMachineSupport) error { return v.Stop(context.Background(), "i-2574e22a", true) }, true},
		{"RebootInstances", func(v cloud.VirtualMachineSupport) error { return v.Reboot(context.Background(), "i-2574e22a") }, false},
		{"TerminateInstances", func(v cloud.VirtualMachineSupport) error { return v.Terminate(context.Background(), "i-2574e22a") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			fake := newFake(t).serve(tt.action, "stop_instances.xml")

			require.NoError(t, tt.call(newTestProvider(t, fake).VirtualMachines()))

			params := fake.last(tt.action)
			assert.Equal(t, "i-2574e22a", param(t, params, "InstanceId.1"))
			force, ok := params.Get("Force")
			assert.Equal(t, tt.force, ok)
			if tt.force {
				assert.Equal(t, "true", force)
			}
		})
	}
}

func TestInstanceActions_Fault(t *testing.T) {
	boom := fault(invoker.ServiceEC2, "TerminateInstances", "OperationNotPermitted")
	fake := newFake(t).fail("TerminateInstances", boom)

	err := newTestProvider(t, fake).VirtualMachines().Terminate(context.Background(), "i-2574e22a")
	assert.ErrorIs(t, err, boom)

	var cerr *cloud.CloudError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "OperationNotPermitted", cerr.Code)
}
