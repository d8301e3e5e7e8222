package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cirrus/pkg/cloud"
)

const reservations = `<?xml version="1.0" encoding="UTF-8"?>
<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>fdcdcab1-ae5c-489e-9c33-4637c5dda355</requestId>
  <reservationSet>
    <item>
      <reservationId>r-1a2b3c4d</reservationId>
      <ownerId>123456789012</ownerId>
      <instancesSet>
        <item>
          <instanceId> i-1 </instanceId>
          <instanceState><code>16</code><name>running</name></instanceState>
          <launchTime>2014-03-18T21:47:02.000Z</launchTime>
          <ebsOptimized>true</ebsOptimized>
          <amiLaunchIndex>2</amiLaunchIndex>
          <groupSet>
            <item><groupId>sg-1</groupId></item>
            <item><groupId>sg-2</groupId></item>
          </groupSet>
          <productCodes/>
        </item>
        <item>
          <instanceId>i-2</instanceId>
        </item>
      </instancesSet>
    </item>
    <item>
      <reservationId>r-2</reservationId>
      <instancesSet>
        <item><instanceId>i-3</instanceId></item>
      </instancesSet>
    </item>
  </reservationSet>
  <nextToken>abc</nextToken>
</DescribeInstancesResponse>`

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not xml", "this is not xml <"},
		{"text only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, cloud.ErrInternal)
		})
	}
}

func TestDocument_ItemsPreserveOrder(t *testing.T) {
	doc, err := ParseString(reservations)
	require.NoError(t, err)

	res := doc.Items("reservationSet/item")
	require.Len(t, res, 2)
	assert.Equal(t, "r-1a2b3c4d", res[0].String("reservationId"))
	assert.Equal(t, "r-2", res[1].String("reservationId"))

	instances := res[0].Set("instancesSet")
	require.Len(t, instances, 2)
	assert.Equal(t, "i-1", instances[0].String("instanceId"))
	assert.Equal(t, "i-2", instances[1].String("instanceId"))

	all := doc.Items("reservationSet/item/instancesSet/item")
	require.Len(t, all, 3)
	assert.Equal(t, "i-3", all[2].String("instanceId"))
}

func TestDocument_AbsentPathIsEmpty(t *testing.T) {
	doc, err := ParseString(reservations)
	require.NoError(t, err)

	items := doc.Items("addressesSet/item")
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, "", doc.Text("passwordData"))
}

func TestDocument_Text(t *testing.T) {
	doc, err := ParseString(reservations)
	require.NoError(t, err)

	assert.Equal(t, "abc", doc.Text("nextToken"))
	assert.Equal(t, "", doc.Text("missing"))
}

func TestItem_Accessors(t *testing.T) {
	doc, err := ParseString(reservations)
	require.NoError(t, err)
	it := doc.Items("reservationSet/item/instancesSet/item")[0]

	assert.Equal(t, "running", it.String("instanceState/name"))
	assert.Equal(t, 16, it.Int("instanceState/code"))
	assert.Equal(t, 2, it.Int("amiLaunchIndex"))
	assert.True(t, it.Bool("ebsOptimized"))
	assert.Equal(t, time.Date(2014, 3, 18, 21, 47, 2, 0, time.UTC), it.Time("launchTime"))
	assert.True(t, it.Has("instanceState"))
	assert.True(t, it.Has("productCodes"))
	assert.Equal(t, "running", it.Group("instanceState").String("name"))

	groups := it.Set("groupSet")
	require.Len(t, groups, 2)
	assert.Equal(t, "sg-2", groups[1].String("groupId"))

	// defaults on absence
	assert.Equal(t, "", it.String("missing"))
	assert.Equal(t, "", it.String("missing/deeper"))
	assert.Equal(t, 0, it.Int("instanceState/name"))
	assert.False(t, it.Bool("missing"))
	assert.True(t, it.Time("missing").IsZero())
	assert.False(t, it.Has("missing"))
	assert.NotNil(t, it.Set("productCodes"))
	assert.Empty(t, it.Set("productCodes"))
	assert.False(t, it.Group("missing").Has("anything"))
}

func TestItem_ScalarMembers(t *testing.T) {
	doc, err := ParseString(`<DescribeAutoScalingGroupsResponse>
  <DescribeAutoScalingGroupsResult>
    <AutoScalingGroups>
      <member>
        <AutoScalingGroupName>web</AutoScalingGroupName>
        <AvailabilityZones>
          <member>us-east-1a</member>
          <member>us-east-1b</member>
        </AvailabilityZones>
      </member>
    </AutoScalingGroups>
  </DescribeAutoScalingGroupsResult>
</DescribeAutoScalingGroupsResponse>`)
	require.NoError(t, err)

	groups := doc.Items("DescribeAutoScalingGroupsResult/AutoScalingGroups/member")
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"us-east-1a", "us-east-1b"}, groups[0].Strings("AvailabilityZones"))
	assert.Equal(t, []string{}, groups[0].Strings("LoadBalancerNames"))
}

func TestDocument_Fault(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Fault
	}{
		{
			name: "ec2",
			body: `<Response><Errors><Error><Code>InvalidInstanceID.NotFound</Code>` +
				`<Message>The instance ID 'i-1' does not exist</Message></Error></Errors>` +
				`<RequestID>ea966190-f9aa-478e-9ede-example</RequestID></Response>`,
			want: Fault{
				Code:      "InvalidInstanceID.NotFound",
				Message:   "The instance ID 'i-1' does not exist",
				RequestID: "ea966190-f9aa-478e-9ede-example",
			},
		},
		{
			name: "autoscaling",
			body: `<ErrorResponse xmlns="http://autoscaling.amazonaws.com/doc/2011-01-01/">` +
				`<Error><Type>Sender</Type><Code>OptInRequired</Code><Message>not subscribed</Message></Error>` +
				`<RequestId>req-7</RequestId></ErrorResponse>`,
			want: Fault{Type: "Sender", Code: "OptInRequired", Message: "not subscribed", RequestID: "req-7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.body)
			require.NoError(t, err)

			got, ok := doc.Fault()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	doc, err := ParseString(reservations)
	require.NoError(t, err)
	_, ok := doc.Fault()
	assert.False(t, ok)
}
