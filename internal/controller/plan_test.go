package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/hlsfleet/internal/registry"
)

func TestWorkerNameRoundTrip(t *testing.T) {
	for _, id := range []int{1, 7, 42, 100, 999999} {
		got, ok := ParseChannelID(WorkerName(id))
		require.True(t, ok, "id %d", id)
		require.Equal(t, id, got)
	}
	require.Equal(t, "monitor_service_12", WorkerName(12))
}

func TestParseChannelID_FailsClosed(t *testing.T) {
	for _, name := range []string{
		"",
		"monitor_service_",
		"monitor_service_0",
		"monitor_service_01",
		"monitor_service_-1",
		"monitor_service_+1",
		"monitor_service_1a",
		"monitor_service_1 ",
		"monitor_service_99999999999999999999999",
		"monitor_1",
		"other_service_1",
		"/monitor_service_1",
	} {
		_, ok := ParseChannelID(name)
		require.False(t, ok, "name %q", name)
	}
}

func TestComputePlan_ScenarioA(t *testing.T) {
	desired := []registry.Channel{{ID: 1, Name: "A", URL: "http://x/a.m3u8"}}

	plan := ComputePlan(desired, nil)

	require.Equal(t, desired, plan.ToCreate)
	require.Empty(t, plan.ToRemove)
}

func TestComputePlan_ScenarioB(t *testing.T) {
	actual := []Worker{{ChannelID: 2, Handle: "h2", Name: WorkerName(2), Running: true}}

	plan := ComputePlan(nil, actual)

	require.Empty(t, plan.ToCreate)
	require.Equal(t, actual, plan.ToRemove)
}

func TestComputePlan_EqualSetsIsEmpty(t *testing.T) {
	desired := []registry.Channel{{ID: 3}, {ID: 1}, {ID: 2}}
	actual := []Worker{
		{ChannelID: 2, Running: true},
		{ChannelID: 1, Running: true},
		{ChannelID: 3, Running: true},
	}

	require.True(t, ComputePlan(desired, actual).Empty())
}

func TestComputePlan_StoppedWorkerIsReplaced(t *testing.T) {
	desired := []registry.Channel{{ID: 5}, {ID: 6}}
	actual := []Worker{
		{ChannelID: 5, Handle: "h5", Running: false},
		{ChannelID: 6, Handle: "h6", Running: true},
		{ChannelID: 7, Handle: "h7", Running: false},
	}

	plan := ComputePlan(desired, actual)

	require.Equal(t, []registry.Channel{{ID: 5}}, plan.ToCreate)
	require.Equal(t, []Worker{actual[0], actual[2]}, plan.ToRemove)
}

func TestComputePlan_SortedOutput(t *testing.T) {
	desired := []registry.Channel{{ID: 9}, {ID: 4}, {ID: 6}}
	actual := []Worker{{ChannelID: 8, Running: true}, {ChannelID: 2, Running: true}}

	plan := ComputePlan(desired, actual)

	require.Equal(t, []registry.Channel{{ID: 4}, {ID: 6}, {ID: 9}}, plan.ToCreate)
	require.Equal(t, 2, plan.ToRemove[0].ChannelID)
	require.Equal(t, 8, plan.ToRemove[1].ChannelID)
}
