package controller

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tamzrod/hlsfleet/internal/registry"
)

// WorkerPrefix is the runtime name prefix of every monitor worker.
// The name is the only link between a runtime entity and its channel.
const WorkerPrefix = "monitor_service_"

// WorkerName is the runtime name for channelID's worker.
func WorkerName(channelID int) string {
	return WorkerPrefix + strconv.Itoa(channelID)
}

// ParseChannelID decodes a name produced by WorkerName.
// Only canonical names decode: positive decimal, no sign, no leading zeros.
func ParseChannelID(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, WorkerPrefix)
	if !ok || s == "" || s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Worker is one runtime entity that decoded to a channel.
type Worker struct {
	ChannelID int
	Handle    string
	Name      string
	Running   bool
}

// Plan is the reconciliation diff for one pass. Never carried across passes.
type Plan struct {
	ToCreate []registry.Channel // sorted by id
	ToRemove []Worker           // sorted by channel id
}

func (p Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToRemove) == 0
}

// ComputePlan diffs desired against actual by channel id.
// A stopped worker whose channel is still desired is removed and recreated.
// desired must not contain duplicate ids.
func ComputePlan(desired []registry.Channel, actual []Worker) Plan {
	want := make(map[int]struct{}, len(desired))
	for _, ch := range desired {
		want[ch.ID] = struct{}{}
	}

	have := make(map[int]Worker, len(actual))
	var plan Plan

	for _, w := range actual {
		have[w.ChannelID] = w
		if _, ok := want[w.ChannelID]; !ok || !w.Running {
			plan.ToRemove = append(plan.ToRemove, w)
		}
	}

	for _, ch := range desired {
		w, ok := have[ch.ID]
		if !ok || !w.Running {
			plan.ToCreate = append(plan.ToCreate, ch)
		}
	}

	sort.Slice(plan.ToCreate, func(i, j int) bool { return plan.ToCreate[i].ID < plan.ToCreate[j].ID })
	sort.Slice(plan.ToRemove, func(i, j int) bool { return plan.ToRemove[i].ChannelID < plan.ToRemove[j].ChannelID })

	return plan
}
