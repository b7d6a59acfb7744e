package renderer

import (
	"fmt"
	"strings"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// The view types below are what the templates actually see. All naming and
// lookup logic happens here so the templates stay pure text assembly and can
// never fail on a parser-validated topology.

type topologyView struct {
	ClusterName     string
	Queues          []queueView
	SuspendExcNodes string // comma-joined static ranges; "" when none
}

type queueView struct {
	Name       string
	Default    bool
	MaxTime    string
	Priority   int
	NodeSet    string
	NodeList   string // comma-joined ranges of all groups in the queue
	NodeGroups []nodeGroupView
}

type nodeGroupView struct {
	// Range is the scheduler node-range expression, e.g.
	// "queue-a-st-general-[1-4]".
	Range         string
	Static        bool
	Count         int
	Resource      string
	InstanceType  string
	CPUs          int    // 0 means unknown, omitted from output
	RealMemoryMiB uint64 // 0 means unknown, omitted from output
	Gres          string // "gpu:t4:1" form, "" when the group has none
	Feature       string
}

type gresView struct {
	ClusterName string
	Nodes       []gresNodeView
}

type gresNodeView struct {
	Range string
	Name  string
	Type  string
	Count int
	File  string // "" when the resource has no device file convention
}

// buildTopologyView expands every compute resource into its static and
// dynamic node groups, in document order. MinCount nodes are static;
// MaxCount-MinCount are dynamic. Empty groups are skipped.
func buildTopologyView(t *models.ClusterTopology) topologyView {
	view := topologyView{ClusterName: t.ClusterName}
	var staticRanges []string

	for _, q := range t.Queues {
		qv := queueView{
			Name:     q.Name,
			Default:  q.Default,
			MaxTime:  q.MaxTime,
			Priority: q.Priority,
			NodeSet:  q.Name + "-nodes",
		}
		for _, cr := range q.ComputeResources {
			it, known := t.InstanceTypes[cr.InstanceType]

			if cr.MinCount > 0 {
				group := newNodeGroupView(q.Name, cr, it, known, true, cr.MinCount)
				qv.NodeGroups = append(qv.NodeGroups, group)
				staticRanges = append(staticRanges, group.Range)
			}
			if dynamic := cr.MaxCount - cr.MinCount; dynamic > 0 {
				qv.NodeGroups = append(qv.NodeGroups, newNodeGroupView(q.Name, cr, it, known, false, dynamic))
			}
		}
		ranges := make([]string, 0, len(qv.NodeGroups))
		for _, g := range qv.NodeGroups {
			ranges = append(ranges, g.Range)
		}
		qv.NodeList = strings.Join(ranges, ",")
		view.Queues = append(view.Queues, qv)
	}

	view.SuspendExcNodes = strings.Join(staticRanges, ",")
	return view
}

func newNodeGroupView(
	queueName string,
	cr models.ComputeResource,
	it models.InstanceType,
	catalogued bool,
	static bool,
	count int,
) nodeGroupView {
	kind := "dy"
	feature := "dynamic"
	if static {
		kind = "st"
		feature = "static"
	}
	group := nodeGroupView{
		Range:        fmt.Sprintf("%s-%s-%s-[1-%d]", queueName, kind, cr.Name, count),
		Static:       static,
		Count:        count,
		Resource:     cr.Name,
		InstanceType: cr.InstanceType,
		Gres:         gresString(cr.GRES),
		Feature:      fmt.Sprintf("%s,%s", feature, cr.InstanceType),
	}
	if catalogued {
		group.CPUs = it.VCPUs
		group.RealMemoryMiB = it.Memory.MiB()
	}
	return group
}

// gresString renders a GRES descriptor set in the scheduler's
// "name:type:count" form, comma-joined. The type segment is dropped when the
// entry has no type.
func gresString(entries []models.GRESEntry) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, g := range entries {
		if g.Type != "" {
			parts = append(parts, fmt.Sprintf("%s:%s:%d", g.Name, g.Type, g.Count))
		} else {
			parts = append(parts, fmt.Sprintf("%s:%d", g.Name, g.Count))
		}
	}
	return strings.Join(parts, ",")
}

// buildGresView lists one line per (node group, GRES entry) pair, in
// topology order. Only gpu-named resources get a device file range.
func buildGresView(t *models.ClusterTopology, tv topologyView) gresView {
	view := gresView{ClusterName: t.ClusterName}
	for _, q := range t.Queues {
		for _, cr := range q.ComputeResources {
			if len(cr.GRES) == 0 {
				continue
			}
			for _, group := range nodeGroupsForResource(tv, q.Name, cr.Name) {
				for _, g := range cr.GRES {
					node := gresNodeView{
						Range: group.Range,
						Name:  g.Name,
						Type:  g.Type,
						Count: g.Count,
					}
					if g.Name == "gpu" {
						node.File = fmt.Sprintf("/dev/nvidia[0-%d]", g.Count-1)
					}
					view.Nodes = append(view.Nodes, node)
				}
			}
		}
	}
	return view
}

func nodeGroupsForResource(tv topologyView, queueName, resourceName string) []nodeGroupView {
	var groups []nodeGroupView
	for _, q := range tv.Queues {
		if q.Name != queueName {
			continue
		}
		for _, g := range q.NodeGroups {
			if g.Resource == resourceName {
				groups = append(groups, g)
			}
		}
	}
	return groups
}
