package models

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/slurmsync-project/slurmsync/pkg/lib/validate"
)

// ClusterTopology is the parsed declarative cluster definition. It is built
// fresh per provisioning pass and never persisted; only its rendered
// derivatives reach disk.
type ClusterTopology struct {
	SchemaVersion string                  `yaml:"SchemaVersion" json:"SchemaVersion"`
	ClusterName   string                  `yaml:"ClusterName" json:"ClusterName"`
	Region        string                  `yaml:"Region,omitempty" json:"Region,omitempty"`
	InstanceTypes map[string]InstanceType `yaml:"InstanceTypes,omitempty" json:"InstanceTypes,omitempty"`
	Queues        []Queue                 `yaml:"Queues" json:"Queues"`
}

// InstanceType is an advisory catalog entry describing the hardware behind a
// compute resource. Memory and accelerator data flow into the rendered node
// definitions when present.
type InstanceType struct {
	VCPUs        int           `yaml:"VCPUs" json:"VCPUs"`
	Memory       Capacity      `yaml:"Memory,omitempty" json:"Memory,omitempty"`
	Accelerators []Accelerator `yaml:"Accelerators,omitempty" json:"Accelerators,omitempty"`
}

// Accelerator describes a non-CPU consumable attached to an instance type.
type Accelerator struct {
	Name  string `yaml:"Name" json:"Name"`
	Type  string `yaml:"Type,omitempty" json:"Type,omitempty"`
	Count int    `yaml:"Count" json:"Count"`
}

// Queue is a named group of compute resources with shared scheduling policy.
// Document order is significant and preserved through rendering.
type Queue struct {
	Name             string            `yaml:"Name" json:"Name"`
	Default          bool              `yaml:"Default,omitempty" json:"Default,omitempty"`
	MaxTime          string            `yaml:"MaxTime,omitempty" json:"MaxTime,omitempty"`
	Priority         int               `yaml:"Priority,omitempty" json:"Priority,omitempty"`
	ComputeResources []ComputeResource `yaml:"ComputeResources" json:"ComputeResources"`
}

// ComputeResource is an elastically sized node group within a queue. MinCount
// nodes are static (always up); the remainder up to MaxCount are dynamic.
type ComputeResource struct {
	Name         string      `yaml:"Name" json:"Name"`
	InstanceType string      `yaml:"InstanceType" json:"InstanceType"`
	MinCount     int         `yaml:"MinCount,omitempty" json:"MinCount,omitempty"`
	MaxCount     int         `yaml:"MaxCount" json:"MaxCount"`
	GRES         []GRESEntry `yaml:"GRES,omitempty" json:"GRES,omitempty"`
}

// GRESEntry binds a generic resource (e.g. an accelerator) to a compute
// resource.
type GRESEntry struct {
	Name  string `yaml:"Name" json:"Name"`
	Type  string `yaml:"Type,omitempty" json:"Type,omitempty"`
	Count int    `yaml:"Count" json:"Count"`
}

// Capacity is a human-friendly byte quantity ("8GB", "192GB") parsed via
// datasize. It round-trips through YAML as the original string form.
type Capacity struct {
	datasize.ByteSize
}

func (c *Capacity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return c.ByteSize.UnmarshalText([]byte(raw))
}

func (c Capacity) MarshalYAML() (interface{}, error) {
	return c.ByteSize.HR(), nil
}

// MiB returns the capacity in mebibytes, the unit the scheduler's RealMemory
// attribute expects.
func (c Capacity) MiB() uint64 {
	return c.Bytes() / uint64(datasize.MB)
}

const maxClusterNameLength = 40

// Normalize applies schema defaults in place: queue MaxTime falls back to
// INFINITE, and a compute resource without explicit GRES inherits the
// accelerators of its catalog instance type. Explicit GRES always wins.
func (t *ClusterTopology) Normalize() {
	for i := range t.Queues {
		q := &t.Queues[i]
		if q.MaxTime == "" {
			q.MaxTime = "INFINITE"
		}
		for j := range q.ComputeResources {
			cr := &q.ComputeResources[j]
			if len(cr.GRES) > 0 {
				continue
			}
			it, ok := t.InstanceTypes[cr.InstanceType]
			if !ok {
				continue
			}
			for _, acc := range it.Accelerators {
				cr.GRES = append(cr.GRES, GRESEntry{
					Name:  acc.Name,
					Type:  acc.Type,
					Count: acc.Count,
				})
			}
		}
	}
}

// Validate enforces the topology invariants. Every violation is reported
// with a path locator so an operator can find the offending entry in the
// source document. All violations are collected, not just the first.
func (t *ClusterTopology) Validate() error {
	mErr := new(multierror.Error)
	mErr = multierror.Append(mErr,
		validate.NotBlank(t.ClusterName, "ClusterName: must not be empty"),
	)
	if t.ClusterName != "" {
		if len(t.ClusterName) > maxClusterNameLength {
			mErr = multierror.Append(mErr, fmt.Errorf(
				"ClusterName: %q longer than %d characters", t.ClusterName, maxClusterNameLength))
		}
		if !isClusterName(t.ClusterName) {
			mErr = multierror.Append(mErr, fmt.Errorf(
				"ClusterName: %q may only contain lowercase letters, digits and hyphens", t.ClusterName))
		}
	}

	if len(t.Queues) == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("Queues: at least one queue is required"))
	}

	queueNames := make(map[string]struct{}, len(t.Queues))
	defaultQueue := ""
	for i, q := range t.Queues {
		locator := fmt.Sprintf("Queues[%d]", i)
		if _, dup := queueNames[q.Name]; dup {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: duplicate queue name %q", locator, q.Name))
		}
		queueNames[q.Name] = struct{}{}

		if q.Default {
			if defaultQueue != "" {
				mErr = multierror.Append(mErr, fmt.Errorf(
					"%s: queue %q marked Default but %q already is", locator, q.Name, defaultQueue))
			} else {
				defaultQueue = q.Name
			}
		}
		mErr = multierror.Append(mErr, q.validate(locator, t.InstanceTypes))
	}
	return mErr.ErrorOrNil()
}

func (q *Queue) validate(locator string, catalog map[string]InstanceType) error {
	mErr := new(multierror.Error)
	mErr = multierror.Append(mErr,
		validate.NotBlank(q.Name, "%s: queue name must not be empty", locator),
		validate.IsGreaterOrEqualToZero(q.Priority, "%s: Priority %d must not be negative", locator, q.Priority),
	)
	if len(q.ComputeResources) == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("%s: queue %q has no compute resources", locator, q.Name))
	}

	resourceNames := make(map[string]struct{}, len(q.ComputeResources))
	for i, cr := range q.ComputeResources {
		crLocator := fmt.Sprintf("%s.ComputeResources[%d]", locator, i)
		if _, dup := resourceNames[cr.Name]; dup {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: duplicate compute resource name %q", crLocator, cr.Name))
		}
		resourceNames[cr.Name] = struct{}{}
		mErr = multierror.Append(mErr, cr.validate(crLocator, catalog))
	}
	return mErr.ErrorOrNil()
}

func (cr *ComputeResource) validate(locator string, catalog map[string]InstanceType) error {
	mErr := new(multierror.Error)
	mErr = multierror.Append(mErr,
		validate.NotBlank(cr.Name, "%s: compute resource name must not be empty", locator),
		validate.NotBlank(cr.InstanceType, "%s: InstanceType must not be empty", locator),
		validate.IsGreaterOrEqualToZero(cr.MinCount, "%s: MinCount %d must not be negative", locator, cr.MinCount),
		validate.IsGreaterThanZero(cr.MaxCount, "%s: MaxCount %d must be greater than zero", locator, cr.MaxCount),
		validate.IsGreaterOrEqual(cr.MaxCount, cr.MinCount,
			"%s: MinCount %d greater than MaxCount %d", locator, cr.MinCount, cr.MaxCount),
	)

	for i, g := range cr.GRES {
		gLocator := fmt.Sprintf("%s.GRES[%d]", locator, i)
		mErr = multierror.Append(mErr,
			validate.NotBlank(g.Name, "%s: GRES name must not be empty", gLocator),
			validate.IsGreaterThanZero(g.Count, "%s: GRES count %d must be greater than zero", gLocator, g.Count),
		)
	}
	return mErr.ErrorOrNil()
}

// KnownInstanceTypes returns the catalog keys in sorted order.
func (t *ClusterTopology) KnownInstanceTypes() []string {
	keys := maps.Keys(t.InstanceTypes)
	slices.Sort(keys)
	return keys
}

func isClusterName(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the topology.
func (t *ClusterTopology) Copy() *ClusterTopology {
	if t == nil {
		return nil
	}
	out := *t
	out.InstanceTypes = maps.Clone(t.InstanceTypes)
	out.Queues = make([]Queue, len(t.Queues))
	for i, q := range t.Queues {
		out.Queues[i] = q
		out.Queues[i].ComputeResources = make([]ComputeResource, len(q.ComputeResources))
		for j, cr := range q.ComputeResources {
			out.Queues[i].ComputeResources[j] = cr
			out.Queues[i].ComputeResources[j].GRES = slices.Clone(cr.GRES)
		}
	}
	return &out
}

// DefaultQueue returns the name of the queue marked Default, or "".
func (t *ClusterTopology) DefaultQueue() string {
	for _, q := range t.Queues {
		if q.Default {
			return q.Name
		}
	}
	return ""
}

// HasGRES reports whether any compute resource in the topology carries GRES.
func (t *ClusterTopology) HasGRES() bool {
	for _, q := range t.Queues {
		for _, cr := range q.ComputeResources {
			if len(cr.GRES) > 0 {
				return true
			}
		}
	}
	return false
}
