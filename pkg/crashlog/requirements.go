package crashlog

import (
	"sort"
	"strings"
)

// Requirement is a dSYM a report needs, identified by binary UUID
type Requirement struct {
	TargetName string `json:"target_name" yaml:"target_name"`
	UUID       UUID   `json:"uuid" yaml:"uuid"`
}

// Requirements buckets the dSYMs needed by a report.
//
// Recommended dSYMs cover frames that are not symbolicated at all, Optional
// ones cover frames that already show a symbol, and System ones cover OS
// images. A UUID is never both Recommended and Optional.
type Requirements struct {
	Recommended map[UUID]Requirement `json:"recommended" yaml:"recommended"`
	Optional    map[UUID]Requirement `json:"optional" yaml:"optional"`
	System      map[UUID]Requirement `json:"system" yaml:"system"`
}

// NewRequirements builds Requirements from the three buckets, removing from
// optional anything already recommended.
func NewRequirements(recommended, optional, system map[UUID]Requirement) *Requirements {
	r := &Requirements{
		Recommended: make(map[UUID]Requirement, len(recommended)),
		Optional:    make(map[UUID]Requirement, len(optional)),
		System:      make(map[UUID]Requirement, len(system)),
	}
	for k, v := range recommended {
		r.Recommended[k] = v
	}
	for k, v := range optional {
		if _, ok := r.Recommended[k]; !ok {
			r.Optional[k] = v
		}
	}
	for k, v := range system {
		r.System[k] = v
	}
	return r
}

// CombineRequirements unions the buckets of all reqs
func CombineRequirements(reqs ...*Requirements) *Requirements {
	recommended := make(map[UUID]Requirement)
	optional := make(map[UUID]Requirement)
	system := make(map[UUID]Requirement)
	for _, r := range reqs {
		if r == nil {
			continue
		}
		for k, v := range r.Recommended {
			recommended[k] = v
		}
		for k, v := range r.Optional {
			optional[k] = v
		}
		for k, v := range r.System {
			system[k] = v
		}
	}
	return NewRequirements(recommended, optional, system)
}

func resolveRequirements(frames []StackFrame, classify SystemClassifier) *Requirements {
	if classify == nil {
		classify = DefaultSystemClassifier
	}

	recommended := make(map[UUID]Requirement)
	optional := make(map[UUID]Requirement)
	system := make(map[UUID]Requirement)

	for _, frame := range frames {
		if frame.Image == nil {
			continue
		}
		req := Requirement{TargetName: frame.Image.Name, UUID: frame.Image.UUID}
		switch {
		case classify(*frame.Image):
			system[req.UUID] = req
		case frame.Recommended:
			recommended[req.UUID] = req
		default:
			optional[req.UUID] = req
		}
	}

	return NewRequirements(recommended, optional, system)
}

// Sorted returns the recommended and optional dSYMs ordered by target name
// (case-insensitive), then UUID.
func (r *Requirements) Sorted() []Requirement {
	out := make([]Requirement, 0, len(r.Recommended)+len(r.Optional))
	for _, v := range r.Recommended {
		out = append(out, v)
	}
	for _, v := range r.Optional {
		out = append(out, v)
	}
	sortRequirements(out)
	return out
}

// SortedBucket returns a single bucket ordered like Sorted
func SortedBucket(bucket map[UUID]Requirement) []Requirement {
	out := make([]Requirement, 0, len(bucket))
	for _, v := range bucket {
		out = append(out, v)
	}
	sortRequirements(out)
	return out
}

func sortRequirements(reqs []Requirement) {
	sort.Slice(reqs, func(i, j int) bool {
		a, b := strings.ToLower(reqs[i].TargetName), strings.ToLower(reqs[j].TargetName)
		if a != b {
			return a < b
		}
		return reqs[i].UUID < reqs[j].UUID
	})
}

// ExpectedUUIDs returns every UUID in any bucket
func (r *Requirements) ExpectedUUIDs() map[UUID]struct{} {
	out := r.ExpectedNonSystemUUIDs()
	for k := range r.System {
		out[k] = struct{}{}
	}
	return out
}

// ExpectedNonSystemUUIDs returns the recommended and optional UUIDs
func (r *Requirements) ExpectedNonSystemUUIDs() map[UUID]struct{} {
	out := make(map[UUID]struct{}, len(r.Recommended)+len(r.Optional))
	for k := range r.Recommended {
		out[k] = struct{}{}
	}
	for k := range r.Optional {
		out[k] = struct{}{}
	}
	return out
}

// Missing returns the non-system requirements whose UUID is not in found
func (r *Requirements) Missing(found map[UUID]struct{}) []Requirement {
	var out []Requirement
	for _, req := range r.Sorted() {
		if _, ok := found[req.UUID]; !ok {
			out = append(out, req)
		}
	}
	return out
}

// Empty returns true when the report needs no non-system dSYMs
func (r *Requirements) Empty() bool {
	return len(r.Recommended) == 0 && len(r.Optional) == 0
}
