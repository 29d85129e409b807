// Package policy decides who may submit attendance for a center or space.
//
// Authorization is an exact match against a static allow-list table. The
// table ships embedded in the binary and can be replaced by a YAML file.
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/attendance-ledger-api/internal/models"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// SpacePolicy is the allow-list of one space inside a subdivided center
type SpacePolicy struct {
	Name         string   `yaml:"name" json:"name"`
	Coordinators []string `yaml:"coordinators" json:"coordinators"`
}

// CenterPolicy is the allow-list of one center
type CenterPolicy struct {
	Name         string        `yaml:"name" json:"name"`
	Coordinators []string      `yaml:"coordinators" json:"coordinators"`
	Spaces       []SpacePolicy `yaml:"spaces,omitempty" json:"spaces,omitempty"`
}

type document struct {
	Centers []CenterPolicy `yaml:"centers"`
}

// Decision is the result of an authorization check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type centerEntry struct {
	coordinators map[string]bool
	spaces       map[string]map[string]bool
	spaceOrder   []string
}

// Table is an immutable, loaded access policy. It is safe for concurrent use.
type Table struct {
	entries []CenterPolicy
	centers map[models.Center]*centerEntry
}

// Default returns the embedded policy table
func Default() (*Table, error) {
	return Parse(defaultPolicy)
}

// Load reads a policy table from path, or the embedded default when path is empty
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return Parse(data)
}

// Parse builds a table from YAML
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling policy: %w", err)
	}
	if len(doc.Centers) == 0 {
		return nil, fmt.Errorf("policy defines no centers")
	}

	t := &Table{centers: make(map[models.Center]*centerEntry, len(doc.Centers))}
	for i, c := range doc.Centers {
		name := models.Center(strings.TrimSpace(c.Name))
		if name == "" {
			return nil, fmt.Errorf("center %d: missing name", i+1)
		}
		if _, dup := t.centers[name]; dup {
			return nil, fmt.Errorf("center %q listed twice", name)
		}

		entry := &centerEntry{coordinators: toSet(c.Coordinators)}
		if len(c.Spaces) > 0 {
			entry.spaces = make(map[string]map[string]bool, len(c.Spaces))
			for _, s := range c.Spaces {
				space := strings.TrimSpace(s.Name)
				if space == "" {
					return nil, fmt.Errorf("center %q: space without a name", name)
				}
				if _, dup := entry.spaces[space]; dup {
					return nil, fmt.Errorf("center %q: space %q listed twice", name, space)
				}
				entry.spaces[space] = toSet(s.Coordinators)
				entry.spaceOrder = append(entry.spaceOrder, space)
			}
		}
		t.centers[name] = entry
		t.entries = append(t.entries, c)
	}
	return t, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	return set
}

// CanSubmit reports whether submitter may record attendance for center and
// space. Matching is exact. A center with spaces authorizes against the
// space's own list and requires a space.
func (t *Table) CanSubmit(center models.Center, space, submitter string) Decision {
	entry, ok := t.centers[center]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown center %q", center)}
	}
	if submitter == "" {
		return Decision{Reason: "no submitter in session"}
	}

	if entry.spaces == nil {
		if !entry.coordinators[submitter] {
			return Decision{Reason: fmt.Sprintf("%s is not a coordinator of %s", submitter, center)}
		}
		return Decision{Allowed: true}
	}

	if space == "" || space == models.GeneralSpace {
		return Decision{Reason: fmt.Sprintf("%s requires a space", center)}
	}
	allowed, ok := entry.spaces[space]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown space %q at %s", space, center)}
	}
	if !allowed[submitter] {
		return Decision{Reason: fmt.Sprintf("%s is not a coordinator of %s / %s", submitter, center, space)}
	}
	return Decision{Allowed: true}
}

// Subdivided reports whether center authorizes per space
func (t *Table) Subdivided(center models.Center) bool {
	entry, ok := t.centers[center]
	return ok && entry.spaces != nil
}

// Spaces lists the spaces of center in policy order, or nil when it has none
func (t *Table) Spaces(center models.Center) []string {
	entry, ok := t.centers[center]
	if !ok || entry.spaceOrder == nil {
		return nil
	}
	out := make([]string, len(entry.spaceOrder))
	copy(out, entry.spaceOrder)
	return out
}

// Centers lists the configured centers in policy order
func (t *Table) Centers() []models.Center {
	out := make([]models.Center, 0, len(t.entries))
	for _, c := range t.entries {
		out = append(out, models.Center(strings.TrimSpace(c.Name)))
	}
	return out
}

// Coordinators lists every name appearing anywhere in the table, once,
// in order of first appearance.
func (t *Table) Coordinators() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for _, c := range t.entries {
		add(c.Coordinators)
		for _, s := range c.Spaces {
			add(s.Coordinators)
		}
	}
	return out
}

// Entries returns the table as loaded, for display
func (t *Table) Entries() []CenterPolicy {
	out := make([]CenterPolicy, len(t.entries))
	copy(out, t.entries)
	return out
}
