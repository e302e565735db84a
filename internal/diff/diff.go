// Package diff computes the minimal set of staged operations that bring a
// remote universe configuration in line with a local one. The diff only
// creates and updates flags: entries that exist remotely but not locally are
// left untouched, so a sync can never destroy remote state.
package diff

import (
	"sort"

	"github.com/OutOfBears/rbx-configs/internal/flagset"
)

// Kind is the type of a staged operation.
type Kind string

const (
	Create Kind = "create"
	Update Kind = "update"
)

// Operation is a single create or update to stage against a draft.
type Operation struct {
	Kind Kind
	Name string
	Flag flagset.Flag
}

// Compute returns the operations needed to make remote match local, ordered
// by flag name. Flags equal on both sides produce nothing; remote-only flags
// are never touched. Equal inputs yield an empty diff.
func Compute(remote, local flagset.Set) []Operation {
	names := make([]string, 0, len(local))
	for name := range local {
		names = append(names, name)
	}
	sort.Strings(names)

	var ops []Operation
	for _, name := range names {
		want := local[name]
		have, exists := remote[name]
		switch {
		case !exists:
			ops = append(ops, Operation{Kind: Create, Name: name, Flag: want})
		case !have.Equal(want):
			ops = append(ops, Operation{Kind: Update, Name: name, Flag: want})
		}
	}
	return ops
}
