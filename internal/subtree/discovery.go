package subtree

import (
	"os"
	"path"
	"path/filepath"
)

// StoreKind classifies what a candidate subtree path holds in place of
// repository metadata.
type StoreKind int

const (
	// NoMetadata means the candidate has no .git entry at all.
	NoMetadata StoreKind = iota

	// ReferenceMarker means the .git entry is a plain file, a gitdir link
	// used by a different embedding mechanism. Not recursable, not an error.
	ReferenceMarker

	// IndependentStore means the candidate carries its own full metadata
	// directory whose config may declare further subtrees.
	IndependentStore
)

// Store is the result of probing one candidate subtree path.
type Store struct {
	Kind     StoreKind
	Mappings []Mapping
}

// Discover probes dir/rel for an independent repository metadata store and,
// when one exists, returns the subtree mappings it declares. Mapping paths are
// composed under rel, the one ancestor level visible here; a walk descending
// from an outer root composes the remaining ancestry itself. RelativePath
// stays relative to the probed subtree, which is the working directory its
// pushes will run in.
//
// The only error returned is an unreadable config inside an otherwise valid
// store; callers downgrade it to "no mappings".
func Discover(dir, rel string) (Store, error) {
	meta := filepath.Join(dir, filepath.FromSlash(rel), ".git")
	info, err := os.Stat(meta)
	if err != nil {
		return Store{Kind: NoMetadata}, nil
	}
	if !info.IsDir() {
		return Store{Kind: ReferenceMarker}, nil
	}

	mappings, err := LoadMappings(meta)
	if err != nil {
		return Store{Kind: IndependentStore}, err
	}
	for i := range mappings {
		mappings[i].Path = path.Join(rel, mappings[i].RelativePath)
	}
	return Store{Kind: IndependentStore, Mappings: mappings}, nil
}
