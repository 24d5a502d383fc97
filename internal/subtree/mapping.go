package subtree

// DefaultBranch is the remote branch a mapping targets when the configuration
// does not name one.
const DefaultBranch = "main"

// Mapping binds one subtree prefix to the remote repository receiving its
// history. Mappings are read-only snapshots of the configuration at run
// start and are never mutated.
type Mapping struct {
	// Path is the subtree prefix relative to the repository the walk started
	// from. For nested mappings it is composed through every ancestor.
	Path string

	// URL identifies the remote endpoint. It is passed through to git
	// verbatim, no parsing of its contents happens anywhere in this tool.
	URL string

	// Branch is the remote branch receiving the push.
	Branch string

	// RelativePath is the prefix relative to the immediate parent subtree.
	// Commands for a nested subtree run with the parent's checkout as the
	// working directory, so this is the prefix git actually sees. Equal to
	// Path for top-level mappings.
	RelativePath string
}
