package compiler

// Compile parses, standardizes and linearizes RPAL source.
func Compile(src string) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return CompileTree(root)
}

// CompileTree standardizes a raw tree in place and builds its control
// structures.
func CompileTree(root *Node) (*Program, error) {
	if err := Standardize(root); err != nil {
		return nil, err
	}
	return Build(root)
}
