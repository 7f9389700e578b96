package exprlang

// Identifiers parses src and returns every dotted identifier path it
// references (e.g. "trigger.payload.id" -> []string{"trigger","payload","id"}),
// in the order they appear. It is used by the static analyzer (spec §4.2) to
// check scope without evaluating the expression. A parse error is returned
// unchanged so the analyzer can surface it as a syntax error.
func Identifiers(src string) ([][]string, error) {
	n, err := parseCached(src)
	if err != nil {
		return nil, err
	}
	var out [][]string
	collectIdentifiers(n, &out)
	return out, nil
}

// TemplateIdentifiers extracts identifiers from every {{ ... }} region of a
// template string, per-region, returning a parse error from the first
// malformed region it encounters.
func TemplateIdentifiers(s string) ([][]string, error) {
	regions, err := scanTemplate(s)
	if err != nil {
		return nil, err
	}
	var out [][]string
	for _, r := range regions {
		if !r.isExpr {
			continue
		}
		ids, err := Identifiers(r.text)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

func collectIdentifiers(n *node, out *[][]string) {
	if n == nil {
		return
	}
	switch n.kind {
	case nodeIdent:
		*out = append(*out, n.path)
	case nodeList:
		for _, item := range n.items {
			collectIdentifiers(item, out)
		}
	case nodeCall:
		for _, arg := range n.args {
			collectIdentifiers(arg, out)
		}
	case nodeUnary:
		collectIdentifiers(n.operand, out)
	case nodeBinary:
		collectIdentifiers(n.left, out)
		collectIdentifiers(n.right, out)
	}
}
