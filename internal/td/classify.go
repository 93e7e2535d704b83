package td

// TerminalGroups splits the terminals reachable from a descriptor into
// buckets by their leaf kind. The counts of the first three buckets feed
// the password salt computation.
type TerminalGroups struct {
	Number   []*Type
	Path     []*Type
	String   []*Type
	Compound []*Type
	Other    []*Type
}

// Counts returns the sizes of the number, string and path buckets.
func (g *TerminalGroups) Counts() (numbers, strings, paths int) {
	return len(g.Number), len(g.String), len(g.Path)
}

// CollectTerminals walks the client graph of t and groups every reachable
// descriptor by kind. Compound descriptors are recorded and descended
// into; anything else lands in exactly one bucket.
func (l *List) CollectTerminals(t *Type) *TerminalGroups {
	g := &TerminalGroups{}
	l.collectTerminals(t, g, 0)
	return g
}

func (l *List) collectTerminals(t *Type, g *TerminalGroups, depth int) {
	if t == nil || depth > len(l.Types)+1 {
		return
	}
	for _, cli := range t.Clients() {
		sub := l.Resolve(cli)
		if sub == nil {
			continue
		}
		switch {
		case sub.IsNumber():
			g.Number = append(g.Number, sub)
		case sub.IsPath():
			g.Path = append(g.Path, sub)
		case sub.IsString():
			g.String = append(g.String, sub)
		case sub.HasClients():
			g.Compound = append(g.Compound, sub)
			l.collectTerminals(sub, g, depth+1)
		default:
			g.Other = append(g.Other, sub)
		}
	}
}
