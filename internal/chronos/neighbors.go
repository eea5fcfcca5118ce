package chronos

// Neighbors returns the one-hop neighborhood of path: notes it links to plus
// notes linking to it. path itself and targets with no backing note are
// left out.
func Neighbors(g Graph, path string) Set {
	out := Set{}
	collect := func(paths map[string]int) {
		for p := range paths {
			if p == path {
				continue
			}
			if _, ok := g.NoteByPath(p); ok {
				out.Add(p)
			}
		}
	}
	collect(g.ResolvedLinks(path))
	collect(g.Backlinks(path))
	return out
}

// SecondHop returns the neighborhood of neighbor with source removed, i.e.
// the notes two hops away from source through neighbor.
func SecondHop(g Graph, source, neighbor string) Set {
	out := Neighbors(g, neighbor)
	delete(out, source)
	return out
}
