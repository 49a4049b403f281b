package gshade

// MarkReachable clears the reachable flag of every node and then marks the root
// and every node that feeds, directly or transitively, one of a marked node's inputs.
// Nodes already marked are not revisited so cyclic graphs terminate.
func MarkReachable(g *Graph) {
	for _, n := range g.Nodes {
		n.Base().reachable = false
	}
	root := g.Root()
	if root == nil {
		return
	}
	markReachable(g, root)
}

func markReachable(g *Graph, n Node) {
	nb := n.Base()
	if nb.reachable {
		return
	}
	nb.reachable = true
	id := nb.ID
	for _, l := range g.Links {
		if l.To.Node != id {
			continue
		}
		src := g.Node(l.From.Node)
		if src != nil {
			markReachable(g, src)
		}
	}
}

// DeleteUnreachable removes every node not required by the root along with their links.
// It returns the amount of nodes removed.
func DeleteUnreachable(g *Graph) int {
	MarkReachable(g)
	kept := g.Nodes[:0]
	removed := 0
	for _, n := range g.Nodes {
		if n.Base().reachable {
			kept = append(kept, n)
		} else {
			removed++
		}
	}
	for i := len(kept); i < len(g.Nodes); i++ {
		g.Nodes[i] = nil
	}
	g.Nodes = kept
	if removed > 0 {
		g.Links = deleteLinks(g.Links, func(l Link) bool {
			return g.Node(l.From.Node) == nil || g.Node(l.To.Node) == nil
		})
	}
	return removed
}
