package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-graphviz"
	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
)

func (c *CLI) dotCommand() *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "dot <graph>",
		Short: "Render a graph as a node-link diagram",
		Long: `Dot writes the graph's nodes and links in Graphviz DOT format or renders them to SVG.
Nodes not required by the root are drawn dashed and nodes holding errors are drawn red.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := c.newRegistry(ctx)
			if err != nil {
				return err
			}
			g, err := c.loadGraph(args[0], reg)
			if err != nil {
				return err
			}
			_, err = c.compileGraph(g) // Populates reachability and node errors.
			if err != nil {
				return err
			}
			dot := graphToDOT(g)
			var data []byte
			switch format {
			case "dot":
				data = []byte(dot)
			case "svg":
				data, err = renderSVG(ctx, dot)
				if err != nil {
					return err
				}
			default:
				return errors.WithHint(errors.Newf("unknown format %q", format), "use dot or svg")
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, standard output if empty")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	return cmd
}

// graphToDOT converts g to Graphviz DOT. Links point from the producing node to the consumer.
func graphToDOT(g *gshade.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n\n")
	for _, n := range g.Nodes {
		nb := n.Base()
		attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n))}
		if !nb.Reachable() {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
		}
		if nb.Err() != "" {
			attrs = append(attrs, "color=red", fmt.Sprintf("tooltip=%q", nb.Err()))
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", nb.ID, strings.Join(attrs, ", "))
	}
	buf.WriteString("\n")
	root := g.Root()
	for _, l := range g.Links {
		label := fmt.Sprintf("%d→%d", l.From.Index, l.To.Index)
		if root != nil && l.To.Node == root.Base().ID && root.Base().Kind != gshade.KindFunctionOutput {
			label = gshade.OutputFieldName(int(l.To.Index))
		}
		fmt.Fprintf(&buf, "  n%d -> n%d [label=%q];\n", l.From.Node, l.To.Node, label)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n gshade.Node) string {
	nb := n.Base()
	label := fmt.Sprintf("%s #%d", nb.Kind, nb.ID)
	switch node := n.(type) {
	case *gshade.ConstantNode:
		label += fmt.Sprintf("\n%g", node.Value[0])
	case *gshade.OperatorNode:
		label += "\n" + node.Op.String()
	case *gshade.BuiltinNode:
		label += "\n" + node.Func.String()
	case *gshade.SwizzleNode:
		label += "\n." + node.Swizzle
	case *gshade.ParamNode:
		label += "\n" + node.Name
	case *gshade.SampleNode:
		label += "\n" + node.Texture
	case *gshade.StaticSwitchNode:
		label += "\n" + node.Define
	case *gshade.FunctionCallNode:
		label += "\n" + node.Path
	case *gshade.FunctionInputNode:
		label += "\n" + node.Type.String() + " " + node.Name
	}
	return label
}

// renderSVG renders DOT source to SVG using the embedded Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(err, "render")
	}
	return buf.Bytes(), nil
}
