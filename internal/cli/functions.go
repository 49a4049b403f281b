package cli

import (
	"fmt"
	"strings"

	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
)

func (c *CLI) functionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List function graphs available to call nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := c.newRegistry(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			paths := reg.Paths()
			if len(paths) == 0 {
				printInfo(out, "no function graphs in %s", c.cfg.FunctionsDir)
				return nil
			}
			for _, path := range paths {
				g, _ := reg.Lookup(path)
				sig, err := formatSignature(g)
				if err != nil {
					printError(out, "%s: %v", path, err)
					continue
				}
				fmt.Fprintln(out, styleValue.Render(path)+" "+styleDim.Render(sig))
			}
			return nil
		},
	}
}

// formatSignature formats the signature of a function graph as "(float a, vec3 b) vec4".
func formatSignature(g *gshade.Graph) (string, error) {
	params, ret, err := gshade.Signature(g)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type.GLSL())
		if p.Name != "" {
			sb.WriteByte(' ')
			sb.WriteString(p.Name)
		}
	}
	sb.WriteString(") ")
	sb.WriteString(ret.GLSL())
	return sb.String(), nil
}
