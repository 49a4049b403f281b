package cli

import (
	"path/filepath"

	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
)

func (c *CLI) cleanCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "clean <graph>...",
		Short: "Delete nodes not required by the graph's root",
		Long: `Clean removes every node the root does not depend on along with its links and saves
the graph in place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logger := loggerFromContext(cmd.Context())
			for _, path := range args {
				g, err := gshade.LoadFile(path)
				if err != nil {
					return err
				}
				before := len(g.Nodes)
				removed := gshade.DeleteUnreachable(g)
				logger.Debug("cleaned graph", "path", path, "before", before, "removed", removed)
				if removed == 0 {
					printInfo(out, "%s: nothing to remove", filepath.ToSlash(path))
					continue
				}
				if !dryRun {
					if err := gshade.SaveFile(path, g); err != nil {
						return err
					}
				}
				printSuccess(out, "%s: removed %d of %d nodes", filepath.ToSlash(path), removed, before)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report without saving")
	return cmd
}
