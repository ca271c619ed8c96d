package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/library"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Manage library roots",
}

var rootsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all roots",
	Args:  cobra.NoArgs,
	RunE:  runRootsList,
}

var rootsAddCmd = &cobra.Command{
	Use:   "add NAME PATH",
	Short: "Register a directory as a new root",
	Long: `Register a directory as a new root. The root's folder tree is empty
until the first scan.

Examples:
  photo-library roots add Family /srv/photos/family
  photo-library scan 1`,
	Args: cobra.ExactArgs(2),
	RunE: runRootsAdd,
}

func init() {
	rootCmd.AddCommand(rootsCmd)
	rootsCmd.AddCommand(rootsListCmd)
	rootsCmd.AddCommand(rootsAddCmd)

	rootsListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRootsList(cmd *cobra.Command, args []string) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.close()

	roots, err := a.store.ListRoots(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list roots: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(roots)
	}
	if len(roots) == 0 {
		fmt.Println("No roots found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH\tCREATED")
	fmt.Fprintln(w, "--\t----\t----\t-------")
	for _, r := range roots {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Name, r.RealPath, r.Created.Format("2006-01-02"))
	}
	w.Flush()
	return nil
}

func runRootsAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.close()

	root, err := a.store.CreateRoot(context.Background(), args[0], library.NormalizeRealPath(path))
	if err != nil {
		return fmt.Errorf("failed to create root: %w", err)
	}
	fmt.Printf("Created root %d (%s) at %s\n", root.ID, root.Name, root.RealPath)
	return nil
}
