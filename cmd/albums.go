package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/albums"
)

var albumsCmd = &cobra.Command{
	Use:   "albums",
	Short: "Manage albums",
}

var albumsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the album tree with file counts",
	Args:  cobra.NoArgs,
	RunE:  runAlbumsList,
}

var albumsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an album",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsCreate,
}

var albumsAddCmd = &cobra.Command{
	Use:   "add ALBUM_ID FILE_ID...",
	Short: "Add files to an album",
	Long: `Add files to an album. A file added to a sub-album is removed from
the sub-album's ancestors, so it is listed only at its most specific level.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAlbumsAdd,
}

var albumsDeleteCmd = &cobra.Command{
	Use:   "delete ALBUM_ID",
	Short: "Delete an album and its sub-albums",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbumsDelete,
}

func init() {
	rootCmd.AddCommand(albumsCmd)
	albumsCmd.AddCommand(albumsListCmd)
	albumsCmd.AddCommand(albumsCreateCmd)
	albumsCmd.AddCommand(albumsAddCmd)
	albumsCmd.AddCommand(albumsDeleteCmd)

	albumsListCmd.Flags().Bool("json", false, "Output as JSON")
	albumsCreateCmd.Flags().Int64("parent", 0, "Parent album ID (0 = top level)")
}

// withAlbums opens the database and runs fn with an album service
func withAlbums(fn func(ctx context.Context, svc *albums.Service) error) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(context.Background(), albums.NewService(a.store, a.logger))
}

func runAlbumsList(cmd *cobra.Command, args []string) error {
	return withAlbums(func(ctx context.Context, svc *albums.Service) error {
		tree, err := svc.Tree(ctx, 0)
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return printJSON(tree)
		}
		if len(tree) == 0 {
			fmt.Println("No albums found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tALBUM\tFILES")
		fmt.Fprintln(w, "--\t-----\t-----")
		var walk func(nodes []albums.Node, depth int)
		walk = func(nodes []albums.Node, depth int) {
			for _, n := range nodes {
				fmt.Fprintf(w, "%d\t%s%s\t%d\n", n.ID, strings.Repeat("  ", depth), n.Name, n.FileCount)
				walk(n.Children, depth+1)
			}
		}
		walk(tree, 0)
		w.Flush()
		return nil
	})
}

func runAlbumsCreate(cmd *cobra.Command, args []string) error {
	parentID := mustGetInt64(cmd, "parent")
	return withAlbums(func(ctx context.Context, svc *albums.Service) error {
		a, err := svc.Create(ctx, args[0], parentID)
		if err != nil {
			return err
		}
		path, err := svc.Path(ctx, a.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Created album %d (%s)\n", a.ID, path)
		return nil
	})
}

func runAlbumsAdd(cmd *cobra.Command, args []string) error {
	albumID, err := parseID(args[0], "album")
	if err != nil {
		return err
	}
	fileIDs := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := parseID(arg, "file")
		if err != nil {
			return err
		}
		fileIDs = append(fileIDs, id)
	}

	return withAlbums(func(ctx context.Context, svc *albums.Service) error {
		for _, id := range fileIDs {
			if err := svc.AddFile(ctx, albumID, id); err != nil {
				return fmt.Errorf("file %d: %w", id, err)
			}
		}
		fmt.Printf("Added %d files to album %d\n", len(fileIDs), albumID)
		return nil
	})
}

func runAlbumsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "album")
	if err != nil {
		return err
	}
	return withAlbums(func(ctx context.Context, svc *albums.Service) error {
		if err := svc.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted album %d\n", id)
		return nil
	})
}
