package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/people"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage people and person groups",
}

var peopleListCmd = &cobra.Command{
	Use:   "list [QUERY]",
	Short: "List people, optionally filtered by name",
	Long: `List people whose name contains QUERY. Matching ignores case,
diacritics and punctuation, so "novak" finds "Jan Novák".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPeopleList,
}

var peopleAddCmd = &cobra.Command{
	Use:   "add FULL_NAME",
	Short: "Add a person",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleAdd,
}

var peopleDeleteCmd = &cobra.Command{
	Use:   "delete PERSON_ID",
	Short: "Delete a person; their faces become unassigned",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleDelete,
}

var groupsAddCmd = &cobra.Command{
	Use:   "add-group NAME",
	Short: "Add a person group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsAdd,
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete-group GROUP_ID",
	Short: "Delete a group; its people move to Ungrouped",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDelete,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleAddCmd)
	peopleCmd.AddCommand(peopleDeleteCmd)
	peopleCmd.AddCommand(groupsAddCmd)
	peopleCmd.AddCommand(groupsDeleteCmd)

	peopleListCmd.Flags().Bool("json", false, "Output as JSON")
	peopleAddCmd.Flags().Int64("group", 0, "Group ID (0 = Ungrouped)")
}

// withPeople opens the database and runs fn with a people service
func withPeople(fn func(ctx context.Context, svc *people.Service) error) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(context.Background(), people.NewService(a.store, a.logger))
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	return withPeople(func(ctx context.Context, svc *people.Service) error {
		list, err := svc.FindByName(ctx, query)
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No people found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tGROUP")
		fmt.Fprintln(w, "--\t----\t-----")
		for _, p := range list {
			fmt.Fprintf(w, "%d\t%s\t%d\n", p.ID, p.FullName, p.GroupID)
		}
		w.Flush()
		fmt.Printf("\nTotal: %d people\n", len(list))
		return nil
	})
}

func runPeopleAdd(cmd *cobra.Command, args []string) error {
	groupID := mustGetInt64(cmd, "group")
	return withPeople(func(ctx context.Context, svc *people.Service) error {
		p, err := svc.Create(ctx, args[0], groupID)
		if err != nil {
			return err
		}
		fmt.Printf("Created person %d (%s)\n", p.ID, p.FullName)
		return nil
	})
}

func runPeopleDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "person")
	if err != nil {
		return err
	}
	return withPeople(func(ctx context.Context, svc *people.Service) error {
		if err := svc.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted person %d\n", id)
		return nil
	})
}

func runGroupsAdd(cmd *cobra.Command, args []string) error {
	return withPeople(func(ctx context.Context, svc *people.Service) error {
		g, err := svc.CreateGroup(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created group %d (%s)\n", g.ID, g.Name)
		return nil
	})
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "group")
	if err != nil {
		return err
	}
	return withPeople(func(ctx context.Context, svc *people.Service) error {
		if err := svc.DeleteGroup(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted group %d\n", id)
		return nil
	})
}
