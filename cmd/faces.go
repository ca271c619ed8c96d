package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/people"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "List and review detected faces",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List faces by status or person",
	Long: `List faces by status or person.

Statuses: confirmed_root, confirmed_user, predicted, unassigned, ignored, removed.

Examples:
  photo-library faces list --status predicted
  photo-library faces list --person 4`,
	Args: cobra.NoArgs,
	RunE: runFacesList,
}

var facesReviewCmd = &cobra.Command{
	Use:   "review ACTION FACE_ID [PERSON_ID]",
	Short: "Confirm, ignore, remove or reset a face",
	Long: `Apply a manual review action to a face.

  confirm FACE_ID PERSON_ID   assign the face to a person as ground truth
  ignore FACE_ID              exclude the face from recognition
  remove FACE_ID              mark the face as a false detection
  reset FACE_ID               hand the face back to the recognizer`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runFacesReview,
}

var facesThumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "Regenerate face thumbnails",
	Args:  cobra.NoArgs,
	RunE:  runFacesThumbnails,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesReviewCmd)
	facesCmd.AddCommand(facesThumbnailsCmd)

	facesListCmd.Flags().String("status", "unassigned", "Face status")
	facesListCmd.Flags().Int64("person", -1, "Person ID (overrides --status)")
	facesListCmd.Flags().Bool("json", false, "Output as JSON")
	facesThumbnailsCmd.Flags().String("status", "", "Only faces with this status")
}

func runFacesList(cmd *cobra.Command, args []string) error {
	a, err := openStore()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()

	var list []database.Face
	if personID := mustGetInt64(cmd, "person"); personID >= 0 {
		list, err = a.store.ListFacesByPerson(ctx, personID)
	} else {
		status, ok := database.ParseFaceStatus(mustGetString(cmd, "status"))
		if !ok {
			return fmt.Errorf("unknown status %q", mustGetString(cmd, "status"))
		}
		list, err = a.store.ListFacesByStatus(ctx, status)
	}
	if err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No faces found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tPERSON\tSTATUS\tUNCERTAINTY\tRECT")
	fmt.Fprintln(w, "--\t----\t------\t------\t-----------\t----")
	for _, f := range list {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%.3f\t%.0fx%.0f@%.0f,%.0f\n",
			f.ID, f.FileID, f.PersonID, f.Status, f.Uncertainty, f.RectW, f.RectH, f.RectX, f.RectY)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d faces\n", len(list))
	return nil
}

func runFacesReview(cmd *cobra.Command, args []string) error {
	action := args[0]
	faceID, err := parseID(args[1], "face")
	if err != nil {
		return err
	}

	return withPeople(func(ctx context.Context, svc *people.Service) error {
		switch action {
		case "confirm":
			if len(args) != 3 {
				return errors.New("confirm needs a PERSON_ID")
			}
			personID, perr := parseID(args[2], "person")
			if perr != nil {
				return perr
			}
			err = svc.ConfirmFace(ctx, faceID, personID)
		case "ignore":
			err = svc.IgnoreFace(ctx, faceID)
		case "remove":
			err = svc.RemoveFace(ctx, faceID)
		case "reset":
			err = svc.ResetFace(ctx, faceID)
		default:
			return fmt.Errorf("unknown action %q", action)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Face %d: %s\n", faceID, action)
		return nil
	})
}

func runFacesThumbnails(cmd *cobra.Command, args []string) error {
	a, err := openPipeline()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()

	statuses := []database.FaceStatus{
		database.FaceConfirmedRoot, database.FaceConfirmedUser, database.FacePredicted,
		database.FaceUnassigned, database.FaceIgnored, database.FaceRemoved,
	}
	if name := mustGetString(cmd, "status"); name != "" {
		status, ok := database.ParseFaceStatus(name)
		if !ok {
			return fmt.Errorf("unknown status %q", name)
		}
		statuses = []database.FaceStatus{status}
	}
	list, err := a.store.ListFacesByStatus(ctx, statuses...)
	if err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}

	bar := progressbar.NewOptions(len(list),
		progressbar.OptionSetDescription("Regenerating thumbnails"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	failed := 0
	for _, f := range list {
		if err := a.detector.RefreshThumbnail(ctx, f.ID); err != nil {
			a.logger.Warn("failed to refresh thumbnail", "face_id", f.ID, "error", err)
			failed++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Printf("\nRegenerated %d thumbnails (%d failed)\n", len(list)-failed, failed)
	return nil
}
