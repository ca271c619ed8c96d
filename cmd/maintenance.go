package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-library/internal/orchestrator"
	"github.com/kozaktomas/photo-library/internal/recognition"
)

var scanCmd = &cobra.Command{
	Use:   "scan ROOT_ID",
	Short: "Record new folders and files of a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoot(args[0], func(ctx context.Context, a *app, rootID int64) error {
			if err := a.orch.Scan(ctx, rootID); err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			fmt.Printf("Scanned root %d\n", rootID)
			return nil
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune ROOT_ID",
	Short: "Delete records of files and folders gone from disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoot(args[0], func(ctx context.Context, a *app, rootID int64) error {
			if err := a.orch.Prune(ctx, rootID); err != nil {
				return fmt.Errorf("prune failed: %w", err)
			}
			fmt.Printf("Pruned root %d\n", rootID)
			return nil
		})
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect ROOT_ID",
	Short: "Detect faces in the unscanned images of a root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRoot(args[0], func(ctx context.Context, a *app, rootID int64) error {
			n, err := a.orch.Detect(ctx, rootID)
			fmt.Printf("Detected %d faces\n", n)
			if err != nil {
				return fmt.Errorf("detection failed: %w", err)
			}
			return nil
		})
	},
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Retrain on confirmed faces and classify the rest",
	Args:  cobra.NoArgs,
	RunE:  runRecognize,
}

var updateCmd = &cobra.Command{
	Use:   "update [ROOT_ID]",
	Short: "Run scan, prune, props, detect and recognize",
	Long: `Run the full maintenance sequence on one root, or on every root with --all.
Roots are processed concurrently up to WORKERS; a failing root does not
stop the others.

Examples:
  photo-library update 1
  photo-library update --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(updateCmd)

	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
	updateCmd.Flags().Bool("all", false, "Update every root")
	updateCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// withRoot opens the pipeline and runs fn for the root named by arg
func withRoot(arg string, fn func(ctx context.Context, a *app, rootID int64) error) error {
	rootID, err := parseID(arg, "root")
	if err != nil {
		return err
	}
	a, err := openPipeline()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(context.Background(), a, rootID)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	a, err := openPipeline()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.orch.Recognize(context.Background())
	if errors.Is(err, recognition.ErrNoTrainingData) {
		fmt.Println("No confirmed faces to train on; confirm some faces first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}
	if mustGetBool(cmd, "json") {
		return printJSON(res)
	}
	printRecognition(res)
	return nil
}

func printRecognition(res recognition.Result) {
	fmt.Printf("Trained on %d faces (%d skipped)\n", res.Trained, res.Skipped)
	fmt.Printf("Matched:      %d\n", res.Matched)
	fmt.Printf("Unknown:      %d\n", res.Unknown)
	fmt.Printf("Inconclusive: %d\n", res.Inconclusive)
	if res.Failed > 0 {
		fmt.Printf("Failed:       %d\n", res.Failed)
	}
	if res.Reviewed > 0 {
		fmt.Printf("Reviewed:     %d\n", res.Reviewed)
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	all := mustGetBool(cmd, "all")
	jsonOutput := mustGetBool(cmd, "json")
	if all == (len(args) == 1) {
		return errors.New("pass either a ROOT_ID or --all")
	}

	if !all {
		return withRoot(args[0], func(ctx context.Context, a *app, rootID int64) error {
			res, err := a.orch.Update(ctx, rootID)
			if jsonOutput && res != nil {
				if perr := printJSON(res); perr != nil {
					return perr
				}
			} else if res != nil {
				printUpdate(res)
			}
			if err != nil {
				return fmt.Errorf("update of root %d failed: %w", rootID, err)
			}
			return nil
		})
	}

	a, err := openPipeline()
	if err != nil {
		return err
	}
	defer a.close()
	return updateAll(context.Background(), a, jsonOutput)
}

// updateAll updates every root and reports progress as jobs finish
func updateAll(ctx context.Context, a *app, jsonOutput bool) error {
	roots, err := a.store.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list roots: %w", err)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(roots),
			progressbar.OptionSetDescription("Updating roots"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("roots"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	var infos []orchestrator.JobInfo
	failures, err := a.orch.UpdateAll(ctx, func(info orchestrator.JobInfo) {
		infos = append(infos, info)
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if jsonOutput {
		if err := printJSON(infos); err != nil {
			return err
		}
	} else {
		ids := make([]int64, 0, len(failures))
		for id := range failures {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Printf("Root %d failed: %v\n", id, failures[id])
		}
		fmt.Printf("Updated %d of %d roots\n", len(roots)-len(failures), len(roots))
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d roots failed to update", len(failures))
	}
	return nil
}

func printUpdate(res *orchestrator.UpdateResult) {
	fmt.Printf("Root %d: %d files, %d bytes\n", res.RootID, res.Props.FileCount, res.Props.Length)
	fmt.Printf("Detected %d faces\n", res.Faces)
	switch {
	case res.NoTrainingData:
		fmt.Println("No confirmed faces to train on; recognition skipped.")
	case res.Recognition != nil:
		printRecognition(*res.Recognition)
	}
}
