package main

import (
	"fmt"
	"os"
	"time"

	"github.com/esimov/meanface"
	"github.com/esimov/meanface/utils"
	"github.com/spf13/cobra"
)

var landmarksOpts struct {
	in           string
	cascadeDir   string
	deleteErrors bool
}

var landmarksCmd = &cobra.Command{
	Use:   "landmarks",
	Short: "Detect the facial landmarks of every image of a directory and write their sidecar files",
	RunE:  runLandmarks,
}

func init() {
	f := landmarksCmd.Flags()
	f.StringVar(&landmarksOpts.in, "in", "", "Directory holding the face images")
	f.StringVar(&landmarksOpts.cascadeDir, "cascade-dir", "", "Directory holding the facefinder, puploc and lps cascades")
	f.BoolVar(&landmarksOpts.deleteErrors, "delete-errors", false, "Delete the images in which no face is detected")

	landmarksCmd.MarkFlagRequired("in")
}

func runLandmarks(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("cascade-dir") {
		cfg.Landmarks.CascadeDir = landmarksOpts.cascadeDir
	}
	if cmd.Flags().Changed("delete-errors") {
		cfg.Landmarks.DeleteErrors = landmarksOpts.deleteErrors
	}

	detector, err := meanface.NewPigoDetector(cfg.Landmarks.CascadeDir)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ MEANFACE", utils.StatusMessage),
		utils.DecorateText("⇢ detecting facial landmarks...", utils.DefaultMessage),
	)
	spinner := utils.NewSpinner(os.Stderr, msg, 80*time.Millisecond, true)
	spinner.Start()

	now := time.Now()
	res, err := meanface.BuildLandmarkDatabase(cmd.Context(), landmarksOpts.in, detector, meanface.DatabaseOptions{
		DeleteErrors: cfg.Landmarks.DeleteErrors,
		Workers:      cfg.Average.Workers,
		Logger:       log,
		Progress: func(done, total int) {
			spinner.SetStatus(fmt.Sprintf("%d/%d", done, total))
		},
	})
	if err != nil {
		spinner.StopMsg = fmt.Sprintf("%s %s\n", msg, utils.DecorateText("✘", utils.ErrorMessage))
		spinner.Stop()
		return err
	}
	spinner.StopMsg = fmt.Sprintf("%s %s\n", msg, utils.DecorateText("✔", utils.SuccessMessage))
	spinner.Stop()

	fmt.Fprintf(os.Stderr, "\n%s written, %d failed\n",
		utils.DecorateText(utils.Plural(res.Written, "landmark file", "landmark files"), utils.SuccessMessage),
		res.Failed,
	)
	fmt.Fprintf(os.Stderr, "Execution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage),
	)
	return nil
}
