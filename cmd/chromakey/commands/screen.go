package commands

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/chromakey"
	"github.com/gogpu/chromakey/source"
)

var (
	screenFrames uint64
	screenFPS    int
	screenRegion []int
)

var screenCmd = &cobra.Command{
	Use:   "screen <output.png>",
	Short: "Key live screen captures",
	Long: `Run the compositor over a live screen-capture track for a number of
frames and write the final keyed surface as a PNG.

Examples:
  chromakey screen keyed.png
  chromakey screen --frames 120 --fps 30 keyed.png
  chromakey screen --region 0,0,1280,720 keyed.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, tuning, err := loadParams()
		if err != nil {
			return err
		}

		track, err := newScreenTrack()
		if err != nil {
			return err
		}
		defer track.Close()

		comp := chromakey.New(params,
			chromakey.WithTuning(tuning),
			chromakey.WithPacer(chromakey.NewTickerPacer(time.Second/time.Duration(screenFPS))),
		)
		defer comp.Teardown()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := comp.Attach(ctx, track); err != nil {
			return err
		}

		// Poll until the scheduler has produced enough frames.
		sched := comp.Scheduler()
		for sched.FrameCount() < screenFrames {
			select {
			case <-ctx.Done():
				return fmt.Errorf("timed out after %d of %d frames: %w",
					sched.FrameCount(), screenFrames, ctx.Err())
			case <-time.After(10 * time.Millisecond):
			}
		}
		comp.Detach()

		if err := savePNG(args[0], comp.Surface().Snapshot()); err != nil {
			return err
		}
		fmt.Printf("keyed %d frames -> %s\n", sched.FrameCount(), args[0])
		return nil
	},
}

func newScreenTrack() (*source.ScreenTrack, error) {
	if len(screenRegion) == 0 {
		return source.NewScreenTrack()
	}
	if len(screenRegion) != 4 {
		return nil, fmt.Errorf("region wants x,y,width,height, got %d values", len(screenRegion))
	}
	r := image.Rect(screenRegion[0], screenRegion[1],
		screenRegion[0]+screenRegion[2], screenRegion[1]+screenRegion[3])
	return source.NewScreenRegionTrack(r), nil
}

func init() {
	screenCmd.Flags().Uint64Var(&screenFrames, "frames", 60, "number of frames to composite")
	screenCmd.Flags().IntVar(&screenFPS, "fps", 30, "compositing rate")
	screenCmd.Flags().IntSliceVar(&screenRegion, "region", nil, "capture region as x,y,width,height (default whole screen)")
}
