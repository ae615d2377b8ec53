package commands

import (
	"fmt"

	// Decoders for the input image.
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/cobra"

	"github.com/gogpu/chromakey"
)

var keyCmd = &cobra.Command{
	Use:   "key <input> <output.png>",
	Short: "Key a still image",
	Long: `Key a still image against the key color and write the result as a
PNG with premultiplied alpha.

Examples:
  chromakey key greenscreen.png keyed.png
  chromakey key --preset studio.yaml take42.jpg keyed.png
  chromakey key --key "#1a7f2e" --similarity 0.35 input.png output.png`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, tuning, err := loadParams()
		if err != nil {
			return err
		}

		img, err := loadImage(args[0])
		if err != nil {
			return err
		}

		frame := chromakey.FrameFromImage(img)
		surface := chromakey.NewSurface(frame.Width(), frame.Height())
		keyer := chromakey.NewKeyer(params, tuning)
		if !keyer.Apply(frame, surface) {
			return fmt.Errorf("keying failed for %dx%d frame", frame.Width(), frame.Height())
		}

		if err := savePNG(args[1], surface.Snapshot()); err != nil {
			return err
		}
		fmt.Printf("keyed %s (%dx%d) -> %s\n", args[0], frame.Width(), frame.Height(), args[1])
		return nil
	},
}
