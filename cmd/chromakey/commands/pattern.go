package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/chromakey"
)

var (
	patternWidth  int
	patternHeight int
)

var patternCmd = &cobra.Command{
	Use:   "pattern <output.png>",
	Short: "Write the diagnostic gradient pattern",
	Long: `Write the compositor's diagnostic gradient: red increases left to
right, green top to bottom. Useful for verifying that a downstream
presentation path displays the surface with the correct orientation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if patternWidth <= 0 || patternHeight <= 0 {
			return fmt.Errorf("invalid pattern size %dx%d", patternWidth, patternHeight)
		}
		surface := chromakey.NewSurface(patternWidth, patternHeight)
		chromakey.RenderPattern(surface)
		return savePNG(args[0], surface.Snapshot())
	},
}

func init() {
	patternCmd.Flags().IntVar(&patternWidth, "width", 1280, "pattern width in pixels")
	patternCmd.Flags().IntVar(&patternHeight, "height", 720, "pattern height in pixels")
}
