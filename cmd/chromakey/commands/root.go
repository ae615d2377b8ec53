package commands

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/chromakey"
)

var (
	presetFile string
	keyHex     string
	similarity float64
	smoothness float64
	spill      float64
	bypass     bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chromakey",
	Short: "Real-time chroma keying",
	Long: `chromakey keys video frames against a key color, producing
premultiplied RGBA output with a soft alpha mask and spill suppression.

Keying parameters can be given as flags or loaded from a YAML preset:

  params:
    key_color: {r: 0.05, g: 0.63, b: 0.14}
    similarity: 0.4
    smoothness: 0.08
    spill: 0.1`,
	Version: chromakey.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			chromakey.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&presetFile, "preset", "", "YAML preset file with keying parameters")
	pf.StringVar(&keyHex, "key", "#0da124", "key color as hex RGB")
	pf.Float64Var(&similarity, "similarity", 0.4, "chrominance distance treated as key")
	pf.Float64Var(&smoothness, "smoothness", 0.08, "alpha falloff band width")
	pf.Float64Var(&spill, "spill", 0.1, "spill suppression band and strength")
	pf.BoolVar(&bypass, "bypass", false, "pass frames through unkeyed")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(patternCmd)
}

// loadParams resolves keying parameters: the preset file when given,
// otherwise the flags.
func loadParams() (chromakey.Params, chromakey.Tuning, error) {
	if presetFile != "" {
		return chromakey.LoadPreset(presetFile)
	}
	p := chromakey.Params{
		KeyColor:   chromakey.Hex(keyHex),
		Similarity: similarity,
		Smoothness: smoothness,
		Spill:      spill,
		Bypass:     bypass,
	}
	if err := p.Validate(); err != nil {
		return chromakey.Params{}, chromakey.Tuning{}, err
	}
	return p, chromakey.DefaultTuning(), nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
