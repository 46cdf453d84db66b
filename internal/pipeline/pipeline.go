// Package pipeline wires import, detection, consensus and reporting into one
// synchronous run. Cycles are processed strictly in order: registration pins
// every cycle to the first cycle's reference, and deduplication is re-run on
// the full accumulated candidate set after each cycle's collection.
package pipeline

import (
	"fmt"

	"iris-caller/internal/barcode"
	"iris-caller/internal/detect"
	"iris-caller/internal/imageio"
	"iris-caller/internal/report"
	"iris-caller/pkg/config"
)

// Format selects the instrument data layout.
type Format string

const (
	FormatKe  Format = "ke"
	FormatEng Format = "eng"
	FormatLee Format = "lee"
)

// ParseFormat maps a CLI string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatKe, FormatEng, FormatLee:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown input format %q (want ke, eng or lee)", s)
}

// Run executes the full barcode-calling pipeline and writes the read report
// to outPath. Input errors are fatal; registration failures inside the import
// step degrade to identity transforms and the run completes.
func Run(cfg *config.Config, format Format, inputs []string, outPath string) error {
	stack, err := decode(cfg, format, inputs)
	if err != nil {
		return err
	}
	defer stack.Close()

	detector := detect.NewBlobDetector()
	cube := barcode.NewCube()

	for cycleID := range stack.Cycles {
		calls, err := detector.DetectCycle(stack.Cycles[cycleID].Channels[:])
		if err != nil {
			return fmt.Errorf("cycle %d: detect: %w", cycleID, err)
		}

		cube.Collect(calls)
		cube.Dedupe(stack.Std.Cols(), stack.Std.Rows(), cfg.Consensus.FootprintSize)

		if cfg.Output.Verbose {
			fmt.Printf("cycle %d: %d calls, %d consensus candidates\n",
				cycleID, len(calls), len(cube.Candidates()))
		}
	}

	cube.Adjust(cfg.Consensus.WindowLow, cfg.Consensus.WindowHigh)

	if err := report.WriteReadsFile(outPath, cube); err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Printf("wrote %d reads across %d cycles to %s\n",
			len(cube.Candidates()), cube.CycleCount(), outPath)
	}
	return nil
}

func decode(cfg *config.Config, format Format, inputs []string) (*imageio.Stack, error) {
	switch format {
	case FormatEng:
		return imageio.DecodeEng(inputs, cfg)
	case FormatLee:
		return imageio.DecodeLee(inputs, cfg)
	default:
		return imageio.DecodeKe(inputs, cfg)
	}
}
