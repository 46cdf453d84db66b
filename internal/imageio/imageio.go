// Package imageio imports per-cycle channel images and registers every cycle
// onto the reference frame fixed by the first cycle.
//
// Three instrument layouts are supported: Ke-style cycle directories with one
// grayscale TIFF per channel, Eng-style channel files in groups of four per
// round, and Lee-style (FISSEQ) directories whose channels arrive already
// registered.
package imageio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"iris-caller/internal/registration"
	"iris-caller/pkg/config"
)

// Fatal input errors: the run aborts immediately on either.
var (
	ErrNoCycles        = errors.New("imageio: no cycle inputs supplied")
	ErrChannelGrouping = errors.New("imageio: input count incompatible with channel grouping")
)

// Cycle holds one imaging cycle's base channels (A, T, C, G order),
// registered onto the reference frame.
type Cycle struct {
	Channels [4]gocv.Mat
}

// Stack is the imported image set for a whole run.
type Stack struct {
	Cycles []Cycle

	// Std is the standard image from the first cycle. Its shape is the
	// canvas reference for coordinate deduplication and it accompanies the
	// final report.
	Std gocv.Mat
}

// Close releases every Mat held by the stack.
func (s *Stack) Close() {
	for i := range s.Cycles {
		for j := range s.Cycles[i].Channels {
			s.Cycles[i].Channels[j].Close()
		}
	}
	s.Std.Close()
}

// registrationOptions maps config onto the registration engine's options.
func registrationOptions(cfg *config.Config) registration.Options {
	opts := registration.DefaultOptions()
	if m, err := registration.ParseMethod(cfg.Registration.Method); err == nil {
		opts.Method = m
	}
	opts.BlurKernel = cfg.Registration.BlurKernel
	opts.GradientKernel = cfg.Registration.GradientKernel
	opts.GradientIterations = cfg.Registration.GradientIterations
	opts.RANSACIterations = cfg.Registration.RANSACIterations
	opts.InlierThreshold = cfg.Registration.InlierThreshold
	return opts
}

// DecodeKe imports Ke-style data: one directory per cycle containing the
// grayscale channels Y5 (A), FAM (T), TXR (C), Y3 (G) and DAPI (background).
func DecodeKe(cycleDirs []string, cfg *config.Config) (*Stack, error) {
	if len(cycleDirs) < 1 {
		return nil, ErrNoCycles
	}

	opts := registrationOptions(cfg)
	stack := &Stack{Std: gocv.NewMat()}
	regRef := gocv.NewMat()
	defer func() { regRef.Close() }()

	channelFiles := [5]string{"Y5.tif", "FAM.tif", "TXR.tif", "Y3.tif", "DAPI.tif"}

	for cycleID, dir := range cycleDirs {
		var channels [5]gocv.Mat
		for i, name := range channelFiles {
			m, err := ReadGray(filepath.Join(dir, name))
			if err != nil {
				stack.Close()
				return nil, fmt.Errorf("cycle %d: %w", cycleID, err)
			}
			channels[i] = m
		}

		// Merge the base channels with the background for a registration
		// image; the blend weights can decide whether registration succeeds.
		foreground := sumMats(channels[0], channels[1], channels[2], channels[3])
		merged := gocv.NewMat()
		gocv.AddWeighted(foreground, cfg.Import.ForegroundWeight,
			channels[4], cfg.Import.BackgroundWeight, 0, &merged)

		if cycleID == 0 {
			regRef.Close()
			regRef = merged.Clone()

			std := gocv.NewMat()
			gocv.AddWeighted(foreground, cfg.Import.StdForegroundWeight,
				channels[4], cfg.Import.StdBackgroundWeight, 0, &std)
			stack.Std.Close()
			stack.Std = std
		}
		foreground.Close()

		var cycle Cycle
		t, err := registration.Register(regRef, merged, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cycle %d: registration failed, keeping identity: %v\n", cycleID, err)
		}
		merged.Close()

		for i := 0; i < 4; i++ {
			cycle.Channels[i] = registration.Warp(channels[i], t, stack.Std.Cols(), stack.Std.Rows())
			channels[i].Close()
		}
		channels[4].Close()

		stack.Cycles = append(stack.Cycles, cycle)

		if cfg.Output.Verbose {
			fmt.Printf("cycle %d: imported and registered (%s)\n", cycleID, dir)
		}
	}

	return stack, nil
}

// DecodeEng imports Eng-style data: grayscale channel files in groups of four
// per round, the fourth being the Alexa-488 channel that labels every spot.
func DecodeEng(files []string, cfg *config.Config) (*Stack, error) {
	if len(files) < 1 {
		return nil, ErrNoCycles
	}
	if len(files)%4 != 0 {
		return nil, fmt.Errorf("%w: %d files, want a multiple of 4", ErrChannelGrouping, len(files))
	}

	opts := registrationOptions(cfg)
	stack := &Stack{Std: gocv.NewMat()}
	regRef := gocv.NewMat()
	defer func() { regRef.Close() }()

	for group := 0; group < len(files); group += 4 {
		cycleID := group / 4

		var channels [4]gocv.Mat
		for i := 0; i < 4; i++ {
			m, err := ReadGray(files[group+i])
			if err != nil {
				stack.Close()
				return nil, fmt.Errorf("round %d: %w", cycleID, err)
			}
			channels[i] = m
		}

		if cycleID == 0 {
			regRef.Close()
			regRef = sumMats(channels[0], channels[1], channels[2], channels[3])
			stack.Std.Close()
			stack.Std = channels[3].Clone()
		}

		// The Alexa-488 channel labels all spots and drives registration.
		t, err := registration.Register(regRef, channels[3], opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "round %d: registration failed, keeping identity: %v\n", cycleID, err)
		}

		var cycle Cycle
		for i := 0; i < 4; i++ {
			cycle.Channels[i] = registration.Warp(channels[i], t, regRef.Cols(), regRef.Rows())
			channels[i].Close()
		}
		stack.Cycles = append(stack.Cycles, cycle)

		if cfg.Output.Verbose {
			fmt.Printf("round %d: imported and registered\n", cycleID)
		}
	}

	return stack, nil
}

// DecodeLee imports Lee-style (FISSEQ) data, which arrives pre-registered:
// one directory per cycle with channels f3_T_<cycle>_C_00..04.tif, channel 00
// being the background.
func DecodeLee(cycleDirs []string, cfg *config.Config) (*Stack, error) {
	if len(cycleDirs) < 1 {
		return nil, ErrNoCycles
	}

	stack := &Stack{Std: gocv.NewMat()}

	for cycleID, dir := range cycleDirs {
		background, err := ReadGray(filepath.Join(dir, fmt.Sprintf("f3_T_%02d_C_00.tif", cycleID)))
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("cycle %d: %w", cycleID, err)
		}

		if cycleID == 0 {
			stack.Std.Close()
			stack.Std = background
		} else {
			background.Close()
		}

		var cycle Cycle
		for i := 0; i < 4; i++ {
			name := fmt.Sprintf("f3_T_%02d_C_%02d.tif", cycleID, i+1)
			m, err := ReadGray(filepath.Join(dir, name))
			if err != nil {
				stack.Close()
				return nil, fmt.Errorf("cycle %d: %w", cycleID, err)
			}
			cycle.Channels[i] = m
		}
		stack.Cycles = append(stack.Cycles, cycle)

		if cfg.Output.Verbose {
			fmt.Printf("cycle %d: imported (%s, pre-registered)\n", cycleID, dir)
		}
	}

	return stack, nil
}

// sumMats adds the given single-channel mats into a new Mat.
func sumMats(mats ...gocv.Mat) gocv.Mat {
	dst := mats[0].Clone()
	for _, m := range mats[1:] {
		gocv.Add(dst, m, &dst)
	}
	return dst
}
