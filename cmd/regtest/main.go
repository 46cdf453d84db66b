// Command regtest registers two cycle images and prints the resulting
// transform, for tuning detection parameters on new data.
package main

import (
	"flag"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"iris-caller/internal/imageio"
	"iris-caller/internal/registration"
)

func main() {
	ref := flag.String("r", "", "Path to reference image")
	target := flag.String("t", "", "Path to target image")
	method := flag.String("m", "brisk", "Detection method (brisk or orb)")
	warpOut := flag.String("w", "", "Optional path to write the warped target (PNG)")
	flag.Parse()

	if *ref == "" || *target == "" {
		fmt.Println("Usage: regtest -r <reference> -t <target> [-m brisk|orb] [-w out.png]")
		os.Exit(1)
	}

	refMat, err := imageio.ReadGray(*ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read reference: %v\n", err)
		os.Exit(1)
	}
	defer refMat.Close()

	tgtMat, err := imageio.ReadGray(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read target: %v\n", err)
		os.Exit(1)
	}
	defer tgtMat.Close()

	opts := registration.DefaultOptions()
	opts.Method, err = registration.ParseMethod(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Registering %s onto %s (%s) ===\n", *target, *ref, opts.Method)
	transform, err := registration.Register(refMat, tgtMat, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registration failed (identity fallback): %v\n", err)
	}

	m := transform.ToMatrix()
	fmt.Printf("[% .6f % .6f % .3f]\n", m[0][0], m[0][1], m[0][2])
	fmt.Printf("[% .6f % .6f % .3f]\n", m[1][0], m[1][1], m[1][2])

	if *warpOut != "" {
		warped := registration.Warp(tgtMat, transform, refMat.Cols(), refMat.Rows())
		defer warped.Close()
		if ok := gocv.IMWrite(*warpOut, warped); !ok {
			fmt.Fprintf(os.Stderr, "Failed to write %s\n", *warpOut)
			os.Exit(1)
		}
		fmt.Printf("Wrote warped target to %s\n", *warpOut)
	}
}
