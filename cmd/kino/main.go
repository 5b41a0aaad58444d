// Package main provides the Kino ML Framework CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kino-ml/kino/backend/cpu"
	"github.com/kino-ml/kino/resnet3d"
	"github.com/kino-ml/kino/tensor"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Kino ML Framework %s\n", version)
	case "models":
		listModels()
	case "smoke":
		if err := smoke(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Kino ML Framework - 3D ResNet backbones for video")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version          Show version")
	fmt.Println("  models           List available model variants")
	fmt.Println("  smoke [flags]    Run a forward pass on a random clip")
	fmt.Println("")
	fmt.Println("Smoke flags:")
	fmt.Println("  -model string    Variant name (default \"resnet18\")")
	fmt.Println("  -size int        Spatial sample size (default 112)")
	fmt.Println("  -duration int    Frames per clip (default 16)")
	fmt.Println("  -features        Run without the classifier head")
}

func listModels() {
	fmt.Println("Available variants:")
	for _, name := range resnet3d.VariantNames() {
		fmt.Printf("  %s\n", name)
	}
}

func smoke(args []string) error {
	fs := flag.NewFlagSet("smoke", flag.ExitOnError)
	model := fs.String("model", "resnet18", "variant name")
	size := fs.Int("size", 112, "spatial sample size")
	duration := fs.Int("duration", 16, "frames per clip")
	features := fs.Bool("features", false, "run without the classifier head")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend := cpu.New()
	config := resnet3d.Config{
		SampleSize:     *size,
		SampleDuration: *duration,
		NoHead:         *features,
	}

	net, err := resnet3d.NewByName(*model, config, backend)
	if err != nil {
		return err
	}
	net.SetTraining(false)

	fmt.Printf("Model: %s (%d blocks per stage: %v)\n", *model, sum(net.BlocksPerStage()), net.BlocksPerStage())
	fmt.Printf("Input: [1, 3, %d, %d, %d]\n", *duration, *size, *size)

	clip := tensor.Randn[float32](tensor.Shape{1, 3, *duration, *size, *size}, backend)

	start := time.Now()
	output := net.Forward(clip)
	elapsed := time.Since(start)

	fmt.Printf("Output: %v in %s\n", output.Shape(), elapsed.Round(time.Millisecond))
	return nil
}

func sum(counts [4]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
