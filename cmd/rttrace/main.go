// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command rttrace renders one frame of a small demo scene with the ray
// tracing orchestrator and saves it to a PNG file.
//
// It always renders with the CPU reference traversal
// (raytrace.WithSoftwareFallback(true)), since a real GPU device handle
// requires a host windowing/context library this module doesn't depend on;
// it has no flag that selects the GPU path.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/raytrace"
)

func main() {
	var (
		width    = flag.Uint("width", 640, "output width in pixels")
		height   = flag.Uint("height", 360, "output height in pixels")
		output   = flag.String("output", "rttrace.png", "output PNG path")
		showGrid = flag.Bool("show-grid", false, "overlay fine-cell boundaries")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		raytrace.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	presenter := &pngPresenter{path: *output}
	source := raytrace.SceneSourceFunc(func(context.Context) (raytrace.Scene, error) {
		return demoScene(), nil
	})
	camera := raytrace.StaticCamera{Cam: demoCamera()}

	orch, err := raytrace.NewOrchestrator(nil, camera, source, presenter,
		raytrace.WithSoftwareFallback(true),
		raytrace.WithShowGrid(*showGrid),
	)
	if err != nil {
		log.Fatalf("rttrace: create orchestrator: %v", err)
	}
	defer orch.Close()

	ctx := context.Background()
	if err := orch.LoadScene(ctx); err != nil {
		log.Fatalf("rttrace: load scene: %v", err)
	}
	if err := orch.RenderFrame(ctx, uint32(*width), uint32(*height)); err != nil {
		log.Fatalf("rttrace: render frame: %v", err)
	}

	fmt.Printf("wrote %s (%dx%d)\n", *output, *width, *height)
}

// demoCamera returns a camera looking at the demo scene's box-and-triangle
// cluster from slightly above and in front.
func demoCamera() raytrace.Camera {
	cam := raytrace.DefaultCamera()
	cam.Position = raytrace.V3(0, 2, 6)
	cam.Target = raytrace.V3(0, 0, 0)
	return cam
}

// demoScene builds a small scene exercising a mirror box, a diffuse box, a
// moving box, and an emissive triangle light above a diffuse floor.
func demoScene() raytrace.Scene {
	mirror := raytrace.DefaultMaterial()
	diffuseRed := raytrace.Material{BaseColor: [4]float32{0.8, 0.2, 0.2, 1}, Roughness: 1, BaseColorTexture: -1, NormalTexture: -1, EmissiveTexture: -1}
	diffuseFloor := raytrace.Material{BaseColor: [4]float32{0.6, 0.6, 0.6, 1}, Roughness: 1, BaseColorTexture: -1, NormalTexture: -1, EmissiveTexture: -1}
	emissive := raytrace.Material{BaseColor: [4]float32{1, 1, 1, 1}, Emissive: raytrace.V3(6, 6, 5), Roughness: 1, BaseColorTexture: -1, NormalTexture: -1, EmissiveTexture: -1}

	return raytrace.Scene{
		Materials: []raytrace.Material{diffuseRed, mirror, diffuseFloor, emissive},
		Boxes: []raytrace.Box{
			raytrace.NewStaticBox(raytrace.V3(-1.5, 0, -1), raytrace.V3(-0.5, 1, 0), raytrace.V3(0.8, 0.2, 0.2), 0),
			raytrace.NewStaticBox(raytrace.V3(0.5, 0, -1), raytrace.V3(1.5, 1, 0), raytrace.V3(0.9, 0.9, 0.9), 0.9),
			raytrace.NewMovingBox(raytrace.V3(0, 2, 1), raytrace.V3(1, 2, 1), raytrace.V3(0.3, 0.3, 0.3), raytrace.V3(0.2, 0.8, 0.3), 0.1),
		},
		Triangles: []raytrace.Triangle{
			// Floor, two triangles.
			{V0: raytrace.V3(-10, 0, -10), V1: raytrace.V3(10, 0, -10), V2: raytrace.V3(10, 0, 10), MaterialID: 2},
			{V0: raytrace.V3(-10, 0, -10), V1: raytrace.V3(10, 0, 10), V2: raytrace.V3(-10, 0, 10), MaterialID: 2},
			// Small emissive light above the boxes.
			{V0: raytrace.V3(-0.5, 4, -0.5), V1: raytrace.V3(0.5, 4, -0.5), V2: raytrace.V3(0, 4, 0.5), MaterialID: 3},
		},
	}
}

// pngPresenter encodes each presented frame to a PNG file, a minimal
// stand-in for the windowing/swapchain presentation a real host provides
// (spec.md §1 "Presenter").
type pngPresenter struct {
	path string
}

func (p *pngPresenter) Present(width, height uint32, rgba []byte) error {
	img := &image.RGBA{
		Pix:    rgba,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}
	f, err := os.Create(p.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}
