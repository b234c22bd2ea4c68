// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Command rtdemo ray traces a triangle mesh on the emulated ray tracing
// backend, either interactively in a window or headless into PNG files.
//
// Usage:
//
//	rtdemo [-v] [--config rtdemo.toml] run
//	rtdemo [-v] [--config rtdemo.toml] render --frames 1 --out frame.png
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "rtdemo"
	app.Usage = "ray trace a triangle mesh"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "TOML configuration file (reloaded on change by run)",
		},
		cli.StringFlag{
			Name:  "mesh, m",
			Usage: "wavefront OBJ file; overrides scene.mesh",
		},
		cli.StringFlag{
			Name:  "library",
			Usage: "compiled shader library; overrides shader.library",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "open a window and fly the camera through the scene",
			Action: runWindow,
		},
		{
			Name:  "render",
			Usage: "render frames headless and write the last one as PNG",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "frames, n",
					Value: 1,
					Usage: "number of frames to trace",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "output PNG file",
				},
				cli.UintFlag{
					Name:  "width",
					Usage: "image width; defaults to window.width",
				},
				cli.UintFlag{
					Name:  "height",
					Usage: "image height; defaults to window.height",
				},
			},
			Action: renderFrames,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rtdemo: %v\n", err)
		os.Exit(1)
	}
}
