// Command framekit runs the frame scheduler on a small demo scene, either in
// a window or headless.
package main

import (
	"os"
	"runtime"

	"framekit/internal/config"

	"github.com/urfave/cli"
	"github.com/xlab/closer"
)

// GL and GLFW calls must stay on the main thread.
func init() { runtime.LockOSThread() }

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "framekit"
	app.Usage = "render a demo scene with the frame scheduler"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "settings file (TOML); reloaded when it changes",
		},
	}
	runFlags := []cli.Flag{
		cli.BoolFlag{
			Name:  "interpolate",
			Usage: "blend draw calls between simulation ticks",
		},
		cli.BoolFlag{
			Name:  "threaded",
			Usage: "run the simulation on its own goroutine",
		},
		cli.IntFlag{
			Name:  "tick-rate",
			Usage: "simulation ticks per second (overrides the settings file)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "open a window and render the demo scene",
			Flags:  runFlags,
			Action: runWindowed,
		},
		{
			Name:  "headless",
			Usage: "render the demo scene into a recording backend and print stats",
			Description: `
Drives the scheduler without a GPU. Every pass and draw goes to an in-memory
recorder, which is useful to profile the scheduler itself.`,
			Flags: append(runFlags,
				cli.IntFlag{
					Name:  "frames, n",
					Value: 600,
					Usage: "number of frames to render",
				},
				cli.IntFlag{
					Name:  "latency",
					Value: 2,
					Usage: "frames the recorder waits before reporting a frame finished",
				},
			),
			Action: runHeadless,
		},
		{
			Name:  "config",
			Usage: "print the default settings file",
			Action: func(ctx *cli.Context) error {
				return config.Encode(os.Stdout, config.Default())
			},
		},
	}
	app.Action = runWindowed

	// closer runs the bound cleanups on interrupt as well as on exit.
	if err := app.Run(os.Args); err != nil {
		closer.Fatalln("framekit:", err)
	}
	closer.Close()
}
