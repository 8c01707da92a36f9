// Command vimage is a minimal CLI over the blockfs engine: format a fresh
// image, run a script of dispatcher commands against one, check an image's
// invariants, and render its directory tree. It is explicitly not a
// multi-worker driver (no per-worker input file fan-out, no thread joins);
// it exists only as a convenient interface-boundary stand-in, grounded on
// dargueta/disko's cmd/main.go.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/kasmir/blockfs/dispatch"
	"github.com/kasmir/blockfs/engine"
	"github.com/kasmir/blockfs/format"
	"github.com/kasmir/blockfs/fsck"
	"github.com/kasmir/blockfs/image"
	"github.com/kasmir/blockfs/report"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Create, drive, and inspect single-file virtual filesystem images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a fresh image",
				ArgsUsage: "PATH SIZE_MB",
				Action:    formatImage,
			},
			{
				Name:      "exec",
				Usage:     "Run a script of dispatcher commands against an image, one worker, one command per line",
				ArgsUsage: "PATH SCRIPT",
				Action:    execScript,
			},
			{
				Name:      "fsck",
				Usage:     "Check an image's invariants",
				ArgsUsage: "PATH",
				Action:    fsckImage,
			},
			{
				Name:      "tree",
				Usage:     "Render an image's directory tree",
				ArgsUsage: "PATH",
				Action:    treeImage,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "csv", Usage: "render as CSV instead of an indented tree"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: vimage format PATH SIZE_MB")
	}
	sizeMB, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return err
	}
	return format.Create(c.Args().Get(0), sizeMB)
}

func execScript(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: vimage exec PATH SCRIPT")
	}
	img, err := image.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer img.Close()

	scriptFile, err := os.Open(c.Args().Get(1))
	if err != nil {
		return err
	}
	defer scriptFile.Close()

	d := dispatch.New(engine.New(img))
	scanner := bufio.NewScanner(scriptFile)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fmt.Println(d.Execute(line))
	}
	return scanner.Err()
}

func fsckImage(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: vimage fsck PATH")
	}
	img, err := image.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer img.Close()

	if err := fsck.Check(img); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println("image is consistent.")
	return nil
}

func treeImage(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: vimage tree PATH")
	}
	img, err := image.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	defer img.Close()

	e := engine.New(img)
	lines, err := e.ShowMemoryMap()
	if err != nil {
		return err
	}

	if c.Bool("csv") {
		return report.WriteCSV(os.Stdout, lines)
	}
	for _, l := range lines {
		fmt.Printf("%*s%s\n", l.Depth*2, "", l.Name)
	}
	return nil
}
