// Command imgjail-demo loads a single image file through a sandboxed
// worker and prints its metadata, exercising the same Host/Loader API an
// embedding application would use.
//
// Grounded on main.go/pkg/app/app.go's wiring style: flaggy for argument
// parsing, a *logrus.Entry built up front, go-errors for a top-level
// stack-traced failure report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/integrii/flaggy"

	"github.com/imgjail/imgjail/pkg/ihosterrors"
	imgjaillog "github.com/imgjail/imgjail/pkg/log"
	"github.com/imgjail/imgjail/pkg/imgjail"
	"github.com/imgjail/imgjail/pkg/sandbox"
	"github.com/imgjail/imgjail/pkg/utils"
)

const defaultVersion = "unversioned"

var (
	version = defaultVersion

	inputPath     string
	mechanismFlag = "auto"
	debugFlag     = false
	listMimeFlag  = false
)

func main() {
	flaggy.SetName("imgjail-demo")
	flaggy.SetDescription("Loads one image through a sandboxed worker and prints its metadata")
	flaggy.SetVersion(version)

	flaggy.String(&mechanismFlag, "m", "mechanism", "Sandbox mechanism: auto, bwrap, flatpak-spawn, none")
	flaggy.Bool(&debugFlag, "d", "debug", "Enable debug logging")
	flaggy.Bool(&listMimeFlag, "l", "list-mime-types", "Print configured MIME types and exit")
	flaggy.AddPositionalValue(&inputPath, "file", 1, false, "Path to the image file to load")

	flaggy.Parse()

	logger := imgjaillog.NewLogger(imgjaillog.Options{Component: "imgjail-demo", Debug: debugFlag})

	host, err := imgjail.New(imgjail.Options{
		Log:       logger,
		Mechanism: parseMechanism(mechanismFlag),
		Debug:     debugFlag,
	})
	if err != nil {
		log.Fatal(goerrors.Wrap(err, 0).ErrorStack())
	}
	defer host.Close()

	if listMimeFlag {
		for _, mime := range host.SupportedMimeTypes() {
			fmt.Println(mime)
		}
		return
	}

	if inputPath == "" {
		flaggy.ShowHelpAndExit("a file argument is required unless --list-mime-types is set")
	}

	if err := run(host, inputPath); err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

func run(host *imgjail.Host, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := context.Background()
	image, err := host.Load(ctx, f, path, imgjail.LoadOptions{})
	if err != nil {
		return err
	}
	defer image.Close()

	details := image.Details()
	fmt.Printf("format:     %s\n", details.InfoFormatName)
	fmt.Printf("dimensions: %dx%d\n", details.Width, details.Height)
	if details.InfoDimensionsText != "" {
		fmt.Printf("text:       %s\n", details.InfoDimensionsText)
	}

	frame, err := image.NextFrame(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("frame:      %dx%d stride=%d format=%s\n", frame.Width, frame.Height, frame.Stride, frame.MemoryFormat)
	fmt.Printf("bytes:      %s\n", utils.FormatBinaryBytes(len(frame.Texture)))

	return nil
}

func parseMechanism(name string) sandbox.Mechanism {
	switch name {
	case "bwrap":
		return sandbox.MechanismBwrap
	case "flatpak-spawn":
		return sandbox.MechanismFlatpakSpawn
	case "none":
		return sandbox.MechanismNone
	default:
		return sandbox.MechanismAuto
	}
}

func reportFailure(err error) {
	if ihosterrors.HasCode(err, ihosterrors.CodeSpawn) {
		fmt.Fprintln(os.Stderr, "imgjail-demo: worker process could not be started:", err)
		return
	}
	if ihosterrors.HasCode(err, ihosterrors.CodeConfiguration) {
		fmt.Fprintln(os.Stderr, "imgjail-demo: configuration error:", err)
		return
	}
	fmt.Fprintln(os.Stderr, "imgjail-demo:", err)
}
