package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf"
	"github.com/bgrewell/usage"
	"github.com/go-logr/logr/funcr"
	"github.com/theckman/yacspin"
)

const defaultSectorSize = 2048

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("udfextract"),
		usage.WithApplicationDescription("udfextract reads a DVD-ROM UDF (ECMA-167/OSTA UDF 2.60) volume and extracts its files and directories to a host directory."),
	)

	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Enable debug logging", "", nil)
	trace := u.AddBooleanOption("vv", "trace", false, "Enable trace logging", "", nil)
	quiet := u.AddBooleanOption("q", "quiet", false, "Suppress the progress spinner", "", nil)
	layout := u.AddBooleanOption("l", "layout", false, "Print the volume's on-disk layout before extracting", "", nil)
	noColor := u.AddBooleanOption("", "no-color", false, "Disable colored layout output", "", nil)
	name := u.AddStringOption("n", "name", "", "Output directory name (default: titlecased volume identifier)", "", nil)
	outDir := u.AddStringOption("o", "output", ".", "Parent directory to extract into", "", nil)
	sectorSizeStr := u.AddStringOption("s", "sector-size", strconv.Itoa(defaultSectorSize), "Block size of the source device, in bytes", "", nil)
	devicePath := u.AddArgument(1, "device", "Path to the UDF block device or image file", "")

	parsed := u.Parse()
	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}
	if *help {
		u.PrintUsage()
		os.Exit(0)
	}
	if devicePath == nil || *devicePath == "" {
		u.PrintError(fmt.Errorf("path to the UDF device or image must be provided"))
		os.Exit(1)
	}

	sectorSize, err := strconv.Atoi(*sectorSizeStr)
	if err != nil || sectorSize <= 0 {
		u.PrintError(fmt.Errorf("invalid sector size %q", *sectorSizeStr))
		os.Exit(1)
	}

	verbosity := 0
	switch {
	case *trace:
		verbosity = logging.LEVEL_TRACE
	case *verbose:
		verbosity = logging.LEVEL_DEBUG
	}
	logger := buildLogger(verbosity)

	f, err := os.Open(*devicePath)
	if err != nil {
		u.PrintError(fmt.Errorf("open %s: %w", *devicePath, err))
		os.Exit(1)
	}
	defer f.Close()

	spinner := newExtractSpinner(*quiet)
	if spinner != nil {
		_ = spinner.Start()
	}

	img, err := udf.Open(f,
		option.WithSectorSize(sectorSize),
		option.WithLogger(logger),
		option.WithExtractionProgress(func(currentFilename string, bytesTransferred, totalBytes int64, currentFileNumber, totalFileCount int) {
			if spinner != nil {
				spinner.Message(fmt.Sprintf("[%d/%d] %s", currentFileNumber, totalFileCount, currentFilename))
			}
		}),
	)
	if err != nil {
		failSpinner(spinner, err)
		u.PrintError(fmt.Errorf("open udf volume: %w", err))
		os.Exit(1)
	}
	defer img.Close()

	if *layout {
		img.GetLayout().Print(*verbose || *trace, !*noColor, true)
	}

	targetName := *name
	if targetName == "" {
		targetName = udf.TitlecaseVolumeName(img.GetVolumeID())
	}
	if targetName == "" {
		targetName = "UDF_EXTRACT"
	}
	targetDir := filepath.Join(*outDir, targetName)

	if err := img.Extract(targetDir); err != nil {
		failSpinner(spinner, err)
		u.PrintError(fmt.Errorf("extract udf volume: %w", err))
		os.Exit(1)
	}

	if spinner != nil {
		spinner.StopMessage(fmt.Sprintf("extracted to %s", targetDir))
		_ = spinner.Stop()
	}
	fmt.Printf("Extraction completed successfully to '%s'.\n", targetDir)
}

// buildLogger wraps a funcr.Logger writing to stderr at the requested
// verbosity; verbosity 0 keeps the library's silent default.
func buildLogger(verbosity int) *logging.Logger {
	if verbosity <= 0 {
		return logging.DefaultLogger()
	}
	sink := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintln(os.Stderr, prefix+": "+args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, funcr.Options{Verbosity: verbosity})
	return logging.NewLogger(sink)
}

func failSpinner(spinner *yacspin.Spinner, err error) {
	if spinner == nil {
		return
	}
	spinner.StopFailMessage(err.Error())
	_ = spinner.StopFail()
}

func newExtractSpinner(quiet bool) *yacspin.Spinner {
	if quiet {
		return nil
	}
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " ",
		Message:         "scanning volume",
		StopCharacter:   "done",
		StopColors:      []string{"fgGreen"},
		StopFailMessage: "failed",
		StopFailColors:  []string{"fgRed"},
	}
	spinner, err := yacspin.New(cfg)
	if err != nil {
		return nil
	}
	return spinner
}
