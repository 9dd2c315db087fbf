package option

import (
	"github.com/bgrewell/udf-kit/pkg/logging"
)

type ExtractionProgressCallback func(
	currentFilename string,
	bytesTransferred int64,
	totalBytes int64,
	currentFileNumber int,
	totalFileCount int,
)

type OpenOptions struct {
	ParseOnOpen                bool
	ReadOnly                   bool
	PreloadDir                 bool
	PreferJoliet               bool
	StripVersionInfo           bool
	RockRidgeEnabled           bool
	ElToritoEnabled            bool
	BootFileExtractLocation    string
	ExtractionProgressCallback ExtractionProgressCallback
	Logger                     *logging.Logger

	// SectorSize is the block size of the underlying source, in bytes;
	// 2048 for DVD-ROM (the default). Each sector is read whole, SectorSize
	// bytes starting at sector*SectorSize.
	SectorSize int
	// SectorDataOffset holds a number of header bytes at the start of each
	// physical sector. pkg/udf does not read this field: no header bytes are
	// skipped, so raw 2352-byte CD-ROM sectors are not decoded.
	SectorDataOffset int
	// MaxIndirectDepth bounds how many IndirectEntry hops the ICB walker
	// will follow before returning udferr.ErrIndirectChainTooDeep.
	MaxIndirectDepth int
	// CacheSize is the sector cache's capacity in bytes.
	CacheSize int
}

type OpenOption func(*OpenOptions)

// WithExtractionProgress sets a progress callback function that will be called with progress updates.
// Parameters:
// - currentFilename: The name of the file currently being processed.
// - bytesTransferred: The number of bytes transferred so far for the current file.
// - totalBytes: The total number of bytes to be transferred for the current file.
// - currentFileNumber: The index of the current file being processed.
// - totalFileCount: The total number of files to be processed.
func WithExtractionProgress(callback ExtractionProgressCallback) OpenOption {
	return func(o *OpenOptions) {
		o.ExtractionProgressCallback = callback
	}
}

func WithBootFileExtractLocation(location string) OpenOption {
	return func(o *OpenOptions) {
		o.BootFileExtractLocation = location
	}
}

func WithLogger(logger *logging.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logger
	}
}

func WithParseOnOpen(parseOnOpen bool) OpenOption {
	return func(o *OpenOptions) {
		o.ParseOnOpen = parseOnOpen
	}
}

func WithReadOnly(readOnly bool) OpenOption {
	return func(o *OpenOptions) {
		o.ReadOnly = readOnly
	}
}

func WithPreloadDir(preloadDir bool) OpenOption {
	return func(o *OpenOptions) {
		o.PreloadDir = preloadDir
	}
}

func WithStripVersionInfo(stripVersionInfo bool) OpenOption {
	return func(o *OpenOptions) {
		o.StripVersionInfo = stripVersionInfo
	}
}

func WithPreferJoliet(preferJoliet bool) OpenOption {
	return func(o *OpenOptions) {
		o.PreferJoliet = preferJoliet
	}
}

func WithRockRidgeEnabled(rockRidgeEnabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.RockRidgeEnabled = rockRidgeEnabled
	}
}

func WithElToritoEnabled(elToritoEnabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.ElToritoEnabled = elToritoEnabled
	}
}

// WithSectorSize sets the underlying source's physical block size; the UDF
// default is 2048. Sectors are read whole, with no per-sector header skipped.
func WithSectorSize(sectorSize int) OpenOption {
	return func(o *OpenOptions) {
		o.SectorSize = sectorSize
	}
}

// WithSectorDataOffset sets OpenOptions.SectorDataOffset. pkg/udf does not
// read that field, so no header bytes are skipped at the start of a sector.
func WithSectorDataOffset(offset int) OpenOption {
	return func(o *OpenOptions) {
		o.SectorDataOffset = offset
	}
}

// WithMaxIndirectDepth bounds how many IndirectEntry hops the UDF ICB walker
// follows before giving up with udferr.ErrIndirectChainTooDeep.
func WithMaxIndirectDepth(depth int) OpenOption {
	return func(o *OpenOptions) {
		o.MaxIndirectDepth = depth
	}
}

// WithCacheSize sets the UDF sector cache's capacity in bytes.
func WithCacheSize(bytes int) OpenOption {
	return func(o *OpenOptions) {
		o.CacheSize = bytes
	}
}
