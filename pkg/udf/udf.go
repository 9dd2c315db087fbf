// Package udf implements a read-only extractor for the Universal Disk
// Format filesystem used on DVD-ROM media (ECMA-167 3rd ed., OSTA UDF
// 2.60). It exposes an Open/ListFiles/ListDirectories/ReadFile/Extract
// facade over the descriptor codec, sector cache, address resolver, and
// traversal parser in its subpackages.
package udf

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bgrewell/udf-kit/pkg/consts"
	"github.com/bgrewell/udf-kit/pkg/filesystem"
	"github.com/bgrewell/udf-kit/pkg/iso9660/info"
	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/option"
	"github.com/bgrewell/udf-kit/pkg/udf/cache"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/parser"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// DefaultCacheSize is the sector cache's capacity when option.WithCacheSize
// is not given: 4 MiB, 2048 blocks at the DVD-ROM default sector size.
const DefaultCacheSize = 4 * 1024 * 1024

// Open reads and validates the volume structures, file set, and full
// directory tree from isoReader eagerly (§4.8), materializing a
// []*filesystem.FileSystemEntry describing every file and directory before
// returning. isoReader must also implement one of a Size() int64 method, a
// Len() int method, or Stat() (os.FileInfo, error) so the anchor reader can
// locate the end of the volume.
func Open(isoReader io.ReaderAt, opts ...option.OpenOption) (*UDF, error) {
	openOptions := &option.OpenOptions{
		ReadOnly:         true,
		ParseOnOpen:      true,
		PreloadDir:       true,
		SectorSize:       consts.UDF_SECTOR_SIZE,
		CacheSize:        DefaultCacheSize,
		MaxIndirectDepth: parser.DefaultMaxIndirectDepth,
		Logger:           logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(openOptions)
	}
	if openOptions.Logger == nil {
		openOptions.Logger = logging.DefaultLogger()
	}
	if openOptions.SectorSize <= 0 {
		openOptions.SectorSize = consts.UDF_SECTOR_SIZE
	}
	if openOptions.CacheSize <= 0 {
		openOptions.CacheSize = DefaultCacheSize
	}

	sourceLen, err := sourceLength(isoReader)
	if err != nil {
		return nil, fmt.Errorf("open udf: %w", err)
	}

	sectorCache, err := cache.New(isoReader, openOptions.SectorSize, openOptions.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("open udf: %w", err)
	}

	u := &UDF{
		source: isoReader,
		opts:   *openOptions,
		cache:  sectorCache,
		parser: parser.New(sectorCache, openOptions.SectorSize, openOptions.MaxIndirectDepth, openOptions.Logger),
		logger: openOptions.Logger,
	}

	if openOptions.ParseOnOpen {
		if err := u.parseVolume(sourceLen); err != nil {
			openOptions.Logger.Error(err, "failed to parse udf volume")
			return nil, err
		}
	}

	return u, nil
}

// Create is not implemented: write support is an explicit non-goal of this
// read-only extractor (see udferr.ErrWriteNotSupported).
func Create(filename string, opts ...option.CreateOption) (*UDF, error) {
	return nil, fmt.Errorf("create udf: %w", udferr.ErrWriteNotSupported)
}

// UDF is a parsed, read-only view of a DVD-ROM UDF volume.
type UDF struct {
	source io.ReaderAt
	opts   option.OpenOptions
	cache  *cache.SectorCache
	parser *parser.Parser
	logger *logging.Logger

	volume  *parser.VolumeStructures
	fileSet descriptor.FileSetDescriptor
	entries []*filesystem.FileSystemEntry
}

// sourceLength determines the byte length of isoReader, needed for anchor
// discovery's N-256/N-1 fallback candidates (§4.4 step 1). io.ReaderAt has
// no standard length query, so this supports the common concrete shapes
// that do: *os.File (Stat), *io.SectionReader/*bytes.Reader (Size), and any
// source exposing a Len() int method.
func sourceLength(r io.ReaderAt) (int64, error) {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size(), nil
	case interface{ Len() int }:
		return int64(v.Len()), nil
	case interface{ Stat() (os.FileInfo, error) }:
		info, err := v.Stat()
		if err != nil {
			return 0, fmt.Errorf("determine source length: %w", err)
		}
		return info.Size(), nil
	default:
		return 0, fmt.Errorf("determine source length: reader exposes no Size()/Len()/Stat() method")
	}
}

// parseVolume runs the full discovery and traversal pipeline (§4.4-§4.6)
// and materializes the entry tree.
func (u *UDF) parseVolume(sourceLen int64) error {
	anchor, err := u.parser.ReadAnchor(sourceLen)
	if err != nil {
		return fmt.Errorf("parse udf volume: %w", err)
	}

	vs, err := u.parser.ReadVolumeStructures(anchor)
	if err != nil {
		return fmt.Errorf("parse udf volume: %w", err)
	}
	u.volume = vs

	fsds, err := u.parser.ReadFileSetDescriptors(vs)
	if err != nil {
		return fmt.Errorf("parse udf volume: %w", err)
	}
	u.fileSet = fsds[0]

	if !u.opts.PreloadDir {
		return nil
	}

	entries, err := u.walkDirectory(u.fileSet.RootDirectoryICB, "")
	if err != nil {
		return fmt.Errorf("parse udf volume: %w", err)
	}
	u.entries = entries
	return nil
}

// walkDirectory reads dirICB's File Entries, parses its FID stream, and
// recurses into subdirectories (§4.6). Parent-flagged FIDs are skipped,
// guaranteeing termination on a well-formed tree (invariant 7).
func (u *UDF) walkDirectory(dirICB descriptor.LongAd, dirPath string) ([]*filesystem.FileSystemEntry, error) {
	dirRecords, err := u.parser.ReadFileEntries(u.volume, dirICB)
	if err != nil {
		return nil, err
	}
	fids, err := u.parser.ReadDirectoryContents(u.volume, dirRecords)
	if err != nil {
		return nil, err
	}

	var out []*filesystem.FileSystemEntry
	for _, fid := range fids {
		if fid.IsParent() || fid.IsDeleted() {
			continue
		}

		childRecords, err := u.parser.ReadFileEntries(u.volume, fid.ICB)
		if err != nil {
			return nil, err
		}
		if len(childRecords) == 0 {
			continue
		}
		child := childRecords[0].Entry

		isDir := fid.IsDirectory() || child.ICBTag.IsDirectory()
		fullPath := path.Join(dirPath, fid.FileIdentifier)

		reader := newExtentReaderAt(u.cache, uint32(u.opts.SectorSize), u.volume.LogicalVolume.LogicalBlockSize, u.volume.PartitionTable, childRecords)
		entry := filesystem.NewFileSystemEntryDirect(
			fid.FileIdentifier,
			fullPath,
			isDir,
			uint32(child.InformationLength),
			uidPtr(child.UID),
			gidPtr(child.GID),
			permissionsToMode(child.Permissions, isDir),
			child.AccessTime.Time(),
			child.ModificationTime.Time(),
			reader,
		)
		out = append(out, entry)

		if isDir {
			children, err := u.walkDirectory(fid.ICB, fullPath)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		}
	}
	return out, nil
}

// uidPtr/gidPtr treat UDF's sentinel "unspecified" owner/group (-1,
// ECMA-167 4/14.9.6/7) as absent rather than a valid 4-billion-something id.
func uidPtr(v uint32) *uint32 {
	if v == 0xFFFFFFFF {
		return nil
	}
	id := v
	return &id
}

func gidPtr(v uint32) *uint32 {
	return uidPtr(v)
}

// permissionsToMode maps the 15 meaningful bits of ECMA-167 4/14.9.13
// Permissions (execute/write/read/change-attr/delete, repeated for
// other/group/owner) onto the analogous unix rwx bits.
func permissionsToMode(permissions uint32, isDir bool) os.FileMode {
	var mode os.FileMode
	const (
		otherExecute = 1 << 0
		otherWrite   = 1 << 1
		otherRead    = 1 << 2
		groupExecute = 1 << 5
		groupWrite   = 1 << 6
		groupRead    = 1 << 7
		ownerExecute = 1 << 10
		ownerWrite   = 1 << 11
		ownerRead    = 1 << 12
	)
	if permissions&ownerRead != 0 {
		mode |= 0400
	}
	if permissions&ownerWrite != 0 {
		mode |= 0200
	}
	if permissions&ownerExecute != 0 {
		mode |= 0100
	}
	if permissions&groupRead != 0 {
		mode |= 0040
	}
	if permissions&groupWrite != 0 {
		mode |= 0020
	}
	if permissions&groupExecute != 0 {
		mode |= 0010
	}
	if permissions&otherRead != 0 {
		mode |= 0004
	}
	if permissions&otherWrite != 0 {
		mode |= 0002
	}
	if permissions&otherExecute != 0 {
		mode |= 0001
	}
	if isDir {
		mode |= os.ModeDir
	}
	return mode
}

func (u *UDF) RootDirectoryLocation() uint32 {
	pd, ok := u.volume.PartitionTable[u.fileSet.RootDirectoryICB.ExtentLocation.PartitionReferenceNum]
	if !ok {
		return 0
	}
	return pd.PartitionStartingLocation + u.fileSet.RootDirectoryICB.ExtentLocation.LogicalBlockNumber
}

// GetVolumeSetID returns the Primary Volume Descriptor's volume set identifier.
func (u *UDF) GetVolumeSetID() string {
	return u.volume.PrimaryVolume.VolumeSetIdentifier
}

// GetPublisherID has no UDF Primary Volume Descriptor analog (ISO9660-specific); returns "".
func (u *UDF) GetPublisherID() string {
	return ""
}

// GetDataPreparerID has no UDF Primary Volume Descriptor analog (ISO9660-specific); returns "".
func (u *UDF) GetDataPreparerID() string {
	return ""
}

// GetApplicationID returns the Primary Volume Descriptor's application identifier string.
func (u *UDF) GetApplicationID() string {
	return entityIDString(u.volume.PrimaryVolume.ApplicationIdentifier)
}

// GetCopyrightID returns the File Set Descriptor's copyright file identifier
// (a filename within the root directory, per ECMA-167 4/14.1.12, the same
// convention ISO9660's copyright_file_identifier uses).
func (u *UDF) GetCopyrightID() string {
	return u.fileSet.CopyrightFileIdentifier
}

// GetAbstractID returns the File Set Descriptor's abstract file identifier.
func (u *UDF) GetAbstractID() string {
	return u.fileSet.AbstractFileIdentifier
}

// GetBibliographicID has no UDF File Set Descriptor analog (ISO9660-specific); returns "".
func (u *UDF) GetBibliographicID() string {
	return ""
}

func (u *UDF) GetCreationDateTime() time.Time {
	return u.volume.PrimaryVolume.RecordingDateAndTime.Time()
}

// GetModificationDateTime has no separate UDF Primary Volume Descriptor
// field; returns the same recording timestamp as GetCreationDateTime.
func (u *UDF) GetModificationDateTime() time.Time {
	return u.volume.PrimaryVolume.RecordingDateAndTime.Time()
}

// GetExpirationDateTime has no UDF Primary Volume Descriptor analog (ISO9660-specific); returns the zero time.
func (u *UDF) GetExpirationDateTime() time.Time {
	return time.Time{}
}

// GetEffectiveDateTime has no UDF Primary Volume Descriptor analog (ISO9660-specific); returns the zero time.
func (u *UDF) GetEffectiveDateTime() time.Time {
	return time.Time{}
}

// HasJoliet reports false: Joliet is an ISO9660 supplementary-descriptor extension with no UDF equivalent.
func (u *UDF) HasJoliet() bool {
	return false
}

// HasRockRidge reports false: Rock Ridge is an ISO9660 SUSP extension with no UDF equivalent.
func (u *UDF) HasRockRidge() bool {
	return false
}

// HasElTorito reports false: El Torito boot catalogs are an ISO9660-specific mechanism.
func (u *UDF) HasElTorito() bool {
	return false
}

func (u *UDF) GetVolumeID() string {
	return u.volume.PrimaryVolume.VolumeIdentifier
}

// GetSystemID returns the Primary Volume Descriptor's implementation identifier string.
func (u *UDF) GetSystemID() string {
	return entityIDString(u.volume.PrimaryVolume.ImplementationIdentifier)
}

// GetVolumeSize returns the sum of all Type-1 partition lengths, in logical blocks.
func (u *UDF) GetVolumeSize() uint32 {
	var total uint32
	for _, pm := range u.volume.PartitionMaps {
		if pm.Type != descriptor.PartitionMapType1 {
			continue
		}
		if pd, ok := u.volume.PartitionTable[pm.PartitionNumber]; ok {
			total += pd.PartitionLength
		}
	}
	return total
}

// ListBootEntries returns nil: UDF has no El Torito-style boot catalog.
func (u *UDF) ListBootEntries() ([]*filesystem.FileSystemEntry, error) {
	return nil, nil
}

func (u *UDF) ListFiles() ([]*filesystem.FileSystemEntry, error) {
	var files []*filesystem.FileSystemEntry
	for _, e := range u.entries {
		if !e.IsDir {
			files = append(files, e)
		}
	}
	return files, nil
}

func (u *UDF) ListDirectories() ([]*filesystem.FileSystemEntry, error) {
	var dirs []*filesystem.FileSystemEntry
	for _, e := range u.entries {
		if e.IsDir {
			dirs = append(dirs, e)
		}
	}
	return dirs, nil
}

func (u *UDF) ReadFile(filePath string) ([]byte, error) {
	entry, err := u.findEntry(filePath)
	if err != nil {
		return nil, err
	}
	return entry.GetBytes()
}

func (u *UDF) findEntry(filePath string) (*filesystem.FileSystemEntry, error) {
	clean := strings.TrimPrefix(path.Clean("/"+filePath), "/")
	for _, e := range u.entries {
		if e.FullPath == clean {
			return e, nil
		}
	}
	return nil, fmt.Errorf("read file %q: %w", filePath, udferr.ErrNotFound)
}

func (u *UDF) AddFile(path string, data []byte) error {
	return fmt.Errorf("add file %q: %w", path, udferr.ErrWriteNotSupported)
}

func (u *UDF) RemoveFile(path string) error {
	return fmt.Errorf("remove file %q: %w", path, udferr.ErrWriteNotSupported)
}

func (u *UDF) CreateDirectories(path string) error {
	return fmt.Errorf("create directories %q: %w", path, udferr.ErrWriteNotSupported)
}

// Extract writes every materialized entry to outputDir, invoking the
// configured ExtractionProgressCallback per file (§5). Output files are
// created exclusively (never overwritten), per §6.4/§SUPPLEMENTED FEATURES.
func (u *UDF) Extract(outputDir string) error {
	total := len(u.entries)
	for i, e := range u.entries {
		if u.opts.ExtractionProgressCallback != nil {
			u.opts.ExtractionProgressCallback(e.FullPath, 0, int64(e.Size), i+1, total)
		}
		if err := e.ExtractToDisk(outputDir); err != nil {
			return fmt.Errorf("extract %q: %w", e.FullPath, err)
		}
		if u.opts.ExtractionProgressCallback != nil {
			u.opts.ExtractionProgressCallback(e.FullPath, int64(e.Size), int64(e.Size), i+1, total)
		}
	}
	return nil
}

func (u *UDF) SetLogger(logger *logging.Logger) {
	u.logger = logger
}

func (u *UDF) GetLogger() *logging.Logger {
	return u.logger
}

// GetLayout renders the discovered volume structures through an
// info.ISOLayout for introspection (§4.9).
func (u *UDF) GetLayout() *info.ISOLayout {
	layout := info.NewISOLayout()
	sectorSize := u.opts.SectorSize
	if sectorSize <= 0 {
		sectorSize = consts.UDF_SECTOR_SIZE
	}

	layout.AddVolumeDescriptor("Anchor Volume Descriptor Pointer", int(u.volume.Anchor.Tag.DescriptorVersion), int(u.volume.Anchor.Tag.TagLocation)*sectorSize, descriptor.AnchorVolumeDescriptorSize)
	layout.AddVolumeDescriptor("Primary Volume Descriptor", int(u.volume.PrimaryVolume.Tag.DescriptorVersion), int(u.volume.PrimaryVolume.Tag.TagLocation)*sectorSize, descriptor.PrimaryVolumeDescriptorSize)
	layout.AddVolumeDescriptor("Logical Volume Descriptor", int(u.volume.LogicalVolume.Tag.DescriptorVersion), int(u.volume.LogicalVolume.Tag.TagLocation)*sectorSize, descriptor.LogicalVolumeDescriptorFixedSize)
	for _, pd := range u.volume.PartitionTable {
		layout.AddVolumeDescriptor(fmt.Sprintf("Partition Descriptor %d", pd.PartitionNumber), int(pd.Tag.DescriptorVersion), int(pd.Tag.TagLocation)*sectorSize, descriptor.PartitionDescriptorSize)
	}
	layout.AddVolumeDescriptor("File Set Descriptor", int(u.fileSet.Tag.DescriptorVersion), int(u.fileSet.Tag.TagLocation)*sectorSize, descriptor.FileSetDescriptorSize)

	return layout
}

// Save is not implemented: write support is an explicit non-goal of this read-only extractor.
func (u *UDF) Save(writer io.WriterAt) error {
	return fmt.Errorf("save udf: %w", udferr.ErrWriteNotSupported)
}

// Close releases the underlying source if it implements io.Closer.
func (u *UDF) Close() error {
	if closer, ok := u.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// entityIDString renders an EntityID's Identifier field as a trimmed string,
// dropping trailing NUL padding (ECMA-167 1/7.4).
func entityIDString(id descriptor.EntityID) string {
	return strings.TrimRight(string(id.Identifier[:]), "\x00")
}

// TitlecaseVolumeName converts a UDF volume's screaming-snake-case
// identifier convention (e.g. "SOME_MOVIE") into a titlecased, space
// separated form ("Some Movie"), for use as a default output directory name
// when --name is not given (ported from the original implementation's
// titlecase_name).
func TitlecaseVolumeName(name string) string {
	var b strings.Builder
	capitalize := true
	for _, r := range name {
		switch {
		case r == ' ' || r == '_':
			capitalize = true
			b.WriteRune(' ')
		case capitalize:
			b.WriteRune(toUpperRune(r))
			capitalize = false
		default:
			b.WriteRune(toLowerRune(r))
		}
	}
	return strings.TrimSpace(b.String())
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
