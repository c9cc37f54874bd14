package fs

import "util"

// On-disk layout constants (ext2 rev1, spec §3).
const (
	SuperBlockOffset        = 1024
	SuperBlockSize          = 1024
	SuperBlockMagic         = 0xEF53
	InodeDirectPointerCount = 12
	RootInode               = 2
)

// Required-feature bits this parser understands; any other required bit
// set in the image fails validation at Parse time.
const reqFeatDirEntriesHaveType = 0x2

// Writing-feature bits this parser tolerates without needing to act on
// them (both are write-path concerns that a read-only parser can ignore).
const (
	wFeatSparseSuperblocks = 0x1
	wFeatFileSize64Bit     = 0x2
	supportedWritingFeats  = wFeatSparseSuperblocks | wFeatFileSize64Bit
)

// superBlock is the fixed 1024-byte ext2 superblock, read field-by-field
// through util.Readn instead of an unsafe struct cast, the same accessor
// the donor's own (differently laid out) superblock uses.
type superBlock struct {
	raw []byte
}

func (s superBlock) InodeCount() uint32          { return uint32(util.Readn(s.raw, 4, 0)) }
func (s superBlock) BlockCount() uint32          { return uint32(util.Readn(s.raw, 4, 4)) }
func (s superBlock) SuperblockBlockNumber() uint32 { return uint32(util.Readn(s.raw, 4, 20)) }
func (s superBlock) BlockSizeExponent() uint32   { return uint32(util.Readn(s.raw, 4, 24)) }
func (s superBlock) BlocksPerGroup() uint32      { return uint32(util.Readn(s.raw, 4, 32)) }
func (s superBlock) InodesPerGroup() uint32      { return uint32(util.Readn(s.raw, 4, 40)) }
func (s superBlock) MagicSignature() uint16      { return uint16(util.Readn(s.raw, 2, 56)) }
func (s superBlock) MajorVersion() uint32        { return uint32(util.Readn(s.raw, 4, 76)) }

const superBlockFixedSize = 84

// superBlockExt holds the rev1-only fields immediately following the fixed
// superblock.
type superBlockExt struct {
	raw []byte
}

func (s superBlockExt) InodeSize() uint16            { return uint16(util.Readn(s.raw, 2, 4)) }
func (s superBlockExt) RequiredFeatures() uint32     { return uint32(util.Readn(s.raw, 4, 12)) }
func (s superBlockExt) WritingFeatures() uint32      { return uint32(util.Readn(s.raw, 4, 16)) }

// superBlockExtOffset is the byte offset of the extended fields relative
// to the start of the superblock region (SuperBlockOffset): immediately
// past the fixed-size superblock fields.
const superBlockExtOffset = superBlockFixedSize

// blockGroupDescriptor is one 32-byte entry of the block group descriptor
// table.
type blockGroupDescriptor struct {
	raw []byte
}

func (b blockGroupDescriptor) InodeTableStart() uint32 { return uint32(util.Readn(b.raw, 4, 8)) }

const blockGroupDescriptorSize = 32

// inode is the fixed 128-byte (rev1) on-disk inode record.
type inode struct {
	raw []byte
}

func (n inode) TypeAndPerms() uint16      { return uint16(util.Readn(n.raw, 2, 0)) }
func (n inode) UserId() uint16            { return uint16(util.Readn(n.raw, 2, 2)) }
func (n inode) SizeLow() uint32           { return uint32(util.Readn(n.raw, 4, 4)) }
func (n inode) LastAccessTime() uint32    { return uint32(util.Readn(n.raw, 4, 8)) }
func (n inode) LastModificationTime() uint32 { return uint32(util.Readn(n.raw, 4, 16)) }
func (n inode) GroupId() uint16           { return uint16(util.Readn(n.raw, 2, 24)) }
func (n inode) HardLinkCount() uint16     { return uint16(util.Readn(n.raw, 2, 26)) }
func (n inode) DirectPointer(i int) uint32 {
	return uint32(util.Readn(n.raw, 4, 40+4*i))
}
func (n inode) SinglyIndirect() uint32 { return uint32(util.Readn(n.raw, 4, 40+4*InodeDirectPointerCount)) }
func (n inode) DoublyIndirect() uint32 {
	return uint32(util.Readn(n.raw, 4, 40+4*InodeDirectPointerCount+4))
}
func (n inode) TriplyIndirect() uint32 {
	return uint32(util.Readn(n.raw, 4, 40+4*InodeDirectPointerCount+8))
}

const inodeFixedSize = 128

// inodeTypeMask/inodeTypeXxx decode the upper 4 bits of TypeAndPerms.
const inodeTypeMask = 0xF000

const (
	inodeTypeFIFO       = 0x1000
	inodeTypeCharDev    = 0x2000
	inodeTypeDirectory  = 0x4000
	inodeTypeBlockDev   = 0x6000
	inodeTypeRegular    = 0x8000
	inodeTypeSymlink    = 0xA000
	inodeTypeUnixSocket = 0xC000
)

// DirEntryType mirrors the on-disk directory-entry type indicator byte.
type DirEntryType uint8

const (
	DirEntryUnknown DirEntryType = iota
	DirEntryRegular
	DirEntryDirectory
	DirEntryCharDev
	DirEntryBlockDev
	DirEntryFIFO
	DirEntrySocket
	DirEntrySymlink
)

// directoryEntry overlays one variable-length ext2 directory entry.
type directoryEntry struct {
	raw []byte
}

func (d directoryEntry) Inode() uint32        { return uint32(util.Readn(d.raw, 4, 0)) }
func (d directoryEntry) RecordLen() uint16    { return uint16(util.Readn(d.raw, 2, 4)) }
func (d directoryEntry) NameLen() uint8       { return uint8(util.Readn(d.raw, 1, 6)) }
func (d directoryEntry) Type() DirEntryType   { return DirEntryType(util.Readn(d.raw, 1, 7)) }

const directoryEntryHeaderSize = 8
