// Package fs implements the read-only ext2 parser (spec component C6):
// superblock validation, directory iteration, path resolution, and file
// reads through the direct/indirect/doubly-indirect/triply-indirect block
// pointer tree, entirely as index arithmetic into a RAM-resident image
// byte slice.
package fs

import (
	"defs"
	"hashtable"
	"ustr"
)

// IterationDecision lets visitor callbacks stop an in-progress walk early.
type IterationDecision int

const (
	Continue IterationDecision = iota
	Break
)

// Parser is a validated, read-only view of an ext2 filesystem image.
type Parser struct {
	image []byte
	cache *Cache

	sb    superBlock
	sbExt superBlockExt
	bgdt  []blockGroupDescriptor

	blockSize        uint32
	inodesPerGroup   uint32
	blockGroupCount  uint32
	ptrsPerBlock     uint32

	inodes *hashtable.Hashtable_t
}

// Parse validates image as an ext2 rev1 filesystem and returns a Parser
// over it, or an error identifying the first validation that failed
// (spec §3's parse-time checks; every read after Parse succeeds assumes a
// validated image, per §9).
func Parse(image []byte) (*Parser, defs.Err_t) {
	if len(image) < SuperBlockOffset+SuperBlockSize {
		return nil, defs.EINVAL
	}
	sb := superBlock{raw: image[SuperBlockOffset : SuperBlockOffset+SuperBlockSize]}
	if sb.MagicSignature() != SuperBlockMagic {
		return nil, defs.EINVAL
	}
	if sb.MajorVersion() < 1 {
		return nil, defs.EINVAL
	}

	extOff := SuperBlockOffset + superBlockExtOffset
	if len(image) < extOff+32 {
		return nil, defs.EINVAL
	}
	sbExt := superBlockExt{raw: image[extOff:]}
	if sbExt.InodeSize() != inodeFixedSize {
		return nil, defs.EINVAL
	}
	if sbExt.RequiredFeatures()&^uint32(reqFeatDirEntriesHaveType) != 0 {
		return nil, defs.EINVAL
	}
	if sbExt.WritingFeatures()&^uint32(supportedWritingFeats) != 0 {
		return nil, defs.EINVAL
	}

	blockSize := uint32(1024) << sb.BlockSizeExponent()
	groupsByBlocks := divCeil(sb.BlockCount(), sb.BlocksPerGroup())
	groupsByInodes := divCeil(sb.InodeCount(), sb.InodesPerGroup())
	if groupsByBlocks == 0 || groupsByBlocks != groupsByInodes {
		return nil, defs.EINVAL
	}
	if uint64(len(image)) < uint64(blockSize)*uint64(sb.BlockCount()) {
		return nil, defs.EINVAL
	}

	bgdtOff := uint64(sb.SuperblockBlockNumber()+1) * uint64(blockSize)
	bgdt := make([]blockGroupDescriptor, groupsByBlocks)
	for i := range bgdt {
		start := bgdtOff + uint64(i)*blockGroupDescriptorSize
		bgdt[i] = blockGroupDescriptor{raw: image[start : start+blockGroupDescriptorSize]}
	}

	p := &Parser{
		image:           image,
		cache:           NewCache(image, blockSize, 64),
		sb:              sb,
		sbExt:           sbExt,
		bgdt:            bgdt,
		blockSize:       blockSize,
		inodesPerGroup:  sb.InodesPerGroup(),
		blockGroupCount: groupsByBlocks,
		ptrsPerBlock:    blockSize / 4,
		inodes:          hashtable.MkHash(64),
	}
	return p, 0
}

func divCeil(x, y uint32) uint32 {
	if y == 0 {
		return 0
	}
	if x == 0 {
		return 0
	}
	return 1 + (x-1)/y
}

// GetInode returns the on-disk inode record for inode number n (1-based;
// RootInode is 2), consulting the parser's inode cache first.
func (p *Parser) GetInode(n uint32) inode {
	if v, ok := p.inodes.Get(int(n)); ok {
		return v.(inode)
	}
	group := (n - 1) / p.inodesPerGroup
	index := (n - 1) % p.inodesPerGroup
	tableBlock := p.bgdt[group].InodeTableStart()
	byteOff := uint64(tableBlock)*uint64(p.blockSize) + uint64(index)*inodeFixedSize
	in := inode{raw: p.image[byteOff : byteOff+inodeFixedSize]}
	p.inodes.Set(int(n), in)
	return in
}

func (p *Parser) block(n uint32) []byte {
	return p.cache.Block(n)
}

func (p *Parser) ptrsBlock(n uint32) []uint32 {
	raw := p.block(n)
	out := make([]uint32, p.ptrsPerBlock)
	for i := range out {
		out[i] = uint32(readn4(raw, int(i)*4))
	}
	return out
}

func readn4(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// ForEachDataBlock visits every data block of inode n's pointer tree in
// order: 12 direct pointers, then the singly/doubly/triply indirect
// trees. A zero pointer at any level terminates the walk entirely —
// sparse files are not supported (spec §9).
func (p *Parser) ForEachDataBlock(n uint32, cb func([]byte) IterationDecision) {
	in := p.GetInode(n)
	for i := 0; i < InodeDirectPointerCount; i++ {
		ptr := in.DirectPointer(i)
		if ptr == 0 {
			return
		}
		if cb(p.block(ptr)) == Break {
			return
		}
	}
	if !p.forEachIndirect(in.SinglyIndirect(), cb) {
		return
	}
	if !p.forEachDoublyIndirect(in.DoublyIndirect(), cb) {
		return
	}
	p.forEachTriplyIndirect(in.TriplyIndirect(), cb)
}

func (p *Parser) forEachIndirect(block uint32, cb func([]byte) IterationDecision) bool {
	if block == 0 {
		return true
	}
	for _, ptr := range p.ptrsBlock(block) {
		if ptr == 0 {
			return false
		}
		if cb(p.block(ptr)) == Break {
			return false
		}
	}
	return true
}

func (p *Parser) forEachDoublyIndirect(block uint32, cb func([]byte) IterationDecision) bool {
	if block == 0 {
		return true
	}
	for _, ptr := range p.ptrsBlock(block) {
		if ptr == 0 {
			return false
		}
		if !p.forEachIndirect(ptr, cb) {
			return false
		}
	}
	return true
}

func (p *Parser) forEachTriplyIndirect(block uint32, cb func([]byte) IterationDecision) {
	if block == 0 {
		return
	}
	for _, ptr := range p.ptrsBlock(block) {
		if ptr == 0 {
			return
		}
		if !p.forEachDoublyIndirect(ptr, cb) {
			return
		}
	}
}

// GetContentsWithOffset copies inode n's bytes starting at offset into buf,
// up to len(buf) or end of file, returning the number of bytes written.
func (p *Parser) GetContentsWithOffset(n uint32, buf []byte, offset int) int {
	if len(buf) == 0 {
		return 0
	}
	in := p.GetInode(n)
	fileSize := int(in.SizeLow())

	totalRead := 0
	dataOffset := 0
	p.ForEachDataBlock(n, func(data []byte) IterationDecision {
		blockLen := len(data)
		if fileSize-dataOffset < blockLen {
			blockLen = fileSize - dataOffset
		}
		if blockLen < 0 {
			blockLen = 0
		}

		if offset < dataOffset+blockLen {
			blockOff := 0
			if offset > dataOffset {
				blockOff = offset - dataOffset
			}
			leftInBlock := blockLen - blockOff
			sizeLeft := leftInBlock
			if rem := len(buf) - totalRead; rem < sizeLeft {
				sizeLeft = rem
			}
			copy(buf[totalRead:totalRead+sizeLeft], data[blockOff:blockOff+sizeLeft])
			totalRead += sizeLeft
			if totalRead == len(buf) {
				return Break
			}
		}

		dataOffset += len(data)
		if dataOffset >= fileSize {
			return Break
		}
		return Continue
	})
	return totalRead
}

// GetContents reads inode n's entire (up to len(buf)) contents from the
// start.
func (p *Parser) GetContents(n uint32, buf []byte) int {
	return p.GetContentsWithOffset(n, buf, 0)
}

// ForEachDirectoryEntry requires inode n to be a directory and visits each
// live (non-tombstoned) entry in block order.
func (p *Parser) ForEachDirectoryEntry(n uint32, cb func(inode uint32, name ustr.Ustr, typ DirEntryType) IterationDecision) {
	p.ForEachDataBlock(n, func(data []byte) IterationDecision {
		off := 0
		for off < len(data) {
			ent := directoryEntry{raw: data[off:]}
			recLen := ent.RecordLen()
			if recLen == 0 {
				return Break
			}
			if ent.Inode() != 0 {
				nameOff := off + directoryEntryHeaderSize
				name := ustr.Ustr(data[nameOff : nameOff+int(ent.NameLen())])
				if cb(ent.Inode(), name, ent.Type()) == Break {
					return Break
				}
			}
			off += int(recLen)
		}
		return Continue
	})
}

// GetNextDirectoryEntry implements the stateless O(n) pagination contract:
// callers pass back the previously returned nextOffset (0 to start) and
// get the next live entry plus the offset to resume from, or ok=false at
// end of directory.
func (p *Parser) GetNextDirectoryEntry(n uint32, opaqueOffset uint32) (nextOffset uint32, ino uint32, name ustr.Ustr, typ DirEntryType, ok bool) {
	var totalOffset uint32
	found := false
	p.ForEachDataBlock(n, func(data []byte) IterationDecision {
		off := 0
		for off < len(data) {
			ent := directoryEntry{raw: data[off:]}
			recLen := ent.RecordLen()
			if recLen == 0 {
				return Break
			}
			if ent.Inode() != 0 {
				if totalOffset == opaqueOffset {
					nameOff := off + directoryEntryHeaderSize
					name = ustr.Ustr(data[nameOff : nameOff+int(ent.NameLen())])
					ino = ent.Inode()
					typ = ent.Type()
					nextOffset = totalOffset + uint32(recLen)
					found = true
					return Break
				} else if totalOffset > opaqueOffset {
					return Break
				}
			}
			off += int(recLen)
			totalOffset += uint32(recLen)
		}
		return Continue
	})
	return nextOffset, ino, name, typ, found
}

// ResolvePathToInode walks path's components starting from baseInode
// (ignored, and reset to RootInode, if path is absolute), returning the
// inode the path names and its directory-entry type.
func (p *Parser) ResolvePathToInode(path ustr.Ustr, baseInode uint32) (uint32, DirEntryType, defs.Err_t) {
	if len(path) == 1 && path[0] == '/' {
		return RootInode, DirEntryDirectory, 0
	}
	if path.IsAbsolute() {
		baseInode = RootInode
		path = path[1:]
	}
	if len(path) > 0 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	ino := baseInode
	typ := DirEntryDirectory
	reachedFile := false

	for _, component := range splitComponents(path) {
		if len(component) == 0 || reachedFile {
			return 0, 0, defs.ENOENT
		}

		foundMatch := false
		p.ForEachDirectoryEntry(ino, func(childIno uint32, childName ustr.Ustr, childType DirEntryType) IterationDecision {
			if !childName.Eq(component) {
				return Continue
			}
			ino = childIno
			typ = childType
			switch childType {
			case DirEntryBlockDev, DirEntryFIFO, DirEntryCharDev,
				DirEntryRegular, DirEntrySocket, DirEntryUnknown:
				reachedFile = true
			case DirEntryDirectory:
			case DirEntrySymlink:
				// Symbolic links are unimplemented (spec §9); the caller
				// sees the symlink entry itself rather than its target.
			}
			foundMatch = true
			return Break
		})
		if !foundMatch {
			return 0, 0, defs.ENOENT
		}
	}

	return ino, typ, 0
}

// splitComponents splits path on '/', the same semantics as Rust's
// str::split: a leading, trailing, or doubled '/' yields an empty
// component, which ResolvePathToInode above rejects.
func splitComponents(path ustr.Ustr) []ustr.Ustr {
	if len(path) == 0 {
		return []ustr.Ustr{path}
	}
	var out []ustr.Ustr
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	out = append(out, path[start:])
	return out
}
