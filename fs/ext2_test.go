package fs

import (
	"testing"

	"ustr"
	"util"
)

const testBlockSize = 1024

// buildTestImage hand-assembles a minimal, valid ext2 rev1 image: one block
// group, a root directory (inode 2) containing "." ".." and a regular file
// "hello" (inode 12) whose contents are content.
func buildTestImage(t *testing.T, content []byte) []byte {
	t.Helper()
	const blockCount = 16
	img := make([]byte, blockCount*testBlockSize)

	// Superblock at block 1 (offset 1024).
	sbOff := 1 * testBlockSize
	putU32 := func(off int, v uint32) { util.Writen(img, 4, off, int(v)) }
	putU16 := func(off int, v uint16) { util.Writen(img, 2, off, int(v)) }

	putU32(sbOff+0, 16)  // inode_count
	putU32(sbOff+4, 16)  // block_count
	putU32(sbOff+20, 1)  // superblock_block_number
	putU32(sbOff+24, 0)  // block_size_exponent (1024 << 0)
	putU32(sbOff+32, 16) // blocks_per_group
	putU32(sbOff+40, 16) // inodes_per_group
	putU16(sbOff+56, SuperBlockMagic)
	putU32(sbOff+76, 1) // major_version

	extOff := sbOff + superBlockExtOffset
	putU16(extOff+4, inodeFixedSize) // inode_size
	putU32(extOff+12, 0)             // required_feature_flags
	putU32(extOff+16, 0)             // writing_feature_flags

	// Block group descriptor table at block 2.
	bgdtOff := 2 * testBlockSize
	putU32(bgdtOff+8, 3) // inode_table_start_addr = block 3

	// Inode table occupies blocks 3-4. Root inode (n=2) -> index 1.
	rootOff := 3*testBlockSize + 1*inodeFixedSize
	putU16(rootOff+0, 0x4000|0755) // type_and_perms: directory
	putU32(rootOff+4, testBlockSize)
	putU32(rootOff+40+0, 5) // direct_pointers[0] = block 5 (root dir data)

	// File inode (n=12) -> index 11.
	fileOff := 3*testBlockSize + 11*inodeFixedSize
	putU16(fileOff+0, 0x8000|0644) // type_and_perms: regular file
	putU32(fileOff+4, uint32(len(content)))
	putU32(fileOff+40+0, 6) // direct_pointers[0] = block 6

	// Root directory data at block 5: ".", "..", "hello" (last entry
	// padded to fill the remainder of the block, as real ext2 does).
	dirOff := 5 * testBlockSize
	writeDirEntry(img, dirOff+0, 2, 9, ".", 2)
	writeDirEntry(img, dirOff+9, 2, 10, "..", 2)
	writeDirEntry(img, dirOff+19, 12, testBlockSize-19, "hello", 1)

	// File data at block 6.
	copy(img[6*testBlockSize:], content)

	return img
}

func writeDirEntry(img []byte, off int, inode uint32, recLen uint16, name string, typ uint8) {
	util.Writen(img, 4, off+0, int(inode))
	util.Writen(img, 2, off+4, int(recLen))
	util.Writen(img, 1, off+6, len(name))
	util.Writen(img, 1, off+7, int(typ))
	copy(img[off+8:], name)
}

func TestParseValidatesMagicAndVersion(t *testing.T) {
	img := buildTestImage(t, []byte("hello world\n"))
	if _, err := Parse(img); err != 0 {
		t.Fatalf("expected valid image to parse, got %v", err)
	}

	corrupt := make([]byte, len(img))
	copy(corrupt, img)
	util.Writen(corrupt, 2, 1*testBlockSize+56, 0)
	if _, err := Parse(corrupt); err == 0 {
		t.Fatal("expected bad magic to fail validation")
	}
}

func TestForEachDirectoryEntryListsRoot(t *testing.T) {
	img := buildTestImage(t, []byte("hello world\n"))
	p, err := Parse(img)
	if err != 0 {
		t.Fatalf("parse failed: %v", err)
	}

	var names []string
	p.ForEachDirectoryEntry(RootInode, func(inode uint32, name ustr.Ustr, typ DirEntryType) IterationDecision {
		names = append(names, name.String())
		return Continue
	})
	want := map[string]bool{".": true, "..": true, "hello": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected entry %q", n)
		}
	}
}

func TestGetContentsReadsFile(t *testing.T) {
	content := []byte("hello world\n")
	img := buildTestImage(t, content)
	p, err := Parse(img)
	if err != 0 {
		t.Fatalf("parse failed: %v", err)
	}

	buf := make([]byte, 64)
	n := p.GetContents(12, buf)
	if n != len(content) {
		t.Fatalf("expected %d bytes, got %d", len(content), n)
	}
	if string(buf[:n]) != string(content) {
		t.Fatalf("content mismatch: got %q", buf[:n])
	}
}

func TestResolvePathToInodeFindsFile(t *testing.T) {
	img := buildTestImage(t, []byte("hi\n"))
	p, err := Parse(img)
	if err != 0 {
		t.Fatalf("parse failed: %v", err)
	}

	ino, typ, errc := p.ResolvePathToInode(ustr.Ustr("/hello"), RootInode)
	if errc != 0 {
		t.Fatalf("resolve failed: %v", errc)
	}
	if ino != 12 {
		t.Fatalf("expected inode 12, got %d", ino)
	}
	if typ != DirEntryRegular {
		t.Fatalf("expected regular file type, got %v", typ)
	}
}

func TestResolvePathToInodeRejectsMissingPath(t *testing.T) {
	img := buildTestImage(t, []byte("hi\n"))
	p, err := Parse(img)
	if err != 0 {
		t.Fatalf("parse failed: %v", err)
	}
	if _, _, errc := p.ResolvePathToInode(ustr.Ustr("/nope"), RootInode); errc == 0 {
		t.Fatal("expected lookup of missing path to fail")
	}
}

func TestGetNextDirectoryEntryPaginates(t *testing.T) {
	img := buildTestImage(t, []byte("hi\n"))
	p, err := Parse(img)
	if err != 0 {
		t.Fatalf("parse failed: %v", err)
	}

	var got []string
	offset := uint32(0)
	for {
		next, _, name, _, ok := p.GetNextDirectoryEntry(RootInode, offset)
		if !ok {
			break
		}
		got = append(got, name.String())
		offset = next
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 paginated entries, got %v", got)
	}
}
