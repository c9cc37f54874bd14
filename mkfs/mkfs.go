// Command mkfs builds the bootable disk image this kernel ships as: a
// bootloader, a kernel, and a read-only ext2 filesystem image holding a
// host directory tree, concatenated in that order (spec §6's boot
// sequence expects to find the kernel and the filesystem at fixed offsets
// following the boot sector). Adapted from the donor's own mkfs, whose
// mutable Ufs_t-over-ahci_disk_t image format has no counterpart here: this
// kernel's ext2 parser (package fs) is read-only and RAM-resident, so the
// image is built directly against fs's on-disk layout instead of going
// through a simulated block device.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func addTree(im *image, selfIno, parentIno uint32, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		die("mkfs: reading %s: %v", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var ents []dirEnt
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		ino := im.allocInode()
		if e.IsDir() {
			ents = append(ents, dirEnt{inode: ino, name: e.Name(), typ: dirTypeDirectory})
			addTree(im, ino, selfIno, path)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			die("mkfs: reading %s: %v", path, err)
		}
		blocks := writeFile(im, content)
		im.writeInode(ino, typeRegular, uint32(len(content)), blocks)
		ents = append(ents, dirEnt{inode: ino, name: e.Name(), typ: dirTypeRegular})
	}

	block := writeDirectory(im, selfIno, parentIno, ents)
	im.writeInode(selfIno, typeDirectory, blockSize, []uint32{block})
}

func buildFSImage(skelDir string) []byte {
	im := newImage()
	addTree(im, rootInode, rootInode, skelDir)
	return im.finalize()
}

func main() {
	if len(os.Args) < 5 {
		die("usage: mkfs <bootloader image> <kernel image> <output image> <skeleton dir>")
	}
	bootPath, kernelPath, outPath, skelDir := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	boot, err := os.ReadFile(bootPath)
	if err != nil {
		die("mkfs: reading bootloader: %v", err)
	}
	kernel, err := os.ReadFile(kernelPath)
	if err != nil {
		die("mkfs: reading kernel: %v", err)
	}
	fsImage := buildFSImage(skelDir)

	out, err := os.Create(outPath)
	if err != nil {
		die("mkfs: creating %s: %v", outPath, err)
	}
	defer out.Close()

	for _, chunk := range [][]byte{boot, kernel, fsImage} {
		if _, err := out.Write(chunk); err != nil {
			die("mkfs: writing %s: %v", outPath, err)
		}
	}
}
