package defs

import "strconv"

/// Err_t is a kernel-side error code: a small negative int returned in EAX
/// on syscall failure, or a plain negative sentinel internally. Zero means
/// success everywhere it is used.
type Err_t int

const (
	EUNKNOWNSYS     Err_t = -1  /// unrecognized syscall number
	EBADFD          Err_t = -2  /// invalid or unopened file descriptor
	EMFILE          Err_t = -3  /// per-process or global open-file limit reached
	EFAULT          Err_t = -4  /// userspace pointer invalid for the requested access
	ENOENT          Err_t = -5  /// path does not resolve to an inode
	EISDIR          Err_t = -6  /// operation requires a non-directory but found one
	ENOTDIR         Err_t = -7  /// operation requires a directory but found a file
	ETOOSMALL       Err_t = -8  /// caller-supplied buffer too small for the result
	EBADELF         Err_t = -9  /// ELF image failed validation
	ENOMEM          Err_t = -10 /// allocation failed; out of physical memory or heap
	ENOHEAP         Err_t = -11 /// kernel heap reservation exhausted
	ERANGEFULL      Err_t = -12 /// range-set at capacity
	ENOSPC          Err_t = -13 /// ext2 image exhausted (e.g. too many processes, too many FDs)
	EINVAL          Err_t = -14 /// malformed argument (misaligned address, zero length, bad align)
	ESRCH           Err_t = -15 /// no such process
)

/// Pid_t identifies a process. Pid 0 never names a real process; it is the
/// sentinel the scheduler starts in before any process table slot is
/// occupied.
type Pid_t int

/// names maps each declared code to the identifier used in panic and log
/// messages; keeping this table instead of fmt.Stringer boilerplate matches
/// the donor's preference for small lookup tables over generated code.
var names = map[Err_t]string{
	EUNKNOWNSYS: "UnknownSyscall",
	EBADFD:      "InvalidFileDescriptor",
	EMFILE:      "OpenFileLimitReached",
	EFAULT:      "InvalidAddress",
	ENOENT:      "InvalidPath",
	EISDIR:      "PathIsDirectory",
	ENOTDIR:     "PathIsNotDirectory",
	ETOOSMALL:   "BufferTooSmall",
	EBADELF:     "InvalidElfFile",
	ENOMEM:      "NoMemory",
	ENOHEAP:     "NoHeap",
	ERANGEFULL:  "RangeSetFull",
	ENOSPC:      "NoSpace",
	EINVAL:      "InvalidArgument",
	ESRCH:       "NoSuchProcess",
}

/// String renders the error kind name, falling back to the numeric value
/// for anything outside the closed set (there should be nothing outside
/// the closed set, but panics must never themselves panic).
func (e Err_t) String() string {
	if s, ok := names[e]; ok {
		return s
	}
	return "Err_t(" + strconv.Itoa(int(e)) + ")"
}

/// Rc packages e as a syscall return value: 0 stays 0, any error becomes
/// its own (already negative) numeric value widened to the ABI's register
/// width.
func (e Err_t) Rc() int {
	return int(e)
}
