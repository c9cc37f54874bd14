package syscalls

// maxPathLen bounds how many bytes Userstr will scan before giving up
// with ETOOSMALL, applied to every path argument a syscall reads out of
// user memory.
const maxPathLen = 4096

// maxArgLen bounds a single argv/envp string read by sysExecve.
const maxArgLen = 4096

// maxArgc bounds how many entries sysExecve will walk out of an argv or
// envp pointer array before giving up.
const maxArgc = 256
