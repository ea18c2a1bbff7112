package elfobj

import (
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/xyproto/asmforge/asmerr"
)

// hostPageSize mirrors runtimeexec's use of unix.Getpagesize: segment
// alignment must match the host the image will actually run on.
func hostPageSize() int { return unix.Getpagesize() }

// Save writes the baked image to path with owner-executable mode bits
// set, per spec §4.5's "save the file to disk" execution mode.
func (o *Object) Save(path string) error {
	if err := os.WriteFile(path, o.Bytes, 0o755); err != nil {
		return asmerr.Wrap(asmerr.OsError, err, "write %s", path)
	}
	return nil
}

// RunResult reports what happened to a child launched from an
// in-memory image. Ran distinguishes "the kernel transferred control
// to the image" from a failure to even start it — the ChildNotExecuted
// case spec §4.5/§7 calls out separately from a normal low exit code.
type RunResult struct {
	ExitCode int
	Ran      bool
}

// Run seeds an anonymous sealed memfd with the baked image and hands
// it to the kernel via /proc/self/fd/N, the portable Go equivalent of
// fexecve, then waits for the child and reports its exit status.
//
// Grounded on the teacher's selfextract.go/compress.go self-executing
// payload (decompress bytes, write to a temp path, exec it); this
// generalizes "write a temp file and exec" to "write to an anonymous,
// sealed memfd and exec that instead", per spec §4.5's execution mode.
func (o *Object) Run(args ...string) (*RunResult, error) {
	fd, err := unix.MemfdCreate("asmforge-image", 0)
	if err != nil {
		return nil, asmerr.Wrap(asmerr.OsError, err, "memfd_create")
	}
	defer unix.Close(fd)

	if _, err := unix.Write(fd, o.Bytes); err != nil {
		return nil, asmerr.Wrap(asmerr.OsError, err, "write memfd")
	}
	const seals = unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, seals); err != nil {
		return nil, asmerr.Wrap(asmerr.OsError, err, "seal memfd")
	}

	path := "/proc/self/fd/" + strconv.Itoa(fd)
	cmd := exec.Command(path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return &RunResult{Ran: false}, asmerr.Wrap(asmerr.ChildNotExecuted, err, "exec memfd image")
	}

	if err := cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &RunResult{Ran: true, ExitCode: exitErr.ExitCode()}, nil
		}
		return &RunResult{Ran: true}, asmerr.Wrap(asmerr.OsError, err, "wait for memfd image")
	}
	return &RunResult{Ran: true, ExitCode: 0}, nil
}
