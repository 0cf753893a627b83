//go:build unix

package transport

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// tuneSocket applies the raw-fd socket options the original C++ client sets
// on its non-blocking socket before first use: TCP_NODELAY via setsockopt,
// mirrored here for platforms where TCPConn.SetNoDelay alone is not
// trusted, and a SO_ERROR read to surface any deferred connect error that a
// non-blocking connect can leave pending (original_source/csrc/Source's
// select-then-getsockopt idiom).
func tuneSocket(conn *net.TCPConn, noDelay bool) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "transport: SyscallConn")
	}

	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		if setErr := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(noDelay)); setErr != nil {
			sockErr = errors.Wrap(setErr, "setsockopt TCP_NODELAY")
			return
		}
		errno, getErr := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
		if getErr != nil {
			sockErr = errors.Wrap(getErr, "getsockopt SO_ERROR")
			return
		}
		if errno != 0 {
			sockErr = errors.Wrapf(syscall.Errno(errno), "deferred connect error")
		}
	})
	if ctrlErr != nil {
		return errors.Wrap(ctrlErr, "transport: raw socket control")
	}
	return sockErr
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
