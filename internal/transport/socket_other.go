//go:build !unix

package transport

import "net"

// tuneSocket is a no-op on non-Unix platforms; TCPConn.SetNoDelay in Dial
// already covers TCP_NODELAY there.
func tuneSocket(conn *net.TCPConn, noDelay bool) error {
	return nil
}
