package base

import (
	"github.com/ValentinKolb/rmap/rpc/common"
	"net"
)

// bufferedConn is implemented by *net.TCPConn and *net.UnixConn
type bufferedConn interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// ApplySocketConf sets the kernel buffer sizes of a stream socket.
// Connections without socket buffers (e.g. net.Pipe) are left untouched.
func ApplySocketConf(conn net.Conn, conf common.SocketConf) error {
	sock, ok := conn.(bufferedConn)
	if !ok {
		return nil
	}
	if conf.WriteBufferSize > 0 {
		if err := sock.SetWriteBuffer(conf.WriteBufferSize); err != nil {
			return err
		}
	}
	if conf.ReadBufferSize > 0 {
		if err := sock.SetReadBuffer(conf.ReadBufferSize); err != nil {
			return err
		}
	}
	return nil
}
