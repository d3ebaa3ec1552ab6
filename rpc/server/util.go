package server

import (
	"fmt"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/ValentinKolb/rmap/rpc/transport/http"
	"github.com/ValentinKolb/rmap/rpc/transport/inproc"
	"github.com/ValentinKolb/rmap/rpc/transport/tcp"
	"github.com/ValentinKolb/rmap/rpc/transport/unix"
)

// NewServerTransport returns the server transport with the given name (tcp, unix, http or inproc)
func NewServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch name {
	case "tcp", "":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	case "http":
		return http.NewHttpServerTransport(), nil
	case "inproc":
		return inproc.NewInprocServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (must be tcp, unix, http or inproc)", name)
	}
}
