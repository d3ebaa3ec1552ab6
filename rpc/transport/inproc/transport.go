package inproc

import (
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"github.com/ValentinKolb/rmap/rpc/transport/base"
	"net"
)

type clientConnector struct{}

func (c *clientConnector) GetName() string {
	return "inproc"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return dial(endpoint)
}

func (c *clientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

type serverConnector struct{}

func (c *serverConnector) GetName() string {
	return "inproc"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return listen(config.Transport.Endpoint)
}

func (c *serverConnector) UpgradeConnection(net.Conn, common.ServerConfig) error {
	return nil
}

// NewInprocClientTransport creates a client transport that dials in-process endpoints
func NewInprocClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}

// NewInprocServerTransport creates a server transport that listens on an in-process endpoint
func NewInprocServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
