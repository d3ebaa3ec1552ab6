package http

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmap/rpc/common"
	"github.com/ValentinKolb/rmap/rpc/transport"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Parse each server URL, the scheme defaults to http
	parsedURLs := make([]*url.URL, len(config.Transport.Endpoints))
	for i, server := range config.Transport.Endpoints {
		if !strings.Contains(server, "://") {
			server = "http://" + server
		}
		parsedURL, err := url.Parse(strings.TrimSuffix(server, "/"))
		if err != nil {
			return err
		}
		parsedURLs[i] = parsedURL
	}

	t.client = &http.Client{
		Timeout: config.Timeout(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(10, config.Transport.ConnectionsPerEndpoint),
			IdleConnTimeout:     90 * time.Second,
			WriteBufferSize:     config.Transport.WriteBufferSize,
			ReadBufferSize:      config.Transport.ReadBufferSize,
		},
	}
	t.serverURLs = parsedURLs
	t.counter = 0
	t.retryCount = max(1, config.Transport.RetryCount)

	return nil
}

func (t *httpClientTransport) Send(shardId uint64, req []byte) (resp []byte, err error) {
	if t.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	// Select the next server via round-robin
	idx := atomic.AddUint32(&t.counter, 1) % uint32(len(t.serverURLs))
	requestURL := fmt.Sprintf("%s/%d", t.serverURLs[idx].String(), shardId)

	// A request is only retried if the connection could not be established,
	// otherwise the server may have applied it already
	var httpResponse *http.Response
	for i := 0; i < t.retryCount; i++ {
		httpResponse, err = t.client.Post(requestURL, "application/octet-stream", bytes.NewReader(req))
		if err == nil || !isDialError(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s", httpResponse.Status)
	}

	return io.ReadAll(httpResponse.Body)
}

func (t *httpClientTransport) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	t.client = nil
	t.serverURLs = nil

	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
