package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"

	"github.com/pithecene-io/lintstatus/iox"
)

// Transports understood by Serve.
const (
	TransportJSONRPC = "jsonrpc"
	TransportFrame   = "frame"
)

// StdioAddr dials the process's own stdin and stdout.
const StdioAddr = "stdio"

// Dial connects to a running worker at addr: "unix:///path/to.sock",
// "tcp://host:port", or "stdio".
func Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	if addr == StdioAddr {
		return stdio{in: os.Stdin, out: os.Stdout}, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, &ChannelError{Kind: ChannelErrorDial, Err: fmt.Errorf("parse address %q: %w", addr, err)}
	}

	var network, target string
	switch u.Scheme {
	case "unix":
		network, target = "unix", u.Path
	case "tcp":
		network, target = "tcp", u.Host
	default:
		return nil, &ChannelError{Kind: ChannelErrorDial, Err: fmt.Errorf("unsupported address scheme %q", u.Scheme)}
	}
	if target == "" {
		return nil, &ChannelError{Kind: ChannelErrorDial, Err: fmt.Errorf("address %q has no %s target", addr, network)}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, target)
	if err != nil {
		return nil, &ChannelError{Kind: ChannelErrorDial, Err: err}
	}
	return conn, nil
}

// Serve feeds sink from rwc using the named transport.
func Serve(ctx context.Context, transport string, rwc io.ReadWriteCloser, sink Sink, opts ServeOptions) error {
	switch transport {
	case TransportJSONRPC, "":
		return ServeJSONRPC(ctx, rwc, sink, opts.Logger, opts.Collector)
	case TransportFrame:
		defer iox.DiscardClose(rwc)
		return NewFrameReader(rwc, opts.Logger, opts.Collector).Run(ctx, sink)
	default:
		return fmt.Errorf("unknown transport %q", transport)
	}
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s stdio) Close() error { return iox.CloseAll(s.in, s.out) }
