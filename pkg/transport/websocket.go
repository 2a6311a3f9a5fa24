package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/picoha.go/pkg/framework"
)

// WSServer is a device transport serving one websocket host at a time.
// A new connection replaces the previous one. Binary frames carry the
// SLIP byte stream in both directions.
type WSServer struct {
	*Staging
	Addr string
	Path string

	lock     sync.Mutex
	conn     *websocket.Conn
	listener net.Listener
}

// NewWSServer creates a websocket server transport.
func NewWSServer(addr, path string, stagingSize int) *WSServer {
	if path == "" {
		path = "/"
	}
	return &WSServer{Staging: NewStaging(stagingSize), Addr: addr, Path: path}
}

// Listen binds the address, for callers needing it before Run.
func (s *WSServer) Listen() (net.Addr, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return nil, err
		}
		s.listener = ln
	}
	return s.listener.Addr(), nil
}

// Run implements framework.Runnable.
func (s *WSServer) Run(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle(s.Path, websocket.Handler(s.serveConn))
	server := &http.Server{Handler: mux}
	glog.Infof("websocket listening on %s%s", addr, s.Path)
	return framework.RunWithContextCloser(ctx, server, func() error {
		err := server.Serve(s.listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
}

// Write sends bytes to the connected host. Without a host the bytes are
// discarded like on an unplugged line.
func (s *WSServer) Write(b []byte) (int, error) {
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn == nil {
		glog.V(2).Infof("websocket: no host, %d bytes discarded", len(b))
		return len(b), nil
	}
	if err := websocket.Message.Send(conn, b); err != nil {
		glog.Warningf("websocket: send to %s: %v", conn.Request().RemoteAddr, err)
		conn.Close()
	}
	return len(b), nil
}

func (s *WSServer) serveConn(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	remote := conn.Request().RemoteAddr
	s.lock.Lock()
	prev := s.conn
	s.conn = conn
	s.lock.Unlock()
	if prev != nil {
		prev.Close()
	}
	glog.Infof("websocket: host %s connected", remote)

	for {
		var msg []byte
		err := websocket.Message.Receive(conn, &msg)
		if err == nil {
			err = s.Put(msg)
		}
		if err != nil {
			if err != io.EOF {
				glog.V(2).Infof("websocket: %s: %v", remote, err)
			}
			break
		}
	}

	s.lock.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.lock.Unlock()
	conn.Close()
	glog.Infof("websocket: host %s disconnected", remote)
}

// Close stops accepting bytes.
func (s *WSServer) Close() error {
	s.Staging.Close()
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn != nil {
		conn.Close()
	}
	return nil
}

// WSConn is a host side websocket transport.
type WSConn websocket.Conn

// DialWS connects to a device websocket.
func DialWS(url string) (*WSConn, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return (*WSConn)(conn), nil
}

// Read implements io.Reader.
func (c *WSConn) Read(b []byte) (int, error) {
	return (*websocket.Conn)(c).Read(b)
}

// Write implements io.Writer, one binary frame per call.
func (c *WSConn) Write(b []byte) (int, error) {
	return (*websocket.Conn)(c).Write(b)
}

// Close implements io.Closer.
func (c *WSConn) Close() error {
	return (*websocket.Conn)(c).Close()
}
