// Package rpc mirrors sequencer playhead positions to another process, such
// as a second display showing the current page.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultPort is used when an address has no port.
const DefaultPort = "31337"

// StepSync is the position of one sequencer's playhead.
type StepSync struct {
	Role string
	Step int
	Page int
}

// SyncServer hands positions received over rpc to a channel. Once closed,
// it closes the channel and refuses further positions.
type SyncServer struct {
	mu      sync.RWMutex
	closed  bool
	channel chan StepSync
}

// ErrClosed is returned by Sync after the server was closed.
var ErrClosed = errors.New("step sync server closed")

// NewSyncServer returns a server delivering to c.
func NewSyncServer(c chan StepSync) *SyncServer {
	return &SyncServer{channel: c}
}

// Sync delivers a position, dropping it if the channel is full.
func (s *SyncServer) Sync(syncData StepSync, reply *int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.channel <- syncData:
	default:
	}
	return nil
}

// Close closes the channel once no Sync call is delivering to it.
func (s *SyncServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

// Receiver listens on addr until ctx is done and returns a channel of the
// positions received and the address actually listened on, which differs
// from addr when addr asks for port 0. Positions that arrive while the
// channel is full are dropped. The channel is closed after the listener.
func Receiver(ctx context.Context, addr string) (<-chan StepSync, string, error) {
	c := make(chan StepSync, 16)
	syncServer := NewSyncServer(c)
	server := rpc.NewServer()
	if err := server.RegisterName("SyncServer", syncServer); err != nil {
		return nil, "", fmt.Errorf("rpc.Register failed: %w", err)
	}
	l, err := net.Listen("tcp", withPort(addr))
	if err != nil {
		return nil, "", fmt.Errorf("net.Listen failed: %w", err)
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	go func() {
		defer syncServer.Close()
		http.Serve(l, server)
	}()
	return c, l.Addr().String(), nil
}

// Sender dials a receiver and returns a channel that forwards positions to
// it. Closing the channel closes the connection. Failed calls are logged
// and do not stop the sender.
func Sender(serverAddress string) (chan<- StepSync, error) {
	c := make(chan StepSync, 256)
	client, err := rpc.DialHTTP("tcp", withPort(serverAddress))
	if err != nil {
		return nil, fmt.Errorf("rpc.DialHTTP failed: %w", err)
	}
	go func() {
		defer client.Close()
		for msg := range c {
			var reply int
			if err := client.Call("SyncServer.Sync", msg, &reply); err != nil {
				log.Warn("step sync failed", "addr", serverAddress, "err", err)
			}
		}
	}()
	return c, nil
}

func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, DefaultPort)
}
