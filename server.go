// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtclite/internal/reactor"
	"github.com/pion/rtclite/internal/util"
	"github.com/pion/transport/v4"
)

// Server owns the reactor shared by all connections and a registry that
// finds a Connection by its local or remote ICE username fragment.
type Server struct {
	configuration Configuration
	settingEngine *SettingEngine

	loop *reactor.Loop
	cert *Certificate
	net  transport.Net
	rand randutil.MathRandomGenerator

	mu          sync.Mutex
	connections map[string]*Connection
	isClosed    bool

	log logging.LeveledLogger
}

// WithSettingEngine allows providing a SettingEngine to the Server.
// Settings should not be changed after passing the engine to a Server.
func WithSettingEngine(s SettingEngine) func(*Server) {
	return func(srv *Server) {
		srv.settingEngine = &s
	}
}

// NewServer starts a Server. A certificate is generated when the
// configuration carries none.
func NewServer(configuration Configuration, options ...func(*Server)) (*Server, error) {
	s := &Server{
		configuration: configuration.withDefaults(),
		connections:   map[string]*Connection{},
	}
	for _, o := range options {
		o(s)
	}
	if s.settingEngine == nil {
		s.settingEngine = &SettingEngine{}
	}

	loggerFactory := s.settingEngine.getLoggerFactory()
	s.log = loggerFactory.NewLogger("rtclite")

	var err error
	if s.net, err = s.settingEngine.getNet(); err != nil {
		return nil, err
	}
	s.rand = s.settingEngine.getRand()

	s.cert = s.configuration.Certificate
	if s.cert == nil {
		if s.cert, err = GenerateCertificate(); err != nil {
			return nil, err
		}
	}

	s.loop = reactor.New(loggerFactory)

	return s, nil
}

// NewConnection creates and registers a Connection under its local ufrag.
// A failed bind is retried once on a new random port.
func (s *Server) NewConnection(role DTLSRole) (*Connection, error) {
	s.mu.Lock()
	closed := s.isClosed
	s.mu.Unlock()
	if closed {
		return nil, ErrConnectionClosed
	}

	var (
		c   *Connection
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		c = newConnection(connectionParams{
			role:     role,
			config:   s.configuration,
			settings: s.settingEngine,
			cert:     s.cert,
			loop:     s.loop,
			net:      s.net,
			rand:     s.rand,
		})
		if err = c.init(); err == nil || !errors.Is(err, ErrNoFreePort) {
			break
		}
		s.log.Warnf("retrying connection setup: %v", err)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.onClose = s.forget
	c.mu.Unlock()

	ufrag := c.LocalUfrag()
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		go c.Close() //nolint:errcheck

		return nil, ErrConnectionClosed
	}
	if _, ok := s.connections[ufrag]; ok {
		s.mu.Unlock()
		s.log.Warnf("rejecting connection with duplicate ufrag %q", ufrag)

		return nil, util.FlattenErrs([]error{fmt.Errorf("%w: %s", ErrDuplicateUfrag, ufrag), c.Close()})
	}
	s.connections[ufrag] = c
	s.mu.Unlock()

	return c, nil
}

// OnRequest answers a remote offer. The answering connection takes the DTLS
// server role and is registered under both ufrags.
func (s *Server) OnRequest(offer string) (answer string, err error) {
	c, err := s.NewConnection(DTLSRoleServer)
	if err != nil {
		return "", err
	}

	if err := s.applyRemoteDescription(c, offer); err != nil {
		return "", err
	}

	return c.LocalDescription(), nil
}

// GetLocalDescription creates an offering connection in the DTLS client role.
// uid identifies it for OnRemoteDescription.
func (s *Server) GetLocalDescription() (uid, offer string, err error) {
	c, err := s.NewConnection(DTLSRoleClient)
	if err != nil {
		return "", "", err
	}

	return c.LocalUfrag(), c.LocalDescription(), nil
}

// OnRemoteDescription applies the answer to the connection GetLocalDescription
// returned uid for.
func (s *Server) OnRemoteDescription(uid, answer string) error {
	c, ok := s.Connection(uid)
	if !ok {
		return ErrUnknownConnection
	}

	return s.applyRemoteDescription(c, answer)
}

func (s *Server) applyRemoteDescription(c *Connection, raw string) error {
	if err := c.SetRemoteDescription(raw); err != nil {
		return util.FlattenErrs([]error{err, c.Close()})
	}

	remote := c.RemoteUfrag()
	s.mu.Lock()
	if registered, ok := s.connections[remote]; ok && registered != c {
		s.mu.Unlock()
		s.log.Warnf("rejecting remote description with duplicate ufrag %q", remote)

		return util.FlattenErrs([]error{fmt.Errorf("%w: %s", ErrDuplicateUfrag, remote), c.Close()})
	}
	if remote != "" && !s.isClosed {
		s.connections[remote] = c
	}
	s.mu.Unlock()

	return nil
}

// Connection looks a Connection up by local or remote ufrag.
func (s *Server) Connection(ufrag string) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[ufrag]

	return c, ok
}

// Connections returns every registered Connection once.
func (s *Server) Connections() []*Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uniqueConnections()
}

func (s *Server) uniqueConnections() []*Connection {
	seen := map[*Connection]struct{}{}
	out := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	return out
}

// Remove closes the Connection registered under ufrag.
func (s *Server) Remove(ufrag string) error {
	c, ok := s.Connection(ufrag)
	if !ok {
		return ErrUnknownConnection
	}

	return c.Close()
}

func (s *Server) forget(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ufrag, registered := range s.connections {
		if registered == c {
			delete(s.connections, ufrag)
		}
	}
}

// SendVideoFrame hands one H.264 access unit to every established
// Connection and returns how many took it.
func (s *Server) SendVideoFrame(frame []byte) int {
	return s.broadcast(func(c *Connection) error { return c.SendVideoFrame(frame) })
}

// SendAudioFrame hands one Opus frame to every established Connection and
// returns how many took it.
func (s *Server) SendAudioFrame(frame []byte) int {
	return s.broadcast(func(c *Connection) error { return c.SendAudioFrame(frame) })
}

func (s *Server) broadcast(send func(*Connection) error) int {
	sent := 0
	for _, c := range s.Connections() {
		if err := send(c); err == nil {
			sent++
		}
	}

	return sent
}

// Close closes every Connection and stops the reactor.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()

		return nil
	}
	s.isClosed = true
	connections := s.uniqueConnections()
	s.mu.Unlock()

	closeErrs := make([]error, 0, len(connections))
	for _, c := range connections {
		closeErrs = append(closeErrs, c.Close())
	}
	s.loop.Close()

	return util.FlattenErrs(closeErrs)
}
