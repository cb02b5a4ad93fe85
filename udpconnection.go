// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtclite/internal/reactor"
	"github.com/pion/transport/v4"
	"golang.org/x/net/ipv4"
)

const (
	maxBindAttempts = 32
	// DSCP EF, shifted into the TOS byte.
	tosExpeditedForwarding = 0xb8
)

// udpConnection is the single socket of a Connection. Datagrams are read
// on their own goroutine and handed to onRecv on the reactor; writes happen
// on the reactor only.
type udpConnection struct {
	conn   net.PacketConn
	loop   *reactor.Loop
	onRecv func(pkt []byte, from *net.UDPAddr)

	peer *net.UDPAddr

	readDone chan struct{}
	log      logging.LeveledLogger
}

type udpConnectionParams struct {
	net              transport.Net
	address          string
	portMin, portMax uint16
	rand             randutil.MathRandomGenerator
	loop             *reactor.Loop
	onRecv           func(pkt []byte, from *net.UDPAddr)
	loggerFactory    logging.LoggerFactory
}

// listenUDP binds a random port in [portMin, portMax] on address. A range
// of 0-0 lets the operating system pick.
func listenUDP(params udpConnectionParams) (*udpConnection, error) {
	host := params.address
	if host == "" {
		host = "0.0.0.0"
	}

	conn, err := bindInRange(params.net, host, params.portMin, params.portMax, params.rand)
	if err != nil {
		return nil, err
	}

	u := &udpConnection{
		conn:     conn,
		loop:     params.loop,
		onRecv:   params.onRecv,
		readDone: make(chan struct{}),
		log:      params.loggerFactory.NewLogger("udp"),
	}

	if udpConn, ok := conn.(*net.UDPConn); ok {
		if err := ipv4.NewPacketConn(udpConn).SetTOS(tosExpeditedForwarding); err != nil {
			u.log.Debugf("failed to set TOS on %s: %v", conn.LocalAddr(), err)
		}
	}

	go u.readLoop()

	return u, nil
}

func bindInRange(
	n transport.Net, host string, portMin, portMax uint16, rng randutil.MathRandomGenerator,
) (net.PacketConn, error) {
	if portMin == 0 && portMax == 0 {
		return n.ListenPacket("udp4", net.JoinHostPort(host, "0"))
	}

	span := int(portMax) - int(portMin) + 1
	attempts := span
	if attempts > maxBindAttempts {
		attempts = maxBindAttempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		port := int(portMin) + rng.Intn(span)
		conn, err := n.ListenPacket("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %v", ErrNoFreePort, lastErr)
}

// LocalPort returns the bound port.
func (u *udpConnection) LocalPort() int {
	if addr, ok := u.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}

	return 0
}

func (u *udpConnection) setPeer(addr *net.UDPAddr) {
	if u.peer == nil || !u.peer.IP.Equal(addr.IP) || u.peer.Port != addr.Port {
		u.log.Debugf("peer address %s", addr)
	}
	u.peer = addr
}

func (u *udpConnection) send(b []byte) error {
	if u.peer == nil {
		return ErrNoPeerAddress
	}

	return u.sendTo(b, u.peer)
}

func (u *udpConnection) sendTo(b []byte, addr *net.UDPAddr) error {
	_, err := u.conn.WriteTo(b, addr)

	return err
}

func (u *udpConnection) readLoop() {
	defer close(u.readDone)

	buffer := make([]byte, receiveMTU)
	for {
		n, srcAddr, err := u.conn.ReadFrom(buffer)
		if err != nil {
			u.log.Tracef("read loop exiting: %v", err)

			return
		}

		from, ok := srcAddr.(*net.UDPAddr)
		if !ok {
			continue
		}

		pkt := make([]byte, n)
		copy(pkt, buffer[:n])
		u.loop.Dispatch(func() {
			u.onRecv(pkt, from)
		})
	}
}

// Close closes the socket and waits for the read goroutine.
func (u *udpConnection) Close() error {
	err := u.conn.Close()
	<-u.readDone

	return err
}
