// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"
	"github.com/pion/transport/v4/packetio"
)

const (
	labelExtractorDtlsSrtp = "EXTRACTOR-dtls_srtp"
	dtlsMTU                = 1200
	dtlsBufferSize         = 1000 * 1000
)

// pipeAddr names both ends of the in-memory DTLS transport.
type pipeAddr struct{}

func (pipeAddr) Network() string { return "udp" }
func (pipeAddr) String() string  { return "rtclite-dtls-pipe" }

// dtlsPipe is the net.PacketConn the DTLS engine runs on. Inbound records
// are written into a packetio.Buffer by onRecv; outbound records are handed
// to the connection's send function, which multiplexes them onto the UDP
// socket shared with RTP, RTCP and STUN.
type dtlsPipe struct {
	buffer *packetio.Buffer
	write  func([]byte)
	closed atomic.Bool
}

func newDTLSPipe(write func([]byte)) *dtlsPipe {
	buffer := packetio.NewBuffer()
	buffer.SetLimitSize(dtlsBufferSize)

	return &dtlsPipe{buffer: buffer, write: write}
}

func (p *dtlsPipe) ReadFrom(b []byte) (int, net.Addr, error) {
	n, err := p.buffer.Read(b)

	return n, pipeAddr{}, err
}

func (p *dtlsPipe) WriteTo(b []byte, _ net.Addr) (int, error) {
	if p.closed.Load() {
		return 0, net.ErrClosed
	}
	p.write(append([]byte(nil), b...))

	return len(b), nil
}

func (p *dtlsPipe) Close() error {
	p.closed.Store(true)

	return p.buffer.Close()
}

func (p *dtlsPipe) LocalAddr() net.Addr { return pipeAddr{} }

func (p *dtlsPipe) SetDeadline(t time.Time) error { return p.buffer.SetReadDeadline(t) }

func (p *dtlsPipe) SetReadDeadline(t time.Time) error { return p.buffer.SetReadDeadline(t) }

func (p *dtlsPipe) SetWriteDeadline(time.Time) error { return nil }

// handshakeHandler receives the SRTP keys, or the reason there are none.
// It is called from the handshake goroutine.
type handshakeHandler func(keys *srtpKeys, err error)

// dtlsConnection runs one DTLS-SRTP handshake over a dtlsPipe.
type dtlsConnection struct {
	role   DTLSRole
	config *dtls.Config
	pipe   *dtlsPipe

	mu     sync.Mutex
	conn   *dtls.Conn
	closed bool

	remoteFingerprint string

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log logging.LeveledLogger
}

func newDTLSConnection(
	role DTLSRole,
	cert *Certificate,
	verifyFingerprint bool,
	send func([]byte),
	loggerFactory logging.LoggerFactory,
) *dtlsConnection {
	d := &dtlsConnection{
		role: role,
		pipe: newDTLSPipe(send),
		log:  loggerFactory.NewLogger("dtls"),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.config = &dtls.Config{
		Certificates:           []tls.Certificate{cert.tlsCertificate()},
		SRTPProtectionProfiles: []dtls.SRTPProtectionProfile{dtls.SRTP_AES128_CM_HMAC_SHA1_80},
		ExtendedMasterSecret:   dtls.RequireExtendedMasterSecret,
		ClientAuth:             dtls.RequireAnyClientCert,
		InsecureSkipVerify:     true,
		MTU:                    dtlsMTU,
		LoggerFactory:          loggerFactory,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if !verifyFingerprint || d.remoteFingerprint == "" {
				return nil
			}
			if len(rawCerts) == 0 {
				return ErrNoRemoteCertificate
			}

			return matchesFingerprint(rawCerts[0], d.remoteFingerprint)
		},
	}

	return d
}

// setRemoteFingerprint must be called before Listen or Connect.
func (d *dtlsConnection) setRemoteFingerprint(value string) {
	d.remoteFingerprint = value
}

// Listen waits for the peer's ClientHello.
func (d *dtlsConnection) Listen(onDone handshakeHandler) {
	d.start(onDone)
}

// Connect sends the ClientHello immediately.
func (d *dtlsConnection) Connect(onDone handshakeHandler) {
	d.start(onDone)
}

// OnRecv feeds an inbound DTLS record to the handshake engine.
func (d *dtlsConnection) OnRecv(b []byte) {
	if _, err := d.pipe.buffer.Write(b); err != nil {
		d.log.Debugf("dropping DTLS record: %v", err)
	}
}

func (d *dtlsConnection) start(onDone handshakeHandler) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		var (
			conn *dtls.Conn
			err  error
		)
		if d.role == DTLSRoleClient {
			conn, err = dtls.Client(d.pipe, pipeAddr{}, d.config)
		} else {
			conn, err = dtls.Server(d.pipe, pipeAddr{}, d.config)
		}
		if err != nil {
			onDone(nil, err)

			return
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			_ = conn.Close()
			onDone(nil, ErrConnectionClosed)

			return
		}
		d.conn = conn
		d.mu.Unlock()

		if err = conn.HandshakeContext(d.ctx); err != nil {
			onDone(nil, err)

			return
		}

		keys, err := exportSRTPKeys(conn, d.role)
		onDone(keys, err)
		if err != nil {
			return
		}

		// No application data is carried; reading keeps alerts flowing.
		buf := make([]byte, receiveMTU)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()
}

// Close aborts a pending handshake, sends close_notify on an established one
// and waits for the handshake goroutine.
func (d *dtlsConnection) Close() error {
	d.cancel()

	d.mu.Lock()
	d.closed = true
	conn := d.conn
	d.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	_ = d.pipe.Close()
	d.wg.Wait()

	return err
}

func exportSRTPKeys(conn *dtls.Conn, role DTLSRole) (*srtpKeys, error) {
	profile, ok := conn.SelectedSRTPProtectionProfile()
	if !ok || profile != dtls.SRTP_AES128_CM_HMAC_SHA1_80 {
		return nil, ErrNoSRTPProtectionProfile
	}

	state, ok := conn.ConnectionState()
	if !ok {
		return nil, errDTLSStateUnavailable
	}

	keyLen, err := srtpProtectionProfile.KeyLen()
	if err != nil {
		return nil, err
	}
	saltLen, err := srtpProtectionProfile.SaltLen()
	if err != nil {
		return nil, err
	}

	material, err := state.ExportKeyingMaterial(labelExtractorDtlsSrtp, nil, 2*(keyLen+saltLen))
	if err != nil {
		return nil, err
	}

	return splitKeyingMaterial(material, role, keyLen, saltLen)
}

// splitKeyingMaterial splits client key | server key | client salt |
// server salt (RFC 5764 section 4.2). The server sends with the server half.
func splitKeyingMaterial(material []byte, role DTLSRole, keyLen, saltLen int) (*srtpKeys, error) {
	if len(material) < 2*(keyLen+saltLen) {
		return nil, errShortKeyingMaterial
	}

	offset := 0
	clientKey := append([]byte{}, material[offset:offset+keyLen]...)
	offset += keyLen
	serverKey := append([]byte{}, material[offset:offset+keyLen]...)
	offset += keyLen
	clientSalt := append([]byte{}, material[offset:offset+saltLen]...)
	offset += saltLen
	serverSalt := append([]byte{}, material[offset:offset+saltLen]...)

	if role == DTLSRoleServer {
		return &srtpKeys{
			sendKey: serverKey, sendSalt: serverSalt,
			recvKey: clientKey, recvSalt: clientSalt,
		}, nil
	}

	return &srtpKeys{
		sendKey: clientKey, sendSalt: clientSalt,
		recvKey: serverKey, recvSalt: serverSalt,
	}, nil
}
