// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pion/rtclite/internal/icelite"
	"github.com/pion/rtclite/internal/mux"
	"github.com/pion/rtclite/internal/ntp"
	"github.com/pion/rtclite/internal/reactor"
	"github.com/pion/rtclite/internal/report"
	"github.com/pion/rtclite/internal/rtpsource"
	"github.com/pion/rtclite/internal/util"
	"github.com/pion/rtp"
	"github.com/pion/transport/v4"
)

const (
	senderReportCheckInterval = 1000 * time.Millisecond
	nackCheckInterval         = 5 * time.Millisecond
)

// connectionParams is what a Connection inherits from its Server.
type connectionParams struct {
	role     DTLSRole
	config   Configuration
	settings *SettingEngine
	cert     *Certificate
	loop     *reactor.Loop
	net      transport.Net
	rand     randutil.MathRandomGenerator
}

// Connection is one ICE-lite, DTLS-SRTP media session with a single peer.
// It sends one H.264 and one Opus track.
type Connection struct {
	params connectionParams
	state  atomic.Int32

	localUfrag, localPwd string
	localDescription     string

	// Owned by the reactor goroutine.
	remoteUfrag string
	remotePwd   string
	srtp        *srtpSession
	sink        *report.Sink
	reports     []*report.Source
	reportsBy   map[uint32]*report.Source

	dtls *dtlsConnection
	udp  *udpConnection

	video   *rtpsource.H264Source
	audio   *rtpsource.OpusSource
	sources map[uint32]rtpsource.Source

	srTimer   reactor.TimerID
	nackTimer reactor.TimerID

	mu                             sync.RWMutex
	onConnectionStateChangeHandler func(ConnectionState)
	onKeyFrameRequestHandler       func()
	onRTPHandler                   func(*rtp.Packet)
	onClose                        func(*Connection)

	closeOnce sync.Once

	log logging.LeveledLogger
}

func newConnection(params connectionParams) *Connection {
	return &Connection{
		params:    params,
		reportsBy: map[uint32]*report.Source{},
		sources:   map[uint32]rtpsource.Source{},
		log:       params.settings.getLoggerFactory().NewLogger("rtclite"),
	}
}

// init binds the socket, sets up DTLS and the packetizers, renders the
// local description and starts the report and NACK timers.
func (c *Connection) init() error {
	se := c.params.settings
	cfg := c.params.config
	loggerFactory := se.getLoggerFactory()
	rng := c.params.rand

	c.localUfrag, c.localPwd = se.iceCredentials(rng)

	ssrcs := newSSRCAllocator(rng)
	audioSSRC, videoSSRC := ssrcs.next(), ssrcs.next()
	var rtxSSRC, fecSSRC uint32
	if !se.rtp.DisableRTX {
		rtxSSRC = ssrcs.next()
	}
	if !se.rtp.DisableFEC {
		fecSSRC = ssrcs.next()
	}

	portMin, portMax := se.portRange()
	udp, err := listenUDP(udpConnectionParams{
		net:           c.params.net,
		address:       cfg.LocalAddress,
		portMin:       portMin,
		portMax:       portMax,
		rand:          rng,
		loop:          c.params.loop,
		onRecv:        c.onRecv,
		loggerFactory: loggerFactory,
	})
	if err != nil {
		return err
	}
	c.udp = udp

	c.dtls = newDTLSConnection(
		c.params.role,
		c.params.cert,
		!se.disableCertificateFingerprintVerification,
		func(b []byte) {
			c.params.loop.Dispatch(func() { c.sendRaw(b) })
		},
		loggerFactory,
	)

	var transportCC *rtpsource.TransportSequencer
	if se.rtp.TransportCCID != 0 {
		transportCC = &rtpsource.TransportSequencer{}
	}
	send := func(packets []*rtpsource.Packet) {
		c.params.loop.Dispatch(func() { c.writeRTP(packets) })
	}

	c.video, err = rtpsource.NewH264Source(rtpsource.Config{
		SSRC:                   videoSSRC,
		PayloadType:            cfg.VideoPayloadType,
		MaxPacketSize:          se.rtp.MaxPacketSize,
		RTXSSRC:                rtxSSRC,
		RTXPayloadType:         cfg.RTXPayloadType,
		CacheSize:              se.rtp.NACKCacheSize,
		FECSSRC:                fecSSRC,
		FECPayloadType:         cfg.FECPayloadType,
		TransportCC:            transportCC,
		TransportCCExtensionID: se.rtp.TransportCCID,
		Sequencer:              rtp.NewFixedSequencer(uint16(rng.Intn(1 << 16))), //nolint:gosec
		InitialTimestamp:       rng.Uint32(),
		Send:                   send,
		LoggerFactory:          loggerFactory,
	})
	if err != nil {
		_ = c.udp.Close()

		return err
	}

	c.audio, err = rtpsource.NewOpusSource(rtpsource.Config{
		SSRC:                   audioSSRC,
		PayloadType:            cfg.AudioPayloadType,
		MaxPacketSize:          se.rtp.MaxPacketSize,
		TransportCC:            transportCC,
		TransportCCExtensionID: se.rtp.TransportCCID,
		Sequencer:              rtp.NewFixedSequencer(uint16(rng.Intn(1 << 16))), //nolint:gosec
		InitialTimestamp:       rng.Uint32(),
		Send:                   send,
		LoggerFactory:          loggerFactory,
	})
	if err != nil {
		_ = c.udp.Close()

		return err
	}
	c.sources[videoSSRC] = c.video
	c.sources[audioSSRC] = c.audio

	audioInterval, videoInterval := se.senderReportIntervals()
	c.addReportSource(report.NewSource(audioSSRC, report.WithInterval(audioInterval)))
	c.addReportSource(report.NewSource(videoSSRC, report.WithInterval(videoInterval)))
	c.sink = report.NewSink(loggerFactory)
	c.sink.Track(videoSSRC, audioSSRC)

	local := &localDescription{
		sessionID:     rng.Uint64(),
		streamName:    cfg.StreamName,
		ufrag:         c.localUfrag,
		pwd:           c.localPwd,
		fingerprint:   c.params.cert.Fingerprint(),
		role:          c.params.role,
		address:       cfg.advertisedAddress(),
		port:          c.udp.LocalPort(),
		audioSSRC:     audioSSRC,
		videoSSRC:     videoSSRC,
		rtxSSRC:       rtxSSRC,
		fecSSRC:       fecSSRC,
		audioPT:       cfg.AudioPayloadType,
		videoPT:       cfg.VideoPayloadType,
		rtxPT:         cfg.RTXPayloadType,
		fecPT:         cfg.FECPayloadType,
		transportCCID: se.rtp.TransportCCID,
	}
	if c.localDescription, err = local.Marshal(); err != nil {
		_ = c.udp.Close()

		return err
	}

	c.srTimer = c.params.loop.AddTimer(senderReportCheckInterval, c.onSenderReportTimer)
	c.nackTimer = c.params.loop.AddTimer(nackCheckInterval, c.onNACKTimer)

	c.log.Infof("connection %s created as DTLS %s on port %d", c.localUfrag, c.params.role, c.udp.LocalPort())
	c.setState(ConnectionStateAwaitingRemoteDescription)

	return nil
}

func (c *Connection) addReportSource(src *report.Source) {
	c.reports = append(c.reports, src)
	c.reportsBy[src.SSRC()] = src
}

// LocalUfrag returns the local ICE username fragment, which also identifies
// the connection in its Server.
func (c *Connection) LocalUfrag() string {
	return c.localUfrag
}

// LocalDescription returns the SDP offer or answer of this side.
func (c *Connection) LocalDescription() string {
	return c.localDescription
}

// Role returns the DTLS role.
func (c *Connection) Role() DTLSRole {
	return c.params.role
}

// ConnectionState returns the current state.
func (c *Connection) ConnectionState() ConnectionState {
	return ConnectionState(c.state.Load())
}

// OnConnectionStateChange sets an event handler which is called when the
// connection state changes.
func (c *Connection) OnConnectionStateChange(f func(ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectionStateChangeHandler = f
}

// OnKeyFrameRequest sets an event handler which is called when the peer
// sends a PLI or FIR for the video track.
func (c *Connection) OnKeyFrameRequest(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onKeyFrameRequestHandler = f
}

// OnRTP sets an event handler which is called with every RTP packet the
// peer sends once the connection is established.
func (c *Connection) OnRTP(f func(*rtp.Packet)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRTPHandler = f
}

func (c *Connection) setState(state ConnectionState) {
	prev := ConnectionState(c.state.Swap(int32(state)))
	if prev == state {
		return
	}
	c.log.Debugf("connection %s: %s -> %s", c.localUfrag, prev, state)

	c.mu.RLock()
	handler := c.onConnectionStateChangeHandler
	c.mu.RUnlock()
	if handler != nil {
		go handler(state)
	}
}

// SetRemoteDescription applies the peer's offer or answer and starts the
// DTLS handshake: a server waits for the ClientHello, a client sends it.
func (c *Connection) SetRemoteDescription(raw string) error {
	remote, err := parseSessionDescription(raw)
	if err != nil {
		return err
	}

	if !c.params.loop.Call(func() { err = c.applyRemoteDescription(remote) }) {
		return ErrConnectionClosed
	}

	return err
}

func (c *Connection) applyRemoteDescription(remote *remoteDescription) error {
	switch c.ConnectionState() {
	case ConnectionStateAwaitingRemoteDescription:
	case ConnectionStateDestroyed:
		return ErrConnectionClosed
	default:
		return ErrInvalidConnectionState
	}

	c.remoteUfrag, c.remotePwd = remote.ufrag, remote.pwd
	c.dtls.setRemoteFingerprint(remote.fingerprint)

	onDone := func(keys *srtpKeys, err error) {
		c.params.loop.Dispatch(func() { c.onHandshakeDone(keys, err) })
	}

	if c.params.role == DTLSRoleClient {
		if addr := remote.peerAddress(); addr != nil && c.udp.peer == nil {
			c.udp.setPeer(addr)
		}
		c.setState(ConnectionStateConnecting)
		c.dtls.Connect(onDone)
	} else {
		c.setState(ConnectionStateListening)
		c.dtls.Listen(onDone)
	}

	return nil
}

// RemoteUfrag returns the peer's ICE username fragment once the remote
// description has been applied.
func (c *Connection) RemoteUfrag() string {
	var ufrag string
	if !c.params.loop.Call(func() { ufrag = c.remoteUfrag }) {
		return ""
	}

	return ufrag
}

func (c *Connection) onHandshakeDone(keys *srtpKeys, err error) {
	if c.ConnectionState() == ConnectionStateDestroyed {
		return
	}
	if err != nil {
		c.log.Errorf("connection %s: DTLS handshake failed: %v", c.localUfrag, err)

		return
	}

	session, err := newSRTPSession(*keys)
	if err != nil {
		c.log.Errorf("connection %s: failed to create SRTP session: %v", c.localUfrag, err)

		return
	}
	c.srtp = session

	c.log.Infof("connection %s established", c.localUfrag)
	c.setState(ConnectionStateEstablished)
}

// SendVideoFrame packetizes one H.264 Annex-B access unit.
func (c *Connection) SendVideoFrame(frame []byte) error {
	if c.ConnectionState() != ConnectionStateEstablished {
		return ErrConnectionNotEstablished
	}
	c.video.InputFrame(frame)

	return nil
}

// SendAudioFrame packetizes one Opus frame.
func (c *Connection) SendAudioFrame(frame []byte) error {
	if c.ConnectionState() != ConnectionStateEstablished {
		return ErrConnectionNotEstablished
	}
	c.audio.InputFrame(frame)

	return nil
}

func (c *Connection) onRecv(pkt []byte, from *net.UDPAddr) {
	switch c.ConnectionState() {
	case ConnectionStateCreated, ConnectionStateDestroyed:
		return
	default:
	}
	kind := mux.Classify(pkt)
	if c.udp.peer == nil && kind != mux.PacketKindSTUN {
		c.udp.setPeer(from)
	}

	switch kind {
	case mux.PacketKindRTP:
		c.handleRTP(pkt)
	case mux.PacketKindRTCP:
		c.handleRTCP(pkt)
	case mux.PacketKindSTUN:
		c.handleSTUN(pkt, from)
	case mux.PacketKindDTLS:
		c.handleDTLS(pkt)
	default:
		c.log.Tracef("dropping unclassified datagram from %s", from)
	}
}

func (c *Connection) handleSTUN(pkt []byte, from *net.UDPAddr) {
	req, err := icelite.ParseBindingRequest(pkt)
	if err != nil {
		c.log.Tracef("dropping STUN message: %v", err)

		return
	}

	local, remote, err := req.Ufrags()
	if err != nil || local != c.localUfrag {
		c.log.Warnf("dropping binding request for unknown user %q", req.Username)

		return
	}
	if err := req.Authenticate(c.localPwd); err != nil {
		c.log.Warnf("dropping binding request from %s: %v", from, err)

		return
	}
	// Unauthenticated requests are answered but never move the media path.
	if req.HasIntegrity {
		c.udp.setPeer(from)
	}

	resp, err := icelite.BuildBindingResponse(req.TransactionID, from, c.localUfrag, remote, c.localPwd)
	if err != nil {
		c.log.Warnf("failed to build binding response: %v", err)

		return
	}
	if err := c.udp.sendTo(resp, from); err != nil {
		c.log.Warnf("failed to send binding response: %v", err)
	}
}

func (c *Connection) handleDTLS(pkt []byte) {
	switch c.ConnectionState() {
	case ConnectionStateListening, ConnectionStateConnecting:
		c.setState(ConnectionStateHandshakeInProgress)
	default:
	}
	c.dtls.OnRecv(pkt)
}

func (c *Connection) handleRTP(pkt []byte) {
	if c.srtp == nil {
		c.log.Tracef("dropping RTP before DTLS completion")

		return
	}

	plain, err := c.srtp.UnprotectRTP(pkt)
	if err != nil {
		c.log.Tracef("failed to unprotect RTP: %v", err)

		return
	}

	c.mu.RLock()
	handler := c.onRTPHandler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	packet := &rtp.Packet{}
	if err := packet.Unmarshal(plain); err != nil {
		c.log.Warnf("failed to unmarshal RTP: %v", err)

		return
	}
	handler(packet)
}

func (c *Connection) handleRTCP(pkt []byte) {
	if c.srtp == nil {
		c.log.Tracef("dropping RTCP before DTLS completion")

		return
	}

	plain, err := c.srtp.UnprotectRTCP(pkt)
	if err != nil {
		c.log.Tracef("failed to unprotect RTCP: %v", err)

		return
	}

	feedback, err := c.sink.Parse(plain)
	if err != nil {
		c.log.Warnf("failed to parse RTCP: %v", err)

		return
	}

	for _, r := range feedback.Reports {
		src, ok := c.sources[r.SSRC]
		if !ok {
			continue
		}
		var rtt time.Duration
		if r.HasRTT {
			rtt = r.RTT
		}
		src.UpdateQoS(rtt, r.LossPercent())
	}

	for _, ssrc := range feedback.KeyFrameRequests {
		if ssrc != c.video.SSRC() {
			continue
		}
		c.mu.RLock()
		handler := c.onKeyFrameRequestHandler
		c.mu.RUnlock()
		if handler != nil {
			go handler()
		}

		break
	}
}

// writeRTP protects and sends packets on the reactor. Statistics count the
// unprotected size of media packets only.
func (c *Connection) writeRTP(packets []*rtpsource.Packet) {
	if c.srtp == nil {
		return
	}

	for _, pkt := range packets {
		protected, err := c.srtp.ProtectRTP(pkt.Raw)
		if err != nil {
			c.log.Warnf("failed to protect RTP %d/%d: %v", pkt.SSRC, pkt.SequenceNumber, err)

			continue
		}
		if err := c.udp.send(protected); err != nil {
			c.log.Warnf("failed to send RTP: %v", err)

			continue
		}

		if pkt.IsRetransmission() {
			continue
		}
		if src, ok := c.reportsBy[pkt.SSRC]; ok {
			src.OnSendRTP(len(pkt.Raw), pkt.Timestamp)
		}
	}
}

func (c *Connection) sendRaw(b []byte) {
	if c.ConnectionState() == ConnectionStateDestroyed {
		return
	}
	if err := c.udp.send(b); err != nil {
		c.log.Debugf("failed to send DTLS record: %v", err)
	}
}

func (c *Connection) onSenderReportTimer() bool {
	if c.srtp == nil {
		return true
	}

	now := time.Now()
	ntpTime := ntp.FromTime(now)

	var compound []byte
	for _, src := range c.reports {
		src.SetNTPTime(ntpTime)
		if sr := src.BuildSenderReport(); sr != nil {
			compound = append(compound, sr...)
		}
	}
	if len(compound) == 0 {
		return true
	}
	c.sink.RecordSenderReport(ntpTime.Compact(), now)

	protected, err := c.srtp.ProtectRTCP(compound)
	if err != nil {
		c.log.Warnf("failed to protect sender report: %v", err)

		return true
	}
	if err := c.udp.send(protected); err != nil {
		c.log.Warnf("failed to send sender report: %v", err)
	}

	return true
}

func (c *Connection) onNACKTimer() bool {
	if c.srtp == nil {
		return true
	}

	for ssrc, src := range c.sources {
		if lost := c.sink.TakeLostSequences(ssrc); len(lost) > 0 {
			src.RetransmitRTPPackets(lost)
		}
	}

	return true
}

// Close tears the connection down: timers first, then DTLS and SRTP, then
// the socket.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if !c.params.loop.Call(func() { err = c.teardown() }) {
			err = c.teardown()
		}

		c.mu.RLock()
		onClose := c.onClose
		c.mu.RUnlock()
		if onClose != nil {
			onClose(c)
		}
	})

	return err
}

func (c *Connection) teardown() error {
	c.params.loop.RemoveTimer(c.srTimer)
	c.params.loop.RemoveTimer(c.nackTimer)

	var closeErrs []error
	if c.dtls != nil {
		if err := c.dtls.Close(); err != nil {
			c.log.Debugf("connection %s: DTLS close: %v", c.localUfrag, err)
		}
	}
	c.srtp = nil

	c.setState(ConnectionStateDestroyed)
	if c.udp != nil {
		if err := c.udp.Close(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	c.log.Infof("connection %s closed", c.localUfrag)

	return util.FlattenErrs(closeErrs)
}

// ssrcAllocator hands out distinct non-zero SSRCs.
type ssrcAllocator struct {
	rand randutil.MathRandomGenerator
	used map[uint32]struct{}
}

func newSSRCAllocator(rng randutil.MathRandomGenerator) *ssrcAllocator {
	return &ssrcAllocator{rand: rng, used: map[uint32]struct{}{}}
}

func (a *ssrcAllocator) next() uint32 {
	for {
		ssrc := a.rand.Uint32()
		if _, dup := a.used[ssrc]; ssrc != 0 && !dup {
			a.used[ssrc] = struct{}{}

			return ssrc
		}
	}
}
