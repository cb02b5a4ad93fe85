// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtclite

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pion/ice/v4"
	"github.com/pion/sdp/v3"
)

const (
	mediaKindAudio = "audio"
	mediaKindVideo = "video"

	midAudio = "0"
	midVideo = "1"

	attrKeyICEUfrag     = "ice-ufrag"
	attrKeyICEPwd       = "ice-pwd"
	attrKeyFingerprint  = "fingerprint"
	attrKeyRTPMap       = "rtpmap"
	attrKeyCandidate    = "candidate"
	attrKeyMsidSemantic = "msid-semantic"
	attrKeySendOnly     = "sendonly"
	attrKeyRTCPFb       = "rtcp-fb"
	attrKeyExtMap       = "extmap"

	opusFmtp = "minptime=10;useinbandfec=1"
	h264Fmtp = "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"
	fecFmtp  = "repair-window=10000000"

	transportCCURI  = "http://www.ietf.org/id/draft-holmer-rmcat-transport-wide-cc-extensions-01"
	candidatePrefix = "candidate:"
	hostFoundation  = "1"
	sessionIDMask   = 1<<63 - 1
	videoClockRate  = 90000
	audioClockRate  = 48000
	audioChannels   = 2
	rtxCodecName    = "rtx"
	fecCodecName    = "flexfec-03"
	h264CodecName   = "H264"
	opusCodecName   = "opus"
	ssrcGroupFID    = "FID"
	ssrcGroupFEC    = "FEC-FR"
	rtcpFbNack      = "nack"
	rtcpFbPLI       = "nack pli"
	rtcpFbTransport = "transport-cc"
	msidSemanticWMS = "WMS"
)

// localDescription holds everything the local session description
// advertises.
type localDescription struct {
	sessionID  uint64
	streamName string

	ufrag, pwd  string
	fingerprint string
	role        DTLSRole

	address string
	port    int

	audioSSRC, videoSSRC, rtxSSRC, fecSSRC uint32
	audioPT, videoPT, rtxPT, fecPT         uint8

	transportCCID uint8
}

// Marshal renders an ICE-lite, sendonly, bundled audio plus video offer or
// answer. RTX and FEC lines are only emitted for non-zero SSRCs.
func (l *localDescription) Marshal() (string, error) {
	desc, err := sdp.NewJSEPSessionDescription(false)
	if err != nil {
		return "", err
	}
	desc.Origin.SessionID = l.sessionID & sessionIDMask
	desc.Origin.SessionVersion = 2

	desc.
		WithValueAttribute(attrKeyMsidSemantic, msidSemanticWMS+" "+l.streamName).
		WithPropertyAttribute(sdp.AttrKeyICELite).
		WithValueAttribute(sdp.AttrKeyGroup, "BUNDLE "+midAudio+" "+midVideo)

	candidate, err := l.candidate()
	if err != nil {
		return "", err
	}

	audio := l.mediaDescription(mediaKindAudio, midAudio, candidate).
		WithCodec(l.audioPT, opusCodecName, audioClockRate, audioChannels, opusFmtp)
	l.withTransportCC(audio, l.audioPT)
	audio.WithMediaSource(l.audioSSRC, l.streamName, l.streamName, uuid.NewString())

	video := l.mediaDescription(mediaKindVideo, midVideo, candidate).
		WithCodec(l.videoPT, h264CodecName, videoClockRate, 0, h264Fmtp).
		WithValueAttribute(attrKeyRTCPFb, fmt.Sprintf("%d %s", l.videoPT, rtcpFbNack)).
		WithValueAttribute(attrKeyRTCPFb, fmt.Sprintf("%d %s", l.videoPT, rtcpFbPLI))
	l.withTransportCC(video, l.videoPT)

	if l.rtxSSRC != 0 {
		video.WithCodec(l.rtxPT, rtxCodecName, videoClockRate, 0, fmt.Sprintf("apt=%d", l.videoPT))
	}
	if l.fecSSRC != 0 {
		video.WithCodec(l.fecPT, fecCodecName, videoClockRate, 0, fecFmtp)
	}
	if l.rtxSSRC != 0 {
		video.WithValueAttribute(sdp.AttrKeySSRCGroup, fmt.Sprintf("%s %d %d", ssrcGroupFID, l.videoSSRC, l.rtxSSRC))
	}
	if l.fecSSRC != 0 {
		video.WithValueAttribute(sdp.AttrKeySSRCGroup, fmt.Sprintf("%s %d %d", ssrcGroupFEC, l.videoSSRC, l.fecSSRC))
	}

	trackID := uuid.NewString()
	video.WithMediaSource(l.videoSSRC, l.streamName, l.streamName, trackID)
	if l.rtxSSRC != 0 {
		video.WithMediaSource(l.rtxSSRC, l.streamName, l.streamName, trackID)
	}
	if l.fecSSRC != 0 {
		video.WithMediaSource(l.fecSSRC, l.streamName, l.streamName, trackID)
	}

	raw, err := desc.WithMedia(audio).WithMedia(video).Marshal()
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

func (l *localDescription) mediaDescription(kind, mid, candidate string) *sdp.MediaDescription {
	return sdp.NewJSEPMediaDescription(kind, nil).
		WithICECredentials(l.ufrag, l.pwd).
		WithFingerprint(fingerprintAlgorithm, l.fingerprint).
		WithValueAttribute(sdp.AttrKeyConnectionSetup, l.role.setupAttribute()).
		WithValueAttribute(sdp.AttrKeyMID, mid).
		WithPropertyAttribute(attrKeySendOnly).
		WithPropertyAttribute(sdp.AttrKeyRTCPMux).
		WithPropertyAttribute(sdp.AttrKeyRTCPRsize).
		WithCandidate(candidate)
}

func (l *localDescription) withTransportCC(media *sdp.MediaDescription, payloadType uint8) {
	if l.transportCCID == 0 {
		return
	}
	media.
		WithValueAttribute(attrKeyRTCPFb, fmt.Sprintf("%d %s", payloadType, rtcpFbTransport)).
		WithValueAttribute(attrKeyExtMap, fmt.Sprintf("%d %s", l.transportCCID, transportCCURI))
}

func (l *localDescription) candidate() (string, error) {
	c, err := ice.NewCandidateHost(&ice.CandidateHostConfig{
		Network:    "udp",
		Address:    l.address,
		Port:       l.port,
		Component:  ice.ComponentRTP,
		Foundation: hostFoundation,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimPrefix(c.Marshal(), candidatePrefix), nil
}

// remoteDescription is what a parsed remote offer or answer contributes to
// a Connection.
type remoteDescription struct {
	ufrag, pwd           string
	fingerprintAlgorithm string
	fingerprint          string
	setup                string
	rtpMaps              map[uint8]string
	candidates           []ice.Candidate
}

// peerAddress returns the first UDP candidate with a literal IP address.
func (r *remoteDescription) peerAddress() *net.UDPAddr {
	for _, c := range r.candidates {
		if c.NetworkType().IsTCP() {
			continue
		}
		if ip := net.ParseIP(c.Address()); ip != nil {
			return &net.UDPAddr{IP: ip, Port: c.Port()}
		}
	}

	return nil
}

// parseSessionDescription scans the session and media level attributes of
// raw. The first value of each attribute wins.
func parseSessionDescription(raw string) (*remoteDescription, error) {
	desc := &sdp.SessionDescription{}
	if err := desc.Unmarshal([]byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionDescriptionInvalid, err)
	}

	remote := &remoteDescription{rtpMaps: map[uint8]string{}}
	scan := func(attrs []sdp.Attribute) {
		for _, attr := range attrs {
			remote.apply(attr)
		}
	}
	scan(desc.Attributes)
	for _, media := range desc.MediaDescriptions {
		scan(media.Attributes)
	}

	if remote.ufrag == "" {
		return nil, ErrSessionDescriptionNoUfrag
	}

	return remote, nil
}

func (r *remoteDescription) apply(attr sdp.Attribute) {
	switch attr.Key {
	case attrKeyICEUfrag:
		if r.ufrag == "" {
			r.ufrag = attr.Value
		}
	case attrKeyICEPwd:
		if r.pwd == "" {
			r.pwd = attr.Value
		}
	case attrKeyFingerprint:
		if r.fingerprint != "" {
			return
		}
		algorithm, value, ok := strings.Cut(attr.Value, " ")
		if !ok || !strings.EqualFold(algorithm, fingerprintAlgorithm) {
			return
		}
		r.fingerprintAlgorithm = strings.ToLower(algorithm)
		r.fingerprint = strings.TrimSpace(value)
	case sdp.AttrKeyConnectionSetup:
		if r.setup == "" {
			r.setup = attr.Value
		}
	case attrKeyRTPMap:
		pt, codec, ok := strings.Cut(attr.Value, " ")
		if !ok {
			return
		}
		payloadType, err := strconv.ParseUint(pt, 10, 7)
		if err != nil {
			return
		}
		if _, seen := r.rtpMaps[uint8(payloadType)]; !seen {
			r.rtpMaps[uint8(payloadType)] = codec
		}
	case attrKeyCandidate:
		c, err := ice.UnmarshalCandidate(strings.TrimPrefix(attr.Value, candidatePrefix))
		if err != nil {
			return
		}
		r.candidates = append(r.candidates, c)
	}
}
