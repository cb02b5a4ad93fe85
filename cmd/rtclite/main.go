// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// rtclite answers one WebRTC offer and streams an H.264 file plus Opus
// silence to the browser.
//
// The offer is read from stdin, as plain SDP or base64, and the answer is
// written to stdout.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pion/rtclite"
	"github.com/pion/rtclite/internal/log"
	"github.com/pion/rtclite/pkg/media/h264reader"
	"go.uber.org/zap"
)

const audioFrameDuration = 20 * time.Millisecond

// opusSilence is a single 20 ms CELT frame with no energy.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	settingEngine := rtclite.SettingEngine{LoggerFactory: log.NewZapFactory(logger)}
	if err = settingEngine.SetEphemeralUDPPortRange(cfg.PortMin, cfg.PortMax); err != nil {
		return err
	}

	srv, err := rtclite.NewServer(
		rtclite.Configuration{LocalAddress: cfg.Address},
		rtclite.WithSettingEngine(settingEngine),
	)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			logger.Warn("close server", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	offer, err := readOffer(stdin)
	if err != nil {
		return err
	}

	answer, err := srv.OnRequest(offer)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, base64.StdEncoding.EncodeToString([]byte(answer)))

	connections := srv.Connections()
	if len(connections) != 1 {
		return errors.New("answer produced no connection")
	}
	if err = awaitEstablished(ctx, connections[0]); err != nil {
		return err
	}
	logger.Info("connection established", zap.String("ufrag", connections[0].LocalUfrag()))

	done := make(chan error, 1)
	if cfg.Video != "" {
		go func() { done <- streamVideo(ctx, srv, cfg.Video, cfg.FPS) }()
	}
	go streamAudio(ctx, srv)

	select {
	case <-ctx.Done():
		logger.Info("interrupted")

		return nil
	case err = <-done:
		return err
	}
}

// readOffer accepts either raw SDP or its base64 encoding, terminated by EOF
// or an empty line.
func readOffer(in io.Reader) (string, error) {
	var builder strings.Builder
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if builder.Len() > 0 {
				break
			}

			continue
		}
		builder.WriteString(line)
		builder.WriteString("\r\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	text := builder.String()
	if strings.HasPrefix(text, "v=0") {
		return text, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(text, "\r\n", ""))
	if err != nil {
		return "", fmt.Errorf("offer is neither SDP nor base64: %w", err)
	}

	return string(decoded), nil
}

func awaitEstablished(ctx context.Context, c *rtclite.Connection) error {
	states := make(chan rtclite.ConnectionState, 8)
	c.OnConnectionStateChange(func(state rtclite.ConnectionState) {
		select {
		case states <- state:
		default:
		}
	})

	for {
		switch c.ConnectionState() {
		case rtclite.ConnectionStateEstablished:
			return nil
		case rtclite.ConnectionStateDestroyed:
			return rtclite.ErrConnectionClosed
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-states:
		}
	}
}

// streamVideo loops the file until ctx is cancelled, pacing one access unit
// per frame interval.
func streamVideo(ctx context.Context, srv *rtclite.Server, path string, fps int) error {
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		file, err := os.Open(path) //nolint:gosec
		if err != nil {
			return err
		}

		reader, err := h264reader.NewReader(file)
		if err != nil {
			_ = file.Close()

			return err
		}

		for {
			au, err := reader.NextAccessUnit()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = file.Close()

				return err
			}

			select {
			case <-ctx.Done():
				return file.Close()
			case <-ticker.C:
			}
			srv.SendVideoFrame(au)
		}

		if err = file.Close(); err != nil {
			return err
		}
	}
}

func streamAudio(ctx context.Context, srv *rtclite.Server) {
	ticker := time.NewTicker(audioFrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.SendAudioFrame(opusSilence)
		}
	}
}
