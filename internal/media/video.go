// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"
	"time"

	"backdrop/internal/models"
)

// ffprobeOutput is the subset of `ffprobe -print_format json` we read.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type ffprobeStream struct {
	CodecType         string            `json:"codec_type"`
	Width             int               `json:"width"`
	Height            int               `json:"height"`
	SampleAspectRatio string            `json:"sample_aspect_ratio"`
	Duration          string            `json:"duration"`
	Tags              map[string]string `json:"tags"`
	SideDataList      []struct {
		Rotation *float64 `json:"rotation"`
	} `json:"side_data_list"`
}

func (p *StorageProber) probeVideo(ctx context.Context, key string) (*Info, error) {
	tmp, err := os.CreateTemp(p.tempDir, "probe-*"+path.Ext(key))
	if err != nil {
		return nil, fmt.Errorf("create probe temp file: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	defer func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove probe temp file", "path", name, "error", err)
		}
	}()

	if err := p.objects.DownloadToFile(ctx, key, name); err != nil {
		return nil, fmt.Errorf("download video %s: %w", key, err)
	}
	return p.RunFFProbe(ctx, name)
}

// RunFFProbe inspects the first video stream of a local file. The run has
// its own timeout; when it fires the process is killed and the result is
// ErrProbeUnavailable rather than the caller's context error.
func (p *StorageProber) RunFFProbe(ctx context.Context, file string) (*Info, error) {
	bin, err := exec.LookPath(p.ffprobePath)
	if err != nil {
		return nil, &ProbeError{Op: "ffprobe", Kind: ErrProbeUnavailable, Err: err}
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-print_format", "json",
		file,
	)
	// Pipes held open by grandchildren must not keep Wait blocked after the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe: %w", ctx.Err())
		}
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, &ProbeError{Op: "ffprobe", Kind: ErrProbeUnavailable, Timeout: true, Err: err}
		}
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseFFProbe(stdout.Bytes())
}

func parseFFProbe(out []byte) (*Info, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var stream *ffprobeStream
	for i := range parsed.Streams {
		if parsed.Streams[i].CodecType == "" || parsed.Streams[i].CodecType == "video" {
			stream = &parsed.Streams[i]
			break
		}
	}
	if stream == nil || stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("ffprobe: no video stream with dimensions")
	}

	w, h := stream.Width, stream.Height
	if num, den, ok := parseRatio(stream.SampleAspectRatio); ok && num != den {
		w = int(math.Round(float64(w) * float64(num) / float64(den)))
	}

	rotation := streamRotation(stream)
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}

	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	if duration == 0 {
		duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	}

	return &Info{
		Kind:     models.BackgroundVideo,
		Width:    w,
		Height:   h,
		Duration: duration,
		Rotation: rotation,
	}, nil
}

// streamRotation returns the rotation normalised to [0, 360). Older
// containers carry it as a "rotate" tag; newer ffprobe builds report a
// display matrix in side data.
func streamRotation(s *ffprobeStream) int {
	raw := 0.0
	if v, ok := s.Tags["rotate"]; ok {
		raw, _ = strconv.ParseFloat(v, 64)
	}
	for _, sd := range s.SideDataList {
		if sd.Rotation != nil {
			raw = *sd.Rotation
			break
		}
	}
	r := int(math.Round(raw)) % 360
	if r < 0 {
		r += 360
	}
	return r
}

// parseRatio parses "n:d". Unknown ratios such as "0:1" or "N/A" are
// reported as not ok.
func parseRatio(s string) (int, int, bool) {
	a, b, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	num, err1 := strconv.Atoi(a)
	den, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
		return 0, 0, false
	}
	return num, den, true
}
