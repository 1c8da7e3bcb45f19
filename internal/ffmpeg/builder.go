package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Params holds everything needed to synthesize the standby-loop encoder
// command for one camera. The loop runs forever at input pacing so the HLS
// playlist always has fresh segments to switch to.
type Params struct {
	// Input
	LoopMedia string // placeholder video, looped indefinitely

	// Encoder
	Preset     string // defaults to ultrafast
	Bitrate    string // defaults to 800k
	MaxRate    string // defaults to 1000k
	BufferSize string // defaults to 1000k
	GOP        int    // keyframe interval in frames, defaults to 30

	// Audio
	AudioBitrate string // defaults to 64k

	// HLS output
	SegmentDuration int    // seconds per segment
	ListSize        int    // playlist length, defaults to 3
	OutputDir       string // e.g. /tmp/hls/cam1/standby
}

// BuildLoopCommand builds the ffmpeg command string for a standby loop.
// The command never terminates on its own: the input loops forever and -re
// paces reads at native frame rate.
func BuildLoopCommand(p *Params) string {
	var cmd strings.Builder

	cmd.WriteString("ffmpeg -y -loglevel level+warning -nostats")

	cmd.WriteString(" -stream_loop -1 -re")
	cmd.WriteString(" -i " + quoteArg(p.LoopMedia))

	preset := p.Preset
	if preset == "" {
		preset = "ultrafast"
	}
	cmd.WriteString(" -c:v libx264 -preset " + preset + " -tune zerolatency")

	cmd.WriteString(" -b:v " + orDefault(p.Bitrate, "800k"))
	cmd.WriteString(" -maxrate " + orDefault(p.MaxRate, "1000k"))
	cmd.WriteString(" -bufsize " + orDefault(p.BufferSize, "1000k"))

	gop := p.GOP
	if gop <= 0 {
		gop = 30
	}
	cmd.WriteString(fmt.Sprintf(" -g %d -sc_threshold 0", gop))

	cmd.WriteString(" -c:a aac -b:a " + orDefault(p.AudioBitrate, "64k"))

	segDur := p.SegmentDuration
	if segDur <= 0 {
		segDur = 1
	}
	listSize := p.ListSize
	if listSize <= 0 {
		listSize = 3
	}
	cmd.WriteString(" -f hls")
	cmd.WriteString(fmt.Sprintf(" -hls_time %d", segDur))
	cmd.WriteString(fmt.Sprintf(" -hls_list_size %d", listSize))
	cmd.WriteString(" -hls_flags delete_segments+append_list+independent_segments+split_by_time")
	cmd.WriteString(" -hls_segment_filename " + quoteArg(filepath.Join(p.OutputDir, "seg%05d.ts")))
	cmd.WriteString(" " + quoteArg(filepath.Join(p.OutputDir, "index.m3u8")))

	return cmd.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// quoteArg quotes arguments containing spaces so the command parser keeps
// them as one token.
func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t") {
		return "\"" + arg + "\""
	}
	return arg
}
