package ffmpeg

import (
	"strings"
	"testing"
)

func TestBuildLoopCommandDefaults(t *testing.T) {
	cmd := BuildLoopCommand(&Params{
		LoopMedia: "/media/standby.mp4",
		OutputDir: "/tmp/hls/cam1/standby",
	})

	if !strings.HasPrefix(cmd, "ffmpeg -y -loglevel level+warning -nostats") {
		t.Errorf("unexpected prefix: %s", cmd)
	}

	for _, want := range []string{
		"-stream_loop -1 -re",
		"-i /media/standby.mp4",
		"-c:v libx264 -preset ultrafast -tune zerolatency",
		"-b:v 800k",
		"-maxrate 1000k",
		"-bufsize 1000k",
		"-g 30 -sc_threshold 0",
		"-c:a aac -b:a 64k",
		"-f hls",
		"-hls_time 1",
		"-hls_list_size 3",
		"-hls_flags delete_segments+append_list+independent_segments+split_by_time",
		"-hls_segment_filename /tmp/hls/cam1/standby/seg%05d.ts",
		"/tmp/hls/cam1/standby/index.m3u8",
	} {
		if !strings.Contains(cmd, want) {
			t.Errorf("command missing %q:\n%s", want, cmd)
		}
	}
}

func TestBuildLoopCommandOverrides(t *testing.T) {
	cmd := BuildLoopCommand(&Params{
		LoopMedia:       "/media/loop.mp4",
		Preset:          "veryfast",
		Bitrate:         "2000k",
		SegmentDuration: 4,
		OutputDir:       "/tmp/hls/cam2/standby",
	})

	if !strings.Contains(cmd, "-preset veryfast") {
		t.Error("preset override ignored")
	}
	if !strings.Contains(cmd, "-b:v 2000k") {
		t.Error("bitrate override ignored")
	}
	if !strings.Contains(cmd, "-hls_time 4") {
		t.Error("segment duration override ignored")
	}
}

func TestBuildLoopCommandQuotesSpaces(t *testing.T) {
	cmd := BuildLoopCommand(&Params{
		LoopMedia: "/media/my standby.mp4",
		OutputDir: "/tmp/hls/cam1/standby",
	})

	if !strings.Contains(cmd, `-i "/media/my standby.mp4"`) {
		t.Errorf("input path not quoted:\n%s", cmd)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel string
		wantMsg   string
	}{
		{"[warning] deprecated pixel format", "warning", "deprecated pixel format"},
		{"[error] Invalid data found", "error", "Invalid data found"},
		{"[hls @ 0x55e] [warning] expired segment", "warning", "[hls @ 0x55e] expired segment"},
		{"plain output line", "info", "plain output line"},
		{"[hls @ 0x55e] opening file", "info", "[hls @ 0x55e] opening file"},
	}

	for _, tt := range tests {
		level, msg := ParseLogLevel(tt.line)
		if level != tt.wantLevel || msg != tt.wantMsg {
			t.Errorf("ParseLogLevel(%q) = (%q, %q), want (%q, %q)",
				tt.line, level, msg, tt.wantLevel, tt.wantMsg)
		}
	}
}
