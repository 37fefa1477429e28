package sandbox

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Log frame layout: selector byte, three reserved bytes, big-endian
// uint32 payload length, payload.
const (
	frameHeaderLen = 8
	streamStderr   = 2
)

// NoOutputMessage is reported when a successful program leaves no log frames.
const NoOutputMessage = "Program executed successfully (no output)"

// Demultiplex splits the container's combined log stream into stdout and
// stderr. Buffers without any complete frame are returned as plain stdout;
// an empty buffer is described from the exit code instead.
func Demultiplex(buf []byte, exitCode int) Output {
	if len(buf) == 0 {
		if exitCode == 0 {
			return Output{Stdout: NoOutputMessage}
		}
		return Output{Stderr: fmt.Sprintf("Program exited with code %d", exitCode)}
	}

	var stdout, stderr strings.Builder
	frames := 0
	for offset := 0; offset+frameHeaderLen <= len(buf); {
		size := int(binary.BigEndian.Uint32(buf[offset+4 : offset+frameHeaderLen]))
		start := offset + frameHeaderLen
		if size > len(buf)-start {
			break
		}

		payload := buf[start : start+size]
		if buf[offset] == streamStderr {
			stderr.Write(payload)
		} else {
			stdout.Write(payload)
		}

		frames++
		offset = start + size
	}

	if frames == 0 {
		return Output{Stdout: decode(string(buf))}
	}

	return Output{
		Stdout: decode(stdout.String()),
		Stderr: decode(stderr.String()),
	}
}

func decode(s string) string {
	return strings.TrimSpace(strings.ToValidUTF8(s, "\uFFFD"))
}
