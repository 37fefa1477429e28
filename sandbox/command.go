package sandbox

import (
	"fmt"
	"strings"
)

// Paths inside the container
const (
	ScratchDir    = "/tmp"
	InputFileName = "input.txt"
)

// QuoteSingle wraps s in single quotes for sh, closing and reopening the
// quote around every embedded single quote.
func QuoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// BuildCommand returns the container command that writes the source file
// into the scratch directory and runs it. Input, when present, is written
// next to it and fed on stdin.
//
// The code is embedded literally into an echo argument. Quoting keeps it a
// single word, but the container shell still interprets echo escapes, and
// the whole scheme depends on the quoting being right: treat it as a
// command-injection surface bounded only by the container sandbox.
func BuildCommand(profile Profile, code, input string) []string {
	file := profile.SourceFile()
	run := profile.RunCommand(file)

	var b strings.Builder
	fmt.Fprintf(&b, "cd %s && echo %s > %s", ScratchDir, QuoteSingle(code), file)
	if input != "" {
		fmt.Fprintf(&b, " && echo %s > %s && (%s) < %s", QuoteSingle(input), InputFileName, run, InputFileName)
	} else {
		fmt.Fprintf(&b, " && %s", run)
	}

	return []string{"sh", "-c", b.String()}
}
