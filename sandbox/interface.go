// Package sandbox provides secure code execution capabilities.
//
// The sandbox package implements the execution engine for running untrusted
// code in isolated containers. It owns the language profile table, the shell
// command that materializes the source inside the container, the container
// lifecycle and the decoding of the runtime's multiplexed log stream.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/isdmx/execbox/config"
)

// RunRequest represents the parameters for one sandboxed execution
type RunRequest struct {
	ExecutionID string
	Language    string
	Code        string
	Input       string
	Timeout     time.Duration
}

// Output represents the decoded output of an execution
type Output struct {
	Stdout string
	Stderr string
}

// Runner defines the interface for sandbox execution
type Runner interface {
	Run(ctx context.Context, req RunRequest) (Output, error)
}

// ErrUnsupportedLanguage is returned for identifiers missing from the profile table.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageName constants
const (
	LanguageJavaScript = "javascript"
	LanguagePython     = "python"
	LanguageJava       = "java"
	LanguageCPP        = "cpp"
	LanguageC          = "c"
)

// FilePlaceholder is replaced with the source file name in profile commands.
const FilePlaceholder = "{file}"

// Profile describes how to run one language
type Profile struct {
	Name      string `json:"name"`
	Image     string `json:"image"`
	Extension string `json:"extension"`
	FileName  string `json:"-"`
	Command   string `json:"command"`
}

// SourceFile returns the file the source code is written to
func (p Profile) SourceFile() string {
	return p.FileName + p.Extension
}

// RunCommand renders the compile-and-run command for file
func (p Profile) RunCommand(file string) string {
	return strings.ReplaceAll(p.Command, FilePlaceholder, file)
}

func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		LanguageJavaScript: {
			Name:      LanguageJavaScript,
			Image:     "node:18-alpine",
			Extension: ".js",
			FileName:  "main",
			Command:   "node {file}",
		},
		LanguagePython: {
			Name:      LanguagePython,
			Image:     "python:3.11-alpine",
			Extension: ".py",
			FileName:  "main",
			Command:   "python {file}",
		},
		LanguageJava: {
			Name:      LanguageJava,
			Image:     "eclipse-temurin:17-jdk-alpine",
			Extension: ".java",
			FileName:  "Main",
			Command:   "javac {file} && java Main",
		},
		LanguageCPP: {
			Name:      LanguageCPP,
			Image:     "gcc:13",
			Extension: ".cpp",
			FileName:  "main",
			Command:   "g++ -o out {file} && ./out",
		},
		LanguageC: {
			Name:      LanguageC,
			Image:     "gcc:13",
			Extension: ".c",
			FileName:  "main",
			Command:   "gcc -o out {file} && ./out",
		},
	}
}

// Profiles is the immutable language profile table
type Profiles struct {
	byName map[string]Profile
}

// DefaultProfiles returns the built-in profile table
func DefaultProfiles() *Profiles {
	return &Profiles{byName: defaultProfiles()}
}

// NewProfiles returns the built-in table with configured overrides applied.
// Only the built-in languages may be overridden.
func NewProfiles(cfg *config.Config) (*Profiles, error) {
	profiles := defaultProfiles()

	for name, override := range cfg.Languages {
		key := strings.ToLower(name)
		profile, ok := profiles[key]
		if !ok {
			return nil, fmt.Errorf("%w in languages config: %s", ErrUnsupportedLanguage, name)
		}

		if override.Image != "" {
			profile.Image = override.Image
		}
		if override.Extension != "" {
			profile.Extension = override.Extension
		}
		if override.FileName != "" {
			profile.FileName = override.FileName
		}
		if override.Command != "" {
			if !strings.Contains(override.Command, FilePlaceholder) {
				return nil, fmt.Errorf("languages.%s.command must reference %s", key, FilePlaceholder)
			}
			profile.Command = override.Command
		}

		profiles[key] = profile
	}

	return &Profiles{byName: profiles}, nil
}

// Lookup returns the profile for language
func (p *Profiles) Lookup(language string) (Profile, bool) {
	profile, ok := p.byName[language]
	return profile, ok
}

// Names returns the supported language identifiers in sorted order
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every profile sorted by name
func (p *Profiles) All() []Profile {
	names := p.Names()
	all := make([]Profile, 0, len(names))
	for _, name := range names {
		all = append(all, p.byName[name])
	}
	return all
}

// Images returns the distinct images referenced by the table
func (p *Profiles) Images() []string {
	seen := make(map[string]bool)
	var images []string
	for _, profile := range p.All() {
		if !seen[profile.Image] {
			seen[profile.Image] = true
			images = append(images, profile.Image)
		}
	}
	return images
}
