// Package speech adapts local text-to-speech engines to the Speaker
// capability used by the announcer.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Supported command-line engines.
const (
	EngineEspeakNG = "espeak-ng"
	EngineEspeak   = "espeak"
	EngineSay      = "say"
	EngineSpdSay   = "spd-say"
)

// ErrUnsupportedEngine is returned for engine names this package cannot drive.
var ErrUnsupportedEngine = errors.New("unsupported speech engine")

// Speaker speaks text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Voice is one voice offered by an engine. ID is what the engine accepts
// when selecting the voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// Options configure a CommandSpeaker.
type Options struct {
	Engine string
	Voice  string  // engine voice ID; empty uses the engine default
	Rate   int     // words per minute; 0 uses the engine default
	Volume float64 // 0.0 to 1.0; 0 uses the engine default
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandSpeaker speaks by running a local engine process and waiting for
// it to exit.
type CommandSpeaker struct {
	opts Options
	run  runFunc
}

// SupportedEngines lists the engines CommandSpeaker can drive.
func SupportedEngines() []string {
	return []string{EngineEspeakNG, EngineEspeak, EngineSay, EngineSpdSay}
}

// IsSupportedEngine reports whether name is one of SupportedEngines.
func IsSupportedEngine(name string) bool {
	for _, e := range SupportedEngines() {
		if e == name {
			return true
		}
	}
	return false
}

// NewCommandSpeaker creates a speaker for opts.Engine.
func NewCommandSpeaker(opts Options) (*CommandSpeaker, error) {
	if !IsSupportedEngine(opts.Engine) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, opts.Engine)
	}
	return &CommandSpeaker{opts: opts, run: execRun}, nil
}

// Options returns the speaker's configuration.
func (s *CommandSpeaker) Options() Options {
	return s.opts
}

// WithVoice returns a copy of the speaker using voice.
func (s *CommandSpeaker) WithVoice(voice string) *CommandSpeaker {
	c := *s
	c.opts.Voice = voice
	return &c
}

// Speak runs the engine and blocks until it has finished speaking.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	out, err := s.run(ctx, s.opts.Engine, s.args(text)...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", s.opts.Engine, err, msg)
		}
		return fmt.Errorf("%s failed: %w", s.opts.Engine, err)
	}
	return nil
}

func (s *CommandSpeaker) args(text string) []string {
	var args []string
	switch s.opts.Engine {
	case EngineEspeakNG, EngineEspeak:
		if s.opts.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(s.opts.Rate))
		}
		if s.opts.Volume > 0 {
			// amplitude 0-200, 100 is the engine default
			args = append(args, "-a", strconv.Itoa(int(s.opts.Volume*100+0.5)))
		}
		if s.opts.Voice != "" {
			args = append(args, "-v", s.opts.Voice)
		}
	case EngineSay:
		if s.opts.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(s.opts.Rate))
		}
		if s.opts.Voice != "" {
			args = append(args, "-v", s.opts.Voice)
		}
		if s.opts.Volume > 0 {
			text = fmt.Sprintf("[[volm %.2f]] %s", s.opts.Volume, text)
		}
	case EngineSpdSay:
		args = append(args, "-w")
		if s.opts.Rate > 0 {
			// spd-say takes -100..100 around its ~175 wpm default
			args = append(args, "-r", strconv.Itoa(clamp((s.opts.Rate-175)/2, -100, 100)))
		}
		if s.opts.Volume > 0 {
			args = append(args, "-i", strconv.Itoa(clamp(int(s.opts.Volume*200)-100, -100, 100)))
		}
		if s.opts.Voice != "" {
			args = append(args, "-y", s.opts.Voice)
		}
	}
	return append(args, text)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Voices lists the voices the engine offers.
func (s *CommandSpeaker) Voices(ctx context.Context) ([]Voice, error) {
	var args []string
	switch s.opts.Engine {
	case EngineEspeakNG, EngineEspeak:
		args = []string{"--voices"}
	case EngineSay:
		args = []string{"-v", "?"}
	case EngineSpdSay:
		args = []string{"-L"}
	}

	out, err := s.run(ctx, s.opts.Engine, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s voices: %w", s.opts.Engine, err)
	}
	return parseVoices(s.opts.Engine, string(out)), nil
}

func parseVoices(engine, out string) []Voice {
	var voices []Voice
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch engine {
		case EngineEspeakNG, EngineEspeak:
			// Pty Language Age/Gender VoiceName File Other
			fields := strings.Fields(line)
			if len(fields) < 4 || fields[0] == "Pty" {
				continue
			}
			voices = append(voices, Voice{ID: fields[1], Name: fields[3], Language: fields[1]})
		case EngineSay:
			// Name (may contain spaces)   locale   # sample sentence
			head, _, _ := strings.Cut(line, "#")
			fields := strings.Fields(head)
			if len(fields) < 2 {
				continue
			}
			name := strings.Join(fields[:len(fields)-1], " ")
			voices = append(voices, Voice{ID: name, Name: name, Language: fields[len(fields)-1]})
		case EngineSpdSay:
			// NAME LANGUAGE VARIANT
			fields := strings.Fields(line)
			if len(fields) < 2 || fields[0] == "NAME" {
				continue
			}
			voices = append(voices, Voice{ID: fields[0], Name: fields[0], Language: fields[1]})
		}
	}
	return voices
}

// ResolveVoice picks the first available voice matching the earliest entry
// of preferred. A preference matches when it is a case-insensitive substring
// of the voice ID or name.
func ResolveVoice(available []Voice, preferred []string) (Voice, bool) {
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		for _, v := range available {
			if strings.Contains(strings.ToLower(v.ID), p) || strings.Contains(strings.ToLower(v.Name), p) {
				return v, true
			}
		}
	}
	return Voice{}, false
}
