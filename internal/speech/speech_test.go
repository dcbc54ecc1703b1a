package speech

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordedCall struct {
	name string
	args []string
}

func fakeRunner(out string, err error, calls *[]recordedCall) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{name: name, args: args})
		return []byte(out), err
	}
}

func TestNewCommandSpeaker_RejectsUnknownEngine(t *testing.T) {
	_, err := NewCommandSpeaker(Options{Engine: "festival"})
	if !errors.Is(err, ErrUnsupportedEngine) {
		t.Errorf("err = %v, want ErrUnsupportedEngine", err)
	}
}

func TestCommandSpeaker_Args(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{
			name:     "espeak-ng defaults",
			opts:     Options{Engine: EngineEspeakNG},
			expected: []string{"Hello, alice"},
		},
		{
			name:     "espeak-ng full",
			opts:     Options{Engine: EngineEspeakNG, Voice: "en-us", Rate: 150, Volume: 0.9},
			expected: []string{"-s", "150", "-a", "90", "-v", "en-us", "Hello, alice"},
		},
		{
			name:     "espeak",
			opts:     Options{Engine: EngineEspeak, Voice: "english-us", Rate: 120},
			expected: []string{"-s", "120", "-v", "english-us", "Hello, alice"},
		},
		{
			name:     "say",
			opts:     Options{Engine: EngineSay, Voice: "Samantha", Rate: 150, Volume: 0.9},
			expected: []string{"-r", "150", "-v", "Samantha", "[[volm 0.90]] Hello, alice"},
		},
		{
			name:     "spd-say",
			opts:     Options{Engine: EngineSpdSay, Voice: "english", Rate: 150, Volume: 0.9},
			expected: []string{"-w", "-r", "-12", "-i", "80", "-y", "english", "Hello, alice"},
		},
		{
			name:     "spd-say clamps",
			opts:     Options{Engine: EngineSpdSay, Rate: 600},
			expected: []string{"-w", "-r", "100", "Hello, alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCommandSpeaker(tt.opts)
			if err != nil {
				t.Fatalf("NewCommandSpeaker() error: %v", err)
			}
			got := s.args("Hello, alice")
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("args() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCommandSpeaker_Speak(t *testing.T) {
	var calls []recordedCall
	s, _ := NewCommandSpeaker(Options{Engine: EngineEspeakNG, Rate: 150})
	s.run = fakeRunner("", nil, &calls)

	if err := s.Speak(context.Background(), "Hello, bob"); err != nil {
		t.Fatalf("Speak() error: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "espeak-ng" {
		t.Fatalf("calls = %+v", calls)
	}
	if last := calls[0].args[len(calls[0].args)-1]; last != "Hello, bob" {
		t.Errorf("last arg = %q, want text", last)
	}
}

func TestCommandSpeaker_SpeakError(t *testing.T) {
	var calls []recordedCall
	runErr := errors.New("exit status 1")
	s, _ := NewCommandSpeaker(Options{Engine: EngineEspeakNG})
	s.run = fakeRunner("no audio device\n", runErr, &calls)

	err := s.Speak(context.Background(), "Hello")
	if !errors.Is(err, runErr) {
		t.Fatalf("err = %v, want wrapped run error", err)
	}
	if want := "espeak-ng failed: exit status 1: no audio device"; err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestCommandSpeaker_WithVoice(t *testing.T) {
	s, _ := NewCommandSpeaker(Options{Engine: EngineSay})
	v := s.WithVoice("Samantha")
	if v.Options().Voice != "Samantha" {
		t.Errorf("Voice = %q, want Samantha", v.Options().Voice)
	}
	if s.Options().Voice != "" {
		t.Error("WithVoice modified the original speaker")
	}
}

func TestCommandSpeaker_Voices(t *testing.T) {
	tests := []struct {
		engine   string
		out      string
		wantArgs []string
		expected []Voice
	}{
		{
			engine: EngineEspeakNG,
			out: "Pty Language       Age/Gender VoiceName          File                 Other Languages\n" +
				" 5  af              --/M      Afrikaans          gmw/af\n" +
				" 2  en-us           --/M      English_(America)  gmw/en-US            (en 3)\n",
			wantArgs: []string{"--voices"},
			expected: []Voice{
				{ID: "af", Name: "Afrikaans", Language: "af"},
				{ID: "en-us", Name: "English_(America)", Language: "en-us"},
			},
		},
		{
			engine: EngineSay,
			out: "Alex                en_US    # Most people recognize me by my voice.\n" +
				"Bad News            en_US    # The light you see at the end of the tunnel is the headlamp of a fast approaching train.\n" +
				"Samantha            en_US    # Hello, my name is Samantha.\n",
			wantArgs: []string{"-v", "?"},
			expected: []Voice{
				{ID: "Alex", Name: "Alex", Language: "en_US"},
				{ID: "Bad News", Name: "Bad News", Language: "en_US"},
				{ID: "Samantha", Name: "Samantha", Language: "en_US"},
			},
		},
		{
			engine: EngineSpdSay,
			out: "            NAME     LANGUAGE  VARIANT\n" +
				"       afrikaans           af     none\n" +
				"      english-us        en-US     none\n",
			wantArgs: []string{"-L"},
			expected: []Voice{
				{ID: "afrikaans", Name: "afrikaans", Language: "af"},
				{ID: "english-us", Name: "english-us", Language: "en-US"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			var calls []recordedCall
			s, _ := NewCommandSpeaker(Options{Engine: tt.engine})
			s.run = fakeRunner(tt.out, nil, &calls)

			voices, err := s.Voices(context.Background())
			if err != nil {
				t.Fatalf("Voices() error: %v", err)
			}
			if !reflect.DeepEqual(calls[0].args, tt.wantArgs) {
				t.Errorf("args = %q, want %q", calls[0].args, tt.wantArgs)
			}
			if !reflect.DeepEqual(voices, tt.expected) {
				t.Errorf("Voices() = %+v, want %+v", voices, tt.expected)
			}
		})
	}
}

func TestResolveVoice(t *testing.T) {
	available := []Voice{
		{ID: "en-us", Name: "English_(America)"},
		{ID: "Samantha", Name: "Samantha"},
		{ID: "Microsoft Zira Desktop", Name: "Microsoft Zira Desktop"},
	}

	tests := []struct {
		name      string
		preferred []string
		wantID    string
		wantOK    bool
	}{
		{"first preference wins", []string{"zira", "samantha"}, "Microsoft Zira Desktop", true},
		{"falls through", []string{"hazel", "samantha"}, "Samantha", true},
		{"matches id", []string{"EN-US"}, "en-us", true},
		{"no match", []string{"hazel"}, "", false},
		{"blank preferences ignored", []string{"", "  "}, "", false},
		{"no preferences", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ResolveVoice(available, tt.preferred)
			if ok != tt.wantOK || v.ID != tt.wantID {
				t.Errorf("ResolveVoice() = (%q, %v), want (%q, %v)", v.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestIsSupportedEngine(t *testing.T) {
	for _, e := range SupportedEngines() {
		if !IsSupportedEngine(e) {
			t.Errorf("IsSupportedEngine(%q) = false", e)
		}
	}
	if IsSupportedEngine("pyttsx3") {
		t.Error("IsSupportedEngine(pyttsx3) = true")
	}
}
