package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anurag-haridas/visual-impaired/internal/constants"
	"github.com/anurag-haridas/visual-impaired/internal/speech"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Camera backends
const (
	CameraGoCV = "gocv"
	CameraGst  = "gst"
)

// Extractor backends
const (
	ExtractorDlib = "dlib"
	ExtractorHTTP = "http"
)

type Config struct {
	Gallery     GalleryConfig
	Recognition RecognitionConfig
	Announce    AnnounceConfig
	Camera      CameraConfig
	Extractor   ExtractorConfig
	Speech      SpeechConfig
	Status      StatusConfig

	envErrs []error // variables that were set but did not parse
}

type GalleryConfig struct {
	Path          string // gob gallery file
	KnownFacesDir string // reference images, one subdirectory per person
}

type RecognitionConfig struct {
	Tolerance   float64
	Scale       float64
	DetectEvery int
}

type AnnounceConfig struct {
	Cooldown        time.Duration
	AnnounceUnknown bool
	Greeting        string // from defaults.yaml
	UnknownGreeting string // from defaults.yaml
}

type CameraConfig struct {
	Backend  string // gocv or gst
	Device   int
	Pipeline string // GStreamer source element (gst backend)
	Width    int
	Height   int
}

type ExtractorConfig struct {
	Backend   string // dlib or http
	ModelsDir string // dlib model files
	URL       string // embedding server (http backend)
}

type SpeechConfig struct {
	Engine          string
	Voice           string   // empty resolves from PreferredVoices
	PreferredVoices []string // from defaults.yaml
	Rate            int
	Volume          float64
	Async           bool
	ASCIIOnly       bool
}

type StatusConfig struct {
	Addr string // empty disables the status server
}

// Defaults is the content of the embedded defaults.yaml.
type Defaults struct {
	Greeting        string                    `yaml:"greeting"`
	UnknownGreeting string                    `yaml:"unknown_greeting"`
	PreferredVoices []string                  `yaml:"preferred_voices"`
	Engines         map[string]EngineDefaults `yaml:"engines"`
}

type EngineDefaults struct {
	Rate   int     `yaml:"rate"`
	Volume float64 `yaml:"volume"`
}

// LoadDefaults parses the embedded defaults.yaml.
func LoadDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

// envReader parses environment variables. A set variable that does not
// parse keeps its default and is remembered so Validate can report it.
type envReader struct {
	errs []error
}

func (r *envReader) reject(key, value, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s must be %s, got %q", key, kind, value))
}

// integer reads an integer. Range checks are left to Validate.
func (r *envReader) integer(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.reject(key, s, "an integer")
		return defaultVal
	}
	return n
}

// number reads a float. Range checks are left to Validate.
func (r *envReader) number(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.reject(key, s, "a number")
		return defaultVal
	}
	return f
}

func (r *envReader) boolean(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.reject(key, s, "true or false")
		return defaultVal
	}
	return b
}

// duration accepts Go durations ("10s", "1m30s") and plain seconds ("10").
func (r *envReader) duration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	r.reject(key, s, "a duration")
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	defaults := LoadDefaults()

	engine := envString("VI_SPEECH_ENGINE", speech.EngineEspeakNG)
	engineDefaults := defaults.Engines[engine]

	preferred := defaults.PreferredVoices
	if s := os.Getenv("VI_SPEECH_PREFERRED_VOICES"); s != "" {
		preferred = splitList(s)
	}

	env := &envReader{}
	cfg := &Config{
		Gallery: GalleryConfig{
			Path:          envString("VI_GALLERY_PATH", constants.DefaultGalleryPath),
			KnownFacesDir: envString("VI_KNOWN_FACES_DIR", constants.DefaultKnownFacesDir),
		},
		Recognition: RecognitionConfig{
			Tolerance:   env.number("VI_TOLERANCE", constants.DefaultTolerance),
			Scale:       env.number("VI_SCALE", constants.DefaultScale),
			DetectEvery: env.integer("VI_DETECT_EVERY", constants.DefaultDetectEvery),
		},
		Announce: AnnounceConfig{
			Cooldown:        env.duration("VI_COOLDOWN", constants.DefaultCooldown),
			AnnounceUnknown: env.boolean("VI_ANNOUNCE_UNKNOWN", false),
			Greeting:        defaults.Greeting,
			UnknownGreeting: defaults.UnknownGreeting,
		},
		Camera: CameraConfig{
			Backend:  envString("VI_CAMERA_BACKEND", CameraGoCV),
			Device:   env.integer("VI_CAMERA_DEVICE", 0),
			Pipeline: envString("VI_CAMERA_PIPELINE", "v4l2src"),
			Width:    env.integer("VI_CAMERA_WIDTH", constants.DefaultCameraWidth),
			Height:   env.integer("VI_CAMERA_HEIGHT", constants.DefaultCameraHeight),
		},
		Extractor: ExtractorConfig{
			Backend:   envString("VI_EXTRACTOR", ExtractorDlib),
			ModelsDir: envString("VI_MODELS_DIR", "models"),
			URL:       envString("VI_EMBEDDING_URL", "http://localhost:8000"),
		},
		Speech: SpeechConfig{
			Engine:          engine,
			Voice:           os.Getenv("VI_SPEECH_VOICE"),
			PreferredVoices: preferred,
			Rate:            env.integer("VI_SPEECH_RATE", engineDefaults.Rate),
			Volume:          env.number("VI_SPEECH_VOLUME", engineDefaults.Volume),
			Async:           env.boolean("VI_SPEECH_ASYNC", false),
			ASCIIOnly:       env.boolean("VI_SPEECH_ASCII", false),
		},
		Status: StatusConfig{
			Addr: os.Getenv("VI_STATUS_ADDR"),
		},
	}
	cfg.envErrs = env.errs
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every setting that cannot work, joined into one error.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)

	if c.Recognition.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("VI_TOLERANCE must be >= 0, got %v", c.Recognition.Tolerance))
	}
	if c.Recognition.Scale <= 0 || c.Recognition.Scale > 1 {
		errs = append(errs, fmt.Errorf("VI_SCALE must be in (0, 1], got %v", c.Recognition.Scale))
	}
	if c.Recognition.DetectEvery < 1 {
		errs = append(errs, fmt.Errorf("VI_DETECT_EVERY must be >= 1, got %d", c.Recognition.DetectEvery))
	}
	if c.Announce.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("VI_COOLDOWN must be >= 0, got %v", c.Announce.Cooldown))
	}
	switch c.Camera.Backend {
	case CameraGoCV, CameraGst:
	default:
		errs = append(errs, fmt.Errorf("VI_CAMERA_BACKEND must be %q or %q, got %q", CameraGoCV, CameraGst, c.Camera.Backend))
	}
	switch c.Extractor.Backend {
	case ExtractorDlib:
	case ExtractorHTTP:
		if c.Extractor.URL == "" {
			errs = append(errs, errors.New("VI_EMBEDDING_URL is required for the http extractor"))
		}
	default:
		errs = append(errs, fmt.Errorf("VI_EXTRACTOR must be %q or %q, got %q", ExtractorDlib, ExtractorHTTP, c.Extractor.Backend))
	}
	if !speech.IsSupportedEngine(c.Speech.Engine) {
		errs = append(errs, fmt.Errorf("VI_SPEECH_ENGINE must be one of %s, got %q",
			strings.Join(speech.SupportedEngines(), ", "), c.Speech.Engine))
	}
	if c.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("VI_CAMERA_DEVICE must be >= 0, got %d", c.Camera.Device))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		errs = append(errs, fmt.Errorf("VI_CAMERA_WIDTH and VI_CAMERA_HEIGHT must be >= 0, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Speech.Rate <= 0 {
		errs = append(errs, fmt.Errorf("VI_SPEECH_RATE must be > 0, got %d", c.Speech.Rate))
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 1 {
		errs = append(errs, fmt.Errorf("VI_SPEECH_VOLUME must be in [0, 1], got %v", c.Speech.Volume))
	}

	return errors.Join(errs...)
}
