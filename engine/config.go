package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Color is an 8-bit RGBA color. In YAML it is written as "r,g,b" or "r,g,b,a".
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Red   = Color{R: 255, G: 0, B: 0, A: 255}
	Grey  = Color{R: 128, G: 128, B: 128, A: 255}
)

// ParseColor parses "r,g,b" or "r,g,b,a". Alpha defaults to opaque.
func ParseColor(s string) (Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("invalid color %q: want r,g,b[,a]", s)
	}
	v := [4]uint8{0, 0, 0, 255}
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		v[i] = uint8(n)
	}
	return Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MonitorProfile describes a calibrated display.
type MonitorProfile struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	RefreshHz  float64 `yaml:"refresh_hz"`
	DistanceCM float64 `yaml:"distance_cm"`
	WidthCM    float64 `yaml:"width_cm"`
}

type Config struct {
	Experiment string `yaml:"experiment"`

	FaceDir  string `yaml:"face_dir"`
	HouseDir string `yaml:"house_dir"`
	DataDir  string `yaml:"data_dir"`

	StimDuration    time.Duration   `yaml:"stim_duration"`
	Reps            int             `yaml:"reps"`
	ISIJitter       []time.Duration `yaml:"isi_jitter"`
	LeadIn          time.Duration   `yaml:"lead_in"`
	ClosingDuration time.Duration   `yaml:"closing_duration"`

	FixChanges          int   `yaml:"fix_changes"`
	FixationColor       Color `yaml:"fixation_color"`
	FixationChangeColor Color `yaml:"fixation_change_color"`
	BGColor             Color `yaml:"bg_color"`
	TextColor           Color `yaml:"text_color"`

	StartMessage string `yaml:"start_message"`
	EndMessage   string `yaml:"end_message"`

	EEG          bool   `yaml:"eeg"`
	TriggerPort  string `yaml:"trigger_port"`
	BaudRate     int    `yaml:"baud_rate"`
	FaceTrigger  int    `yaml:"face_trigger"`
	HouseTrigger int    `yaml:"house_trigger"`

	SmallMonitor bool                      `yaml:"small_monitor"`
	Monitor      string                    `yaml:"monitor"`
	Monitors     map[string]MonitorProfile `yaml:"monitors"`
	WindowWidth  int                       `yaml:"window_width"`
	WindowHeight int                       `yaml:"window_height"`
	ScreenWidth  int                       `yaml:"screen_width"`
	ScreenHeight int                       `yaml:"screen_height"`
	VSync        bool                      `yaml:"vsync"`
	ScaleFactor  float32                   `yaml:"scale_factor"`
	FontFile     string                    `yaml:"font_file"`
	FontDir      string                    `yaml:"font_dir"`
	FontSize     int                       `yaml:"font_size"`

	// EventLog, when set, receives one row per stimulus onset. The file
	// extension picks the format (.csv or .parquet). A bare "auto" writes
	// CSV next to the session output path.
	EventLog string `yaml:"event_log"`
}

func DefaultConfig() *Config {
	return &Config{
		Experiment:      "FaceHouse",
		FaceDir:         "Faces",
		HouseDir:        "Houses",
		DataDir:         "Data",
		StimDuration:    time.Second,
		Reps:            2,
		ISIJitter:       Linspace(500*time.Millisecond, 1500*time.Millisecond, 5),
		LeadIn:          time.Second,
		ClosingDuration: 3 * time.Second,

		FixChanges:          4,
		FixationColor:       White,
		FixationChangeColor: Red,
		BGColor:             Grey,
		TextColor:           White,

		StartMessage: "Press any key to start...",
		EndMessage:   "Thank you for participating.",

		TriggerPort:  "COM3",
		BaudRate:     115200,
		FaceTrigger:  1,
		HouseTrigger: 2,

		Monitor:      "EMM302_DPP",
		Monitors:     map[string]MonitorProfile{},
		WindowWidth:  1200,
		WindowHeight: 1000,
		ScreenWidth:  1920,
		ScreenHeight: 1080,
		VSync:        true,
		ScaleFactor:  1.0,
		FontDir:      "fonts",
		FontSize:     32,
	}
}

// Linspace returns n evenly spaced durations from lo to hi inclusive.
func Linspace(lo, hi time.Duration, n int) []time.Duration {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []time.Duration{lo}
	}
	out := make([]time.Duration, n)
	step := (hi - lo) / time.Duration(n-1)
	for i := range out {
		out[i] = lo + time.Duration(i)*step
	}
	out[n-1] = hi
	return out
}

// LoadFile overlays the YAML settings in path on cfg.
func (cfg *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Reps < 1 {
		errs = append(errs, fmt.Errorf("reps must be at least 1, got %d", cfg.Reps))
	}
	if cfg.FixChanges < 0 {
		errs = append(errs, fmt.Errorf("fix_changes must not be negative, got %d", cfg.FixChanges))
	}
	if len(cfg.ISIJitter) == 0 {
		errs = append(errs, errors.New("isi_jitter must have at least one value"))
	}
	for _, d := range cfg.ISIJitter {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("isi_jitter value %s must be positive", d))
		}
	}
	if cfg.StimDuration <= 0 {
		errs = append(errs, fmt.Errorf("stim_duration must be positive, got %s", cfg.StimDuration))
	}
	if cfg.LeadIn < 0 || cfg.ClosingDuration < 0 {
		errs = append(errs, errors.New("lead_in and closing_duration must not be negative"))
	}
	for name, code := range map[string]int{"face_trigger": cfg.FaceTrigger, "house_trigger": cfg.HouseTrigger} {
		if code < 1 || code > 127 {
			errs = append(errs, fmt.Errorf("%s must be in 1..127, got %d", name, code))
		}
	}
	if cfg.FaceTrigger == cfg.HouseTrigger {
		errs = append(errs, fmt.Errorf("face_trigger and house_trigger must differ, both are %d", cfg.FaceTrigger))
	}
	if cfg.EEG && cfg.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud_rate must be positive, got %d", cfg.BaudRate))
	}
	return errors.Join(errs...)
}

// TriggerCode maps a condition to its trigger byte.
func (cfg *Config) TriggerCode(c Condition) byte {
	if c == House {
		return byte(cfg.HouseTrigger)
	}
	return byte(cfg.FaceTrigger)
}

// ScreenSize returns the presentation resolution and whether the named
// monitor profile was used.
func (cfg *Config) ScreenSize() (w, h int, calibrated bool) {
	if cfg.SmallMonitor {
		return cfg.WindowWidth, cfg.WindowHeight, false
	}
	if p, ok := cfg.Monitors[cfg.Monitor]; ok && p.Width > 0 && p.Height > 0 {
		return p.Width, p.Height, true
	}
	return cfg.ScreenWidth, cfg.ScreenHeight, false
}

const CacheFile = ".n170_cache"

// Cache remembers values between sessions to prefill the subject dialog.
type Cache struct {
	SubjectID  int    `yaml:"subject_id"`
	Experiment string `yaml:"experiment"`
}

// LoadCache reads the cache at path. A missing file yields an empty cache
// and no error.
func LoadCache(path string) (Cache, error) {
	var c Cache
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read cache: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Cache{}, fmt.Errorf("parse cache %s: %w", path, err)
	}
	return c, nil
}

func (c Cache) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
