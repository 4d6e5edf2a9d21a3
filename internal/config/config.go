// Package config loads pinchpoint settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayusman/pinchpoint/internal/control"
	"github.com/ayusman/pinchpoint/internal/screen"
)

// Config holds process settings. The control values only seed the live
// parameters; changes made at runtime are not written back.
type Config struct {
	HTTPAddr  string
	StaticDir string
	DataDir   string
	Headless  bool

	CameraID    int
	FrameWidth  int
	FrameHeight int
	Mirror      bool

	MappingMode         screen.Mode
	DetectionConfidence float64
	TrackingConfidence  float64
	CursorSensitivity   float64
	PinchThreshold      float64
	PinchReleaseTimeout time.Duration
	MouseButton         string

	RecordSessions bool
}

// Load reads the given .env files (".env" when none are named) and then
// the environment. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("no .env file found, using environment")
	}

	mode, err := screen.ParseMode(getEnv("PINCHPOINT_MAPPING_MODE", string(screen.ModeTiled)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:  getEnv("PINCHPOINT_HTTP_ADDR", ":8080"),
		StaticDir: getEnv("PINCHPOINT_STATIC_DIR", ""),
		DataDir:   getEnv("PINCHPOINT_DATA_DIR", defaultDataDir()),
		Headless:  getEnvBool("PINCHPOINT_HEADLESS", false),

		CameraID:    getEnvInt("PINCHPOINT_CAMERA_ID", 0),
		FrameWidth:  getEnvInt("PINCHPOINT_FRAME_WIDTH", 640),
		FrameHeight: getEnvInt("PINCHPOINT_FRAME_HEIGHT", 480),
		Mirror:      getEnvBool("PINCHPOINT_MIRROR", true),

		MappingMode:         mode,
		DetectionConfidence: getEnvFloat("PINCHPOINT_DETECTION_CONFIDENCE", control.DefaultDetectionConfidence),
		TrackingConfidence:  getEnvFloat("PINCHPOINT_TRACKING_CONFIDENCE", control.DefaultTrackingConfidence),
		CursorSensitivity:   getEnvFloat("PINCHPOINT_CURSOR_SENSITIVITY", control.DefaultCursorSensitivity),
		PinchThreshold:      getEnvFloat("PINCHPOINT_PINCH_THRESHOLD", control.DefaultPinchThreshold),
		PinchReleaseTimeout: getEnvDuration("PINCHPOINT_PINCH_RELEASE_TIMEOUT", control.DefaultReleaseTimeout),
		MouseButton:         getEnv("PINCHPOINT_MOUSE_BUTTON", "left"),

		RecordSessions: getEnvBool("PINCHPOINT_RECORD_SESSIONS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("invalid camera id %d", c.CameraID)
	}
	if c.PinchReleaseTimeout < 0 {
		return fmt.Errorf("invalid pinch release timeout %s", c.PinchReleaseTimeout)
	}
	switch c.MouseButton {
	case "left", "right", "center":
	default:
		return fmt.Errorf("invalid mouse button %q", c.MouseButton)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	return nil
}

// Params returns the initial control parameters.
func (c *Config) Params() control.Snapshot {
	return control.Snapshot{
		DetectionConfidence: c.DetectionConfidence,
		TrackingConfidence:  c.TrackingConfidence,
		CursorSensitivity:   c.CursorSensitivity,
		PinchThreshold:      c.PinchThreshold,
	}
}

// DBPath returns the session journal path inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pinchpoint.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pinchpoint"
	}
	return filepath.Join(home, ".pinchpoint")
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return defaultVal
}
