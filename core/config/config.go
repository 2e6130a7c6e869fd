package config

import (
	_ "embed"
	"errors"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
)

// ErrNoAppLog is returned when the application log is requested but no log
// file is configured.
var ErrNoAppLog = errors.New("no log file configured, set log.file")

type Configuration struct {
	configFs afero.Fs

	// Prompt is printed before each line is read.
	Prompt string `json:"prompt"`
	// EmitPrompt controls whether Prompt is printed at all.
	EmitPrompt bool `json:"emit_prompt"`
	// MaxJobs is the job table capacity.
	MaxJobs int `json:"max_jobs" validate:"gte=1,lte=1024"`
	// Color sets when the prompt and errors are colorized.
	Color string `json:"color" validate:"oneof=always auto never"`

	Log Log `json:"log"`
}

type Log struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=text json"`
	// File is relative to the configuration directory.
	File string `json:"file"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	if c.Log.File == "" {
		return nil, ErrNoAppLog
	}
	return c.fs().OpenFile(c.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadAppLog opens the application log for reading.
func (c *Configuration) ReadAppLog() (afero.File, error) {
	if c.Log.File == "" {
		return nil, ErrNoAppLog
	}
	return c.fs().OpenFile(c.Log.File, os.O_RDONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewBasePathFs(afero.NewOsFs(), dir)
	return out
}
