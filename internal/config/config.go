package config

import (
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public Public
}

type Public struct {
	Root     string `yaml:"root"` // storage root; empty means the directory of the executable
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogJSON  bool   `yaml:"log_json"`
	Image    Image  `yaml:"image"`
}

type Image struct {
	MaxSide         int   `yaml:"max_side" validate:"gt=0"` // longest side of a resized copy
	JpegQuality     int   `yaml:"jpeg_quality" validate:"gte=1,lte=100"`
	MaxDecodedBytes int64 `yaml:"max_decoded_bytes" validate:"gt=0"` // refuse to decode images larger than this as RGBA
}

func Default() *Config {
	return &Config{Public{
		LogLevel: "info",
		Image: Image{
			MaxSide:         1024,
			JpegQuality:     90,
			MaxDecodedBytes: 256 * 1024 * 1024,
		},
	}}
}

func (c *Config) Validate() error {
	return validator.New().Struct(c.Public)
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

// MustLoad reads public.yaml from configFolder on top of the defaults and
// panics if the file is missing or the result is invalid.
func MustLoad(configFolder string) *Config {
	cfg := Default()
	mustLoadPath(path.Join(configFolder, "public.yaml"), &cfg.Public)

	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}
	return cfg
}
