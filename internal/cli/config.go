package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade"
)

// defaultConfigFile is read from the working directory when --config is not set.
const defaultConfigFile = "gshade.toml"

// Config is the project configuration read from gshade.toml.
type Config struct {
	// FunctionsDir holds the function graphs callable from other graphs.
	FunctionsDir string `toml:"functions_dir"`
	// OutputExt is the extension of generated shader files.
	OutputExt      string `toml:"output_ext"`
	SurfaceImport  string `toml:"surface_import"`
	ParticleImport string `toml:"particle_import"`
	// DefaultTexture is bound to sample nodes with no texture set.
	DefaultTexture string `toml:"default_texture"`
	// AlphaThreshold overrides the discard threshold of masked outputs when set.
	AlphaThreshold *float32 `toml:"alpha_threshold"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		FunctionsDir: "functions",
		OutputExt:    ".shd",
	}
}

// LoadConfig reads the configuration at path on top of [DefaultConfig].
// A missing file is not an error when optional is true.
func LoadConfig(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "reading config")
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.WithHint(errors.Wrapf(err, "parsing %s", path), "check the file is valid TOML")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.Newf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration values.
func (cfg Config) Validate() error {
	if cfg.OutputExt == "" || cfg.OutputExt[0] != '.' {
		return errors.Newf("output_ext must start with a dot, got %q", cfg.OutputExt)
	}
	if cfg.OutputExt == gshade.FileExt {
		return errors.Newf("output_ext cannot be the graph extension %q", gshade.FileExt)
	}
	if t := cfg.AlphaThreshold; t != nil && (math32.IsNaN(*t) || *t < 0 || *t > 1) {
		return errors.Newf("alpha_threshold must be within [0, 1], got %v", *t)
	}
	return nil
}

// CompilerConfig returns the compiler settings of the configuration.
func (cfg Config) CompilerConfig() gshade.CompilerConfig {
	return gshade.CompilerConfig{
		SurfaceImport:  cfg.SurfaceImport,
		ParticleImport: cfg.ParticleImport,
	}
}

// apply sets the graph overrides of the configuration on g before compilation.
func (cfg Config) apply(g *gshade.Graph) {
	for _, n := range g.Nodes {
		switch node := n.(type) {
		case *gshade.SampleNode:
			if node.Texture == "" {
				node.Texture = cfg.DefaultTexture
			}
		case *gshade.OutputNode:
			if node.Masked && cfg.AlphaThreshold != nil {
				node.AlphaThreshold = *cfg.AlphaThreshold
			}
		}
	}
}
