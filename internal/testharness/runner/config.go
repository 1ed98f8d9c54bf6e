package runner

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

// Duration parses "15s"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the harness configuration, loadable from a YAML file.
type Config struct {
	// StepTimeout bounds every individual wait (connection event, prompt,
	// terminal bond state).
	StepTimeout Duration `yaml:"step_timeout"`

	// EstablishAttempts bounds the inner retry around link establishment.
	EstablishAttempts int `yaml:"establish_attempts"`

	// ScenarioAttempts bounds the outer retry around whole-scenario
	// execution.
	ScenarioAttempts int `yaml:"scenario_attempts"`

	Matrix MatrixConfig `yaml:"matrix"`
}

// MatrixConfig restricts the enumerated scenario matrix. Empty lists mean
// the default set for that dimension.
type MatrixConfig struct {
	Variants         []string `yaml:"variants"`
	IOCapabilities   []string `yaml:"io_capabilities"`
	AddressTypes     []string `yaml:"address_types"`
	KeyDistributions []string `yaml:"key_distributions"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		StepTimeout:       Duration(15 * time.Second),
		EstablishAttempts: 3,
		ScenarioAttempts:  2,
	}
}

// LoadConfig reads a YAML configuration file, overlaying the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step_timeout must be positive")
	}
	if c.EstablishAttempts <= 0 {
		return fmt.Errorf("establish_attempts must be positive")
	}
	if c.ScenarioAttempts <= 0 {
		return fmt.Errorf("scenario_attempts must be positive")
	}
	if _, err := c.MatrixParams(); err != nil {
		return err
	}
	return nil
}

// MatrixParams resolves the matrix restriction into enumeration parameters.
func (c *Config) MatrixParams() (MatrixParams, error) {
	params := DefaultMatrixParams()

	if len(c.Matrix.Variants) > 0 {
		params.Variants = params.Variants[:0]
		for _, s := range c.Matrix.Variants {
			v, err := parseVariant(s)
			if err != nil {
				return params, err
			}
			params.Variants = append(params.Variants, v)
		}
	}
	if len(c.Matrix.IOCapabilities) > 0 {
		params.IOCapabilities = params.IOCapabilities[:0]
		for _, s := range c.Matrix.IOCapabilities {
			ioCap, err := parseIOCapability(s)
			if err != nil {
				return params, err
			}
			params.IOCapabilities = append(params.IOCapabilities, ioCap)
		}
	}
	if len(c.Matrix.AddressTypes) > 0 {
		params.AddressTypes = params.AddressTypes[:0]
		for _, s := range c.Matrix.AddressTypes {
			t, err := parseAddressType(s)
			if err != nil {
				return params, err
			}
			params.AddressTypes = append(params.AddressTypes, t)
		}
	}
	if len(c.Matrix.KeyDistributions) > 0 {
		params.KeyDistributions = params.KeyDistributions[:0]
		for _, s := range c.Matrix.KeyDistributions {
			k, err := parseKeyDistribution(s)
			if err != nil {
				return params, err
			}
			params.KeyDistributions = append(params.KeyDistributions, k)
		}
	}
	return params, nil
}

func parseVariant(s string) (TestVariant, error) {
	switch strings.ToLower(s) {
	case "accept":
		return VariantAccept, nil
	case "reject":
		return VariantReject, nil
	case "rejected":
		return VariantRejected, nil
	case "disconnected":
		return VariantDisconnected, nil
	}
	return 0, fmt.Errorf("unknown test variant %q", s)
}

func parseIOCapability(s string) (bt.IOCapability, error) {
	for _, ioCap := range []bt.IOCapability{
		bt.IOCapDisplayOnly,
		bt.IOCapDisplayYesNo,
		bt.IOCapKeyboardOnly,
		bt.IOCapNoInputNoOutput,
		bt.IOCapKeyboardDisplay,
	} {
		if strings.EqualFold(s, ioCap.String()) {
			return ioCap, nil
		}
	}
	return 0, fmt.Errorf("unknown io capability %q", s)
}

func parseAddressType(s string) (bt.AddressType, error) {
	switch strings.ToLower(s) {
	case "public":
		return bt.AddressTypePublic, nil
	case "random":
		return bt.AddressTypeRandom, nil
	}
	return 0, fmt.Errorf("unknown address type %q", s)
}

// parseKeyDistribution accepts "+"-joined key names, e.g. "enc+id+link".
func parseKeyDistribution(s string) (bt.KeyDistribution, error) {
	var mask bt.KeyDistribution
	for _, part := range strings.Split(s, "+") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "enc":
			mask |= bt.KeyDistEncryption
		case "id":
			mask |= bt.KeyDistIdentity
		case "sign":
			mask |= bt.KeyDistSignature
		case "link":
			mask |= bt.KeyDistLink
		default:
			return 0, fmt.Errorf("unknown key distribution %q", part)
		}
	}
	return mask, nil
}
