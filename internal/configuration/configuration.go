package configuration

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/metal-toolbox/kubam/internal/model"
)

const (
	defaultStoreFile    = "kubam.yaml"
	defaultUCSMTimeout  = 30 * time.Second
	defaultUCSMRetryMax = 2
)

// UCSMConfig holds management plane client parameters.
type UCSMConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryMax    int           `mapstructure:"retry_max"`
	InsecureTLS bool          `mapstructure:"insecure_tls"`
}

func newUCSMConfig() *UCSMConfig {
	return &UCSMConfig{
		Timeout:  defaultUCSMTimeout,
		RetryMax: defaultUCSMRetryMax,
	}
}

// Configuration holds application configuration read from a YAML or set by env variables.
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// StorePath is the location of the persisted configuration document.
	StorePath string `mapstructure:"store_path"`

	// DefaultOrg is the organization deploy and destroy use when the store holds none.
	DefaultOrg string `mapstructure:"default_org"`

	// Dryrun swaps the management plane for a simulated one.
	Dryrun bool `mapstructure:"dryrun"`

	// MetricsTextfile is written with the collected metrics when a command completes.
	MetricsTextfile string `mapstructure:"metrics_textfile"`

	UCSM *UCSMConfig `mapstructure:"ucsm"`
}

// New creates an empty configuration struct.
func New() *Configuration {
	config := &Configuration{}

	// initialized here so viper can read in configuration from env vars
	config.UCSM = newUCSMConfig()

	return config
}

func (c *Configuration) AsLogFields() []any {
	return []any{
		"logLevel", c.LogLevel,
		"storePath", c.StorePath,
		"defaultOrg", c.DefaultOrg,
		"dryrun", c.Dryrun,
		"metricsTextfile", c.MetricsTextfile,
		"ucsmTimeout", c.UCSM.Timeout.String(),
		"ucsmRetryMax", c.UCSM.RetryMax,
		"ucsmInsecureTLS", c.UCSM.InsecureTLS,
	}
}

// loadArgs applies command line values, which take precedence over file and env.
func (c *Configuration) loadArgs(args *model.Args) {
	if args.LogLevel != "" {
		c.LogLevel = args.LogLevel
	}

	if args.StorePath != "" {
		c.StorePath = args.StorePath
	}

	if args.Dryrun {
		c.Dryrun = true
	}
}

// Load the application configuration
// Reads in the configFile when available and overrides from environment variables.
func Load(args *model.Args) (*Configuration, error) {
	viperConfig := viper.New()
	viperConfig.SetConfigType("yaml")
	viperConfig.SetEnvPrefix(model.AppName)
	viperConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConfig.AutomaticEnv()

	if args.ConfigFile != "" {
		fh, err := os.Open(args.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(model.ErrConfig, err.Error())
		}
		defer fh.Close()

		if err = viperConfig.ReadConfig(fh); err != nil {
			return nil, errors.Wrap(model.ErrConfig, "ReadConfig error: "+err.Error())
		}
	}

	config := New()

	if err := config.envBindVars(viperConfig); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
	}

	if err := viperConfig.Unmarshal(config); err != nil {
		return nil, errors.Wrap(model.ErrConfig, "Unmarshal error: "+err.Error())
	}

	config.envVarUCSMOverrides(viperConfig)
	config.loadArgs(args)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Configuration) envVarUCSMOverrides(viperConfig *viper.Viper) {
	if c.UCSM == nil {
		c.UCSM = newUCSMConfig()
	}

	if viperConfig.GetDuration("ucsm.timeout") != 0 {
		c.UCSM.Timeout = viperConfig.GetDuration("ucsm.timeout")
	}

	if viperConfig.GetInt("ucsm.retry_max") != 0 {
		c.UCSM.RetryMax = viperConfig.GetInt("ucsm.retry_max")
	}

	if viperConfig.IsSet("ucsm.insecure_tls") {
		c.UCSM.InsecureTLS = viperConfig.GetBool("ucsm.insecure_tls")
	}
}

func (c *Configuration) validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.DefaultOrg == "" {
		c.DefaultOrg = model.DefaultOrg
	}

	if c.StorePath == "" {
		c.StorePath = defaultStorePath()
	}

	if c.UCSM.Timeout < 0 {
		return errors.Wrap(model.ErrConfig, "ucsm.timeout must not be negative")
	}

	if c.UCSM.RetryMax < 0 {
		return errors.Wrap(model.ErrConfig, "ucsm.retry_max must not be negative")
	}

	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultStoreFile
	}

	return filepath.Join(home, "."+model.AppName, defaultStoreFile)
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (c *Configuration) envBindVars(viperConfig *viper.Viper) error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(c, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten configuration")
	}

	for k := range flat {
		if err := viperConfig.BindEnv(k); err != nil {
			return errors.Wrap(model.ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}
