package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"www.velocidex.com/golang/proctree/utils"
)

// A hard error causes the loader to stop immediately.
type HardError struct {
	Err error
}

func (self HardError) Error() string {
	return self.Err.Error()
}

func (self HardError) Unwrap() error {
	return self.Err
}

type loaderFunction struct {
	name        string
	loader_func func(self *Loader) (*Config, error)
}

type configMutator struct {
	name                string
	config_mutator_func func(config_obj *Config) error
}

type validatorFunction struct {
	name      string
	validator func(self *Loader, config_obj *Config) error
}

// Loader tries each config source in turn, then applies mutators and
// validators to the first config that loads.
type Loader struct {
	verbose bool

	loaders         []loaderFunction
	config_mutators []configMutator
	validators      []validatorFunction
}

func (self *Loader) Copy() *Loader {
	return &Loader{
		verbose:         self.verbose,
		loaders:         append([]loaderFunction{}, self.loaders...),
		config_mutators: append([]configMutator{}, self.config_mutators...),
		validators:      append([]validatorFunction{}, self.validators...),
	}
}

func (self *Loader) WithVerbose(verbose bool) *Loader {
	self = self.Copy()
	self.verbose = verbose
	return self
}

func (self *Loader) WithFileLoader(filename string) *Loader {
	if filename == "" {
		return self
	}

	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithFileLoader",
		loader_func: func(self *Loader) (*Config, error) {
			self.Log("Loading config from file %v", filename)
			result, err := read_config_from_file(filename)
			if err != nil {
				// If a filename is specified but it does not
				// exist or is invalid stop searching immediately.
				return nil, HardError{err}
			}
			return result, nil
		}})

	return self
}

func (self *Loader) WithLiteralLoader(serialized []byte) *Loader {
	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithLiteralLoader",
		loader_func: func(self *Loader) (*Config, error) {
			result, err := ParseConfigFromString(serialized)
			if err != nil {
				return nil, HardError{err}
			}
			return result, nil
		}})

	return self
}

func (self *Loader) WithEnvLoader(env_var string) *Loader {
	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithEnvLoader",
		loader_func: func(self *Loader) (*Config, error) {
			filename, pres := os.LookupEnv(env_var)
			if !pres || filename == "" {
				return nil, fmt.Errorf("Env var %v not set", env_var)
			}
			self.Log("Loading config from env %v (%v)", env_var, filename)
			result, err := read_config_from_file(filename)
			if err != nil {
				return nil, HardError{err}
			}
			return result, nil
		}})

	return self
}

// Falls back to the built in defaults when no other source loaded.
func (self *Loader) WithDefaultLoader() *Loader {
	self = self.Copy()
	self.loaders = append(self.loaders, loaderFunction{
		name: "WithDefaultLoader",
		loader_func: func(self *Loader) (*Config, error) {
			self.Log("Using default config")
			return GetDefaultConfig(), nil
		}})

	return self
}

func (self *Loader) WithConfigMutator(name string,
	mutator func(config_obj *Config) error) *Loader {
	self = self.Copy()
	self.config_mutators = append(self.config_mutators, configMutator{
		name: name, config_mutator_func: mutator,
	})
	return self
}

func (self *Loader) WithCustomValidator(name string,
	validator func(config_obj *Config) error) *Loader {
	self = self.Copy()
	self.validators = append(self.validators, validatorFunction{
		name: name,
		validator: func(self *Loader, config_obj *Config) error {
			return validator(config_obj)
		},
	})
	return self
}

func (self *Loader) Log(format string, v ...interface{}) {
	if self.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", v...)
	}
}

func (self *Loader) Validate(config_obj *Config) error {
	for _, mutator := range self.config_mutators {
		err := mutator.config_mutator_func(config_obj)
		if err != nil {
			return errors.Wrap(err, mutator.name)
		}
	}

	err := ValidateConfig(config_obj)
	if err != nil {
		return err
	}

	for _, validator := range self.validators {
		err := validator.validator(self, config_obj)
		if err != nil {
			return errors.Wrap(err, validator.name)
		}
	}
	return nil
}

func (self *Loader) LoadAndValidate() (*Config, error) {
	for _, loader := range self.loaders {
		result, err := loader.loader_func(self)
		if err == nil {
			return result, self.Validate(result)
		}

		// Stop on hard errors.
		var hard HardError
		if errors.As(err, &hard) {
			return nil, err
		}
		self.Log("%v: %v", loader.name, err)
	}
	return nil, errors.New("Unable to load config from any source.")
}

func ValidateConfig(config_obj *Config) error {
	mergeDefaults(config_obj)

	if config_obj.Tree.RetentionWindow < 1 {
		return utils.Wrap(utils.InvalidConfigError,
			"tree.retention_window must be at least 1, got %v",
			config_obj.Tree.RetentionWindow)
	}

	if config_obj.Tree.MaxCallChain < 1 {
		return utils.Wrap(utils.InvalidConfigError,
			"tree.max_call_chain must be at least 1, got %v",
			config_obj.Tree.MaxCallChain)
	}

	if config_obj.Logging.Level != "" {
		_, err := logrus.ParseLevel(config_obj.Logging.Level)
		if err != nil {
			return utils.Wrap(utils.InvalidConfigError,
				"logging.level: %v", err)
		}
	}

	for executable, kind := range config_obj.Originator.Triggers {
		if executable == "" || kind == "" {
			return utils.Wrap(utils.InvalidConfigError,
				"originator.triggers: empty entry %q: %q", executable, kind)
		}
	}

	return nil
}
