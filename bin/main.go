package main

import (
	"os"
	"runtime/pprof"

	"github.com/alecthomas/kingpin/v2"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/logging"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("proctree",
		"Reconstructs and queries process ancestry from fork/exec/exit events.")

	config_path = app.Flag("config", "The configuration file.").Short('c').
			Envar("PROCTREE_CONFIG").String()

	verbose_flag = app.Flag(
		"verbose", "Enable verbose logging.").Short('v').
		Default("false").Bool()

	profile_flag = app.Flag(
		"profile", "Write profiling information to this file.").String()

	command_handlers []CommandHandler
)

func load_config_or_default() *config.Config {
	config_obj, err := new(config.Loader).
		WithVerbose(*verbose_flag).
		WithFileLoader(*config_path).
		WithEnvLoader("PROCTREE_CONFIG").
		WithDefaultLoader().
		WithConfigMutator("VerboseLogging", func(config_obj *config.Config) error {
			if *verbose_flag && config_obj.Logging != nil {
				config_obj.Logging.Level = "debug"
			}
			return nil
		}).
		LoadAndValidate()
	kingpin.FatalIfError(err, "Unable to load config")

	// Initialize the logging now that we have loaded the config.
	err = logging.Configure(config_obj.Logging)
	kingpin.FatalIfError(err, "Logging")

	return config_obj
}

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate).DefaultEnvars()
	args := os.Args[1:]

	command := kingpin.MustParse(app.Parse(args))

	if *profile_flag != "" {
		f2, err := os.Create(*profile_flag)
		kingpin.FatalIfError(err, "Profile file.")

		err = pprof.StartCPUProfile(f2)
		kingpin.FatalIfError(err, "Profile file.")
		defer pprof.StopCPUProfile()
	}

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			break
		}
	}
}
