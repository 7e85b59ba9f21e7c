package main

import (
	"github.com/alecthomas/kingpin/v2"
	"www.velocidex.com/golang/proctree/annotations/originator"
	"www.velocidex.com/golang/proctree/config"
	"www.velocidex.com/golang/proctree/process"
)

func makeTree(config_obj *config.Config) *process.ProcessTree {
	originator_annotator, err := originator.NewFromConfig(config_obj)
	kingpin.FatalIfError(err, "Originator")

	return process.NewProcessTree(
		process.OptionsFromConfig(config_obj), originator_annotator)
}
