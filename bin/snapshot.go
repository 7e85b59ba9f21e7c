package main

import (
	"fmt"
	"os"

	"github.com/Velocidex/ordereddict"
	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"www.velocidex.com/golang/proctree/json"
	"www.velocidex.com/golang/proctree/logging"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/psutils"
)

var (
	snapshot_command = app.Command("snapshot",
		"Build a process tree from the live system and print it.")

	snapshot_format = snapshot_command.Flag("format",
		"Output format.").Default("tree").Enum("tree", "json", "table")
)

func describeAll(tree *process.ProcessTree, procs []*process.Process) []*ordereddict.Dict {
	rows := make([]*ordereddict.Dict, 0, len(procs))
	for _, proc := range procs {
		rows = append(rows, tree.Describe(proc))
	}
	return rows
}

func doSnapshot() error {
	config_obj := load_config_or_default()

	ctx, cancel := install_sig_handler()
	defer cancel()

	tree := makeTree(config_obj)
	err := tree.Backfill(ctx, psutils.NewLoader())
	if err != nil {
		return err
	}

	stats := tree.Stats()
	logging.GetLogger(logging.ToolComponent).Info(
		"Snapshot holds %v processes", humanize.Comma(int64(stats.Processes)))

	switch *snapshot_format {
	case "json":
		serialized, err := json.MarshalIndent(describeAll(tree, tree.Processes()))
		if err != nil {
			return err
		}
		fmt.Println(string(serialized))

	case "table":
		renderTable(describeAll(tree, tree.Processes()), os.Stdout)

	default:
		return tree.DebugDump(os.Stdout)
	}

	return nil
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == snapshot_command.FullCommand() {
			err := doSnapshot()
			kingpin.FatalIfError(err, "snapshot")
			return true
		}
		return false
	})
}
