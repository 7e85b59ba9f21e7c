package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/shlex"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/proctree/audit"
	"www.velocidex.com/golang/proctree/events"
	"www.velocidex.com/golang/proctree/json"
	"www.velocidex.com/golang/proctree/logging"
	"www.velocidex.com/golang/proctree/process"
	"www.velocidex.com/golang/proctree/psutils"
)

var (
	replay_command = app.Command("replay",
		"Replay a JSONL event log into a process tree and report on it.")

	replay_file = replay_command.Arg("file", "Event log to replay (- for stdin).").
			Required().String()

	replay_backfill = replay_command.Flag("backfill",
		"Seed the tree from the live process list before replaying.").Bool()

	replay_root_command = replay_command.Flag("root_command",
		"Command line of the synthetic root process (pid 1).").
		Default("/init").String()

	replay_dump = replay_command.Flag("dump", "Print the tree after replay.").
			Default("true").Bool()

	replay_chain = replay_command.Flag("chain",
		"Print the call chain of this pid (current identity).").Int32()

	replay_audit = replay_command.Flag("audit",
		"Emit an audit record for every live process.").Bool()
)

// Splits a shell style command line into a Program. The executable
// is also the first argument, as in argv.
func parseCommandLine(command string) (*process.Program, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, errors.Wrap(err, "root_command")
	}
	if len(argv) == 0 {
		return nil, errors.New("root_command: empty command line")
	}
	return process.NewProgram(argv[0], argv...), nil
}

func openEventLog(filename string) (io.ReadCloser, error) {
	if filename == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(filename)
}

func doReplay() error {
	config_obj := load_config_or_default()
	maybeStartMetrics(config_obj)

	ctx, cancel := install_sig_handler()
	defer cancel()

	logger := logging.GetLogger(logging.ToolComponent)
	tree := makeTree(config_obj)
	pump := events.NewPump(tree, config_obj.Pump)

	if *replay_backfill || config_obj.Tree.Backfill {
		err := tree.Backfill(ctx, psutils.NewLoader())
		if err != nil {
			return err
		}
		pump.LinkAll(tree.Processes())

	} else {
		program, err := parseCommandLine(*replay_root_command)
		if err != nil {
			return err
		}
		root := tree.InsertRoot(tree.NewPid(1), process.Cred{}, program)
		pump.Link(root)
	}

	fd, err := openEventLog(*replay_file)
	if err != nil {
		return err
	}
	defer fd.Close()

	err = pump.Run(ctx, events.NewDecoder(fd))
	if err != nil {
		return err
	}

	stats := pump.Stats()
	logger.Info("Replayed %v events (%v failed)",
		humanize.Comma(int64(stats.Applied)), humanize.Comma(int64(stats.Failed)))

	if *replay_dump {
		err = tree.DebugDump(os.Stdout)
		if err != nil {
			return err
		}
	}

	if *replay_chain != 0 {
		err = printChain(tree, *replay_chain)
		if err != nil {
			return err
		}
	}

	if *replay_audit {
		emitter := audit.NewEmitter(tree, os.Stdout)
		for _, proc := range tree.Processes() {
			if tree.IsExited(proc.Pid()) {
				continue
			}
			err := emitter.Emit(proc.Pid())
			if err != nil {
				logger.Warn("audit: %v", err)
			}
		}
	}

	return nil
}

// Finds the newest identity for the bare pid and prints its chain.
func printChain(tree *process.ProcessTree, pid int32) error {
	var target *process.Process
	for _, proc := range tree.Processes() {
		if proc.Pid().Pid == pid {
			target = proc
		}
	}

	if target == nil {
		return fmt.Errorf("pid %v not found in tree", pid)
	}

	serialized, err := json.MarshalIndent(describeAll(tree, tree.CallChain(target)))
	if err != nil {
		return err
	}
	fmt.Println(string(serialized))
	return nil
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		if command == replay_command.FullCommand() {
			err := doReplay()
			kingpin.FatalIfError(err, "replay")
			return true
		}
		return false
	})
}
