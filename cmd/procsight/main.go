//go:build linux

package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/procsight/procsight/pkg/config"
	"github.com/procsight/procsight/pkg/control"
	"github.com/procsight/procsight/pkg/process"
	"github.com/procsight/procsight/pkg/system/cpu"
	"github.com/procsight/procsight/pkg/system/mem"
	"github.com/procsight/procsight/pkg/system/procfs"
)

var (
	cfgPath string
	cfg     *config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "procsight",
		Short: "Process and resource inspector",
		Long: `procsight inspects the processes and resource usage of a Linux host
by reading the proc pseudo-filesystem directly: per-process snapshots
in the style of ps aux, system-wide CPU utilization, memory and swap
statistics, and guarded process control (kill, suspend, resume, renice).

Examples:
  procsight ps --sort mem
  procsight cpu
  procsight kill 4242
  procsight renice 4242 10`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			return err
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to yaml config file")

	root.AddCommand(psCmd(), cpuCmd(), memCmd(),
		killCmd(), suspendCmd(), resumeCmd(), reniceCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newBuilder() *process.Builder {
	return process.NewBuilder(procfs.New(cfg.ProcRoot), cfg.PasswdPath)
}

func newController(b *process.Builder) *control.Controller {
	return control.New(b, control.NewPolicy(cfg.CriticalProcesses...))
}

func psCmd() *cobra.Command {
	var sortMode string
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List processes in ps-aux style",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := newBuilder()

			// The first pass only seeds the per-pid jiffy caches; the
			// second, after a short pause, yields real CPU percentages.
			b.Snapshots()
			time.Sleep(cfg.SampleInterval)
			snaps := b.Snapshots()

			process.SortBy(snaps, sortMode)
			printProcessTable(snaps)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortMode, "sort", process.SortCPU,
		"sort column: cpu, mem, pid, user, command, nice")
	return cmd
}

func printProcessTable(snaps []process.Snapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tPID\t%CPU\t%MEM\tVSZ\tRSS\tTTY\tSTAT\tSTART\tTIME\tCOMMAND")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Owner, s.PID, s.CPUPercent, s.MemPercent,
			s.VSZKB, s.RSSKB, s.TTY, s.Stat, s.Started, s.CPUTime, s.Command)
	}
	tw.Flush()
}

func cpuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Show system-wide CPU utilization",
		RunE: func(cmd *cobra.Command, args []string) error {
			sampler := cpu.New(procfs.New(cfg.ProcRoot), cfg.SampleInterval)
			overall, perCore := sampler.SystemPercent()

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "overall\t%.1f%%\n", overall)
			for i, p := range perCore {
				fmt.Fprintf(tw, "cpu%d\t%.1f%%\n", i, p)
			}
			tw.Flush()
			return nil
		},
	}
}

func memCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mem",
		Short: "Show memory and swap statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			sampler := mem.New(procfs.New(cfg.ProcRoot))
			vm := sampler.VirtualMemory()
			swap := sampler.SwapMemory()

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "mem total\t%s\n", vm.Total.Humanized())
			fmt.Fprintf(tw, "mem used\t%s (%.1f%%)\n", vm.Used.Humanized(), vm.Percent)
			fmt.Fprintf(tw, "mem available\t%s\n", vm.Available.Humanized())
			fmt.Fprintf(tw, "mem free\t%s\n", vm.Free.Humanized())
			fmt.Fprintf(tw, "buffers\t%s\n", vm.Buffers.Humanized())
			fmt.Fprintf(tw, "cached\t%s\n", vm.Cached.Humanized())
			fmt.Fprintf(tw, "swap total\t%s\n", swap.Total.Humanized())
			fmt.Fprintf(tw, "swap used\t%s (%.1f%%)\n", swap.Used.Humanized(), swap.Percent)
			fmt.Fprintf(tw, "swap in/out\t%s / %s\n", swap.In.Humanized(), swap.Out.Humanized())
			tw.Flush()
			return nil
		},
	}
}

func killCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "kill PID",
		Short: "Terminate a process (graceful, then forceful)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePid(args[0])
			if err != nil {
				return err
			}
			b := newBuilder()
			ctl := newController(b)

			err = ctl.Terminate(pid)
			if errors.Is(err, control.ErrConfirmRequired) {
				if !yes && !confirmCritical(pid, b.Resolver().Command(pid)) {
					ctl.Cancel()
					fmt.Println("aborted")
					return nil
				}
				err = ctl.Terminate(pid)
			}
			if err != nil {
				return err
			}
			fmt.Printf("terminated pid %d\n", pid)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm killing a critical process without prompting")
	return cmd
}

// confirmCritical prompts on the terminal before killing a critical
// process. Without a terminal there is nobody to ask, so the answer is no
// and the caller must pass --yes.
func confirmCritical(pid int, command string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "pid %d (%s) is critical; re-run with --yes to confirm\n", pid, command)
		return false
	}
	fmt.Printf("pid %d (%s) is critical. Kill it anyway? [y/N] ", pid, command)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func suspendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suspend PID",
		Short: "Stop a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePid(args[0])
			if err != nil {
				return err
			}
			b := newBuilder()
			if err := newController(b).Suspend(pid); err != nil {
				return err
			}
			fmt.Printf("suspended pid %d\n", pid)
			return nil
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume PID",
		Short: "Continue a stopped process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePid(args[0])
			if err != nil {
				return err
			}
			b := newBuilder()
			if err := newController(b).Resume(pid); err != nil {
				return err
			}
			fmt.Printf("resumed pid %d\n", pid)
			return nil
		},
	}
}

func reniceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renice PID NICE",
		Short: "Change a process's nice value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parsePid(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid nice value %q", args[1])
			}
			b := newBuilder()
			ctl := newController(b)
			old := ctl.CurrentNice(pid)
			if err := ctl.Reprioritize(pid, value); err != nil {
				return err
			}
			fmt.Printf("pid %d nice %d -> %d\n", pid, old, value)
			return nil
		},
	}
}

func parsePid(arg string) (int, error) {
	pid, err := strconv.Atoi(arg)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid %q", arg)
	}
	return pid, nil
}
