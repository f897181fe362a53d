package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/githerd/githerd/internal/discover"
	"github.com/githerd/githerd/internal/format"
	"github.com/githerd/githerd/internal/gitcmd"
	"github.com/githerd/githerd/internal/log"
	"github.com/githerd/githerd/internal/model"
	"github.com/githerd/githerd/internal/runner"
)

var (
	userConfigPath string // default config directory for this OS
	configPath     string // actual config file used (if any)
	config         model.Config

	flagConfigFilePath string
	flagVerbose        bool
	flagDryRun         bool
	flagSSH            bool
	flagHTTPS          bool
	flagJobs           int
	flagDepth          string
	flagStrategy       string
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "githerd")
}

func main() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigFilePath, "config", "", "config file to load - default is githerd.yaml in current directory or in "+userConfigPath)
	pf.BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	pf.BoolVar(&flagDryRun, "dry-run", false, "print exact commands without executing")
	pf.BoolVar(&flagSSH, "ssh", false, "force SSH URLs (git@github.com:) for all remotes")
	pf.BoolVar(&flagHTTPS, "https", false, "force HTTPS URLs (https://github.com/) for all remotes")
	pf.IntVarP(&flagJobs, "max-connections", "n", model.DefaultMaxConnections, "maximum concurrent git processes (0 = unlimited)")
	pf.StringVar(&flagDepth, "depth", "1", `how deep to scan for repositories, a positive integer or "all"`)
	pf.StringVar(&flagStrategy, "strategy", "auto", "scheduling strategy: auto, poll or spawn")
	_ = pf.MarkHidden("strategy")
	rootCmd.MarkFlagsMutuallyExclusive("ssh", "https")

	// git arguments look like flags, stop parsing at the first positional
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initGitherd

	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("githerd failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "githerd [git-command [args...]]",
	Short:        "parallel git across many repositories",
	Long: `githerd discovers git checkouts below the current directory and runs one
git command against all of them concurrently, printing one summary line per
repository in discovery order.

Any unknown subcommand is passed through to git verbatim:

  githerd log --oneline -1

Arguments starting with a dash must follow a -- separator on the built-in
subcommands, e.g. githerd pull -- --rebase.`,
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return run(cmd, args[0], args, runner.FormatterFunc(format.Passthrough))
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [-- args...]",
	Short: "pull all repositories",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "pull", append([]string{"pull"}, args...), runner.FormatterFunc(format.Pull))
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [-- args...]",
	Short: "fetch all repositories",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "fetch", append([]string{"fetch"}, args...), runner.FormatterFunc(format.Fetch))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [-- args...]",
	Short: "status of all repositories",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, "status", append([]string{"status", "--porcelain"}, args...), runner.FormatterFunc(format.Status))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print githerd version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("githerd: %s\n", version())
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("go:      %s\n", info.GoVersion)
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					fmt.Printf("commit:  %s\n", s.Value)
				case "vcs.time":
					fmt.Printf("date:    %s\n", s.Value)
				}
			}
		}
		if configPath != "" {
			fmt.Printf("config:  %s\n", configPath)
		}
	},
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

// run is the shared body of every git-executing subcommand: discover the
// checkouts, build options from config+flags and hand off to the runner.
func run(cmd *cobra.Command, name string, gitArgs []string, formatter runner.Formatter) error {
	ctx := log.ContextAttrs(cmd.Context(),
		slog.Group("githerd",
			slog.String("cmd", name),
			slog.String("run", uuid.NewString()),
		),
	)

	depth, err := discover.ParseDepth(config.Depth)
	if err != nil {
		return err
	}

	root := "."
	repos, err := discover.Repos(root, depth)
	if err != nil {
		return fmt.Errorf("scanning for repositories: %w", err)
	}
	if len(repos) == 0 {
		if discover.InsideGitRepo() {
			fmt.Println("No git repositories found; you appear to be inside a checkout, run githerd from its parent directory")
		} else {
			fmt.Println("No git repositories found in current directory")
		}
		return nil
	}
	slog.DebugContext(ctx, "discovered repositories", "count", len(repos))

	targets := make([]runner.Target, len(repos))
	for i, r := range repos {
		targets[i] = runner.Target{Name: r.DisplayName(root), Path: r.Path}
	}

	opts, err := options()
	if err != nil {
		return err
	}
	if opts.DryRun {
		fmt.Printf("[githerd %s] dry-run mode, no git commands will be executed. Planned git commands below.\n", version())
	}

	build := func(t runner.Target) runner.Command {
		return gitcmd.New(t.Path, gitArgs...)
	}
	return runner.Run(ctx, os.Stdout, opts, targets, build, formatter)
}

func options() (runner.Options, error) {
	opts := runner.Options{
		DryRun: flagDryRun,
		Jobs:   config.Jobs(),
	}

	switch {
	case flagSSH:
		opts.Scheme = runner.SchemeSSH
	case flagHTTPS:
		opts.Scheme = runner.SchemeHTTPS
	case config.Scheme == model.SchemeSSH:
		opts.Scheme = runner.SchemeSSH
	case config.Scheme == model.SchemeHTTPS:
		opts.Scheme = runner.SchemeHTTPS
	}

	switch flagStrategy {
	case "auto":
		opts.Strategy = runner.StrategyAuto
	case "poll":
		opts.Strategy = runner.StrategyPoll
	case "spawn":
		opts.Strategy = runner.StrategySpawn
	default:
		return runner.Options{}, fmt.Errorf("unknown strategy %q: use auto, poll or spawn", flagStrategy)
	}

	return opts, nil
}

// initGitherd loads the optional config file and sets up logging. Flags
// explicitly set on the command line win over config file values.
func initGitherd(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("GITHERD_CONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, "githerd.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	if configPath == "" {
		config = model.DefaultConfig()
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("config file %s does not exist", configPath)
			}
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			return fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	// flags set on the command line take precedence
	if cmd.Flags().Changed("max-connections") {
		jobs := flagJobs
		if jobs < 0 {
			return fmt.Errorf("max-connections must be non-negative, got %d", jobs)
		}
		config.MaxConnections = &jobs
	}
	if cmd.Flags().Changed("depth") {
		config.Depth = flagDepth
	}
	if flagVerbose {
		config.Verbose = true
	}

	slog.SetDefault(log.New(config.Verbose))
	slog.Debug("githerd start", "configPath", configPath)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
