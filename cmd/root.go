package cmd

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/josephlewis42/tsh/core"
	"github.com/josephlewis42/tsh/core/config"
	"github.com/josephlewis42/tsh/core/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	verbose  bool
	noPrompt bool

	// exitStatus is the status the shell finished with.
	exitStatus int
)

// loadConfig reads the configuration, falling back to the built-in defaults if
// init was never run.
func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(cfgPath), nil
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tsh",
	Short: "Tiny job-control shell",
	Long: `A job-control shell: each command line runs one program as a job in its
own process group. Jobs run in the foreground or, with a trailing &, in the
background, and are managed with the jobs, bg and fg builtins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logConfig := logger.DefaultConfig()
		if cfg.Log.Level != "" {
			logConfig.Level = cfg.Log.Level
		}
		if cfg.Log.Format != "" {
			logConfig.Format = cfg.Log.Format
		}
		if verbose {
			logConfig.Level = "debug"
		}

		var logOut io.Writer = cmd.ErrOrStderr()
		if cfg.Log.File != "" {
			logFd, err := cfg.OpenAppLog()
			if err != nil {
				return err
			}
			defer logFd.Close()
			logOut = logFd
		}

		log, err := logger.New(logOut, logConfig)
		if err != nil {
			return err
		}

		shell := core.NewShell(core.Options{
			Logger:      log,
			Stdin:       cmd.InOrStdin(),
			Stdout:      cmd.OutOrStdout(),
			Stderr:      cmd.ErrOrStderr(),
			ChildStdin:  os.Stdin,
			ChildStdout: os.Stdout,
			ChildStderr: os.Stderr,
			Prompt:      cfg.Prompt,
			EmitPrompt:  cfg.EmitPrompt && !noPrompt,
			Color:       cfg.Color,
			MaxJobs:     cfg.MaxJobs,
		})

		shell.Start()
		defer shell.Stop()

		exitStatus = shell.Run()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log job lifecycle events at debug level")
	rootCmd.Flags().BoolVarP(&noPrompt, "no-prompt", "p", false, "do not emit a command prompt")
}
