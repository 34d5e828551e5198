package main

import (
	"os"

	"github.com/aligator/fattree"
	"github.com/aligator/fattree/checkpoint"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var defaultLogFormatter = &log.TextFormatter{}

// infoFormatter overrides the default format for Info() log events to
// provide an easier to read output
type infoFormatter struct{}

func (f *infoFormatter) Format(entry *log.Entry) ([]byte, error) {
	if entry.Level == log.InfoLevel {
		return append([]byte(entry.Message), '\n'), nil
	}
	return defaultLogFormatter.Format(entry)
}

type options struct {
	configPath string
	cfg        Config
}

func newRootCommand(afs afero.Fs) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "fattree",
		Short:         "Inspect FAT32 images without mounting them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(afs, opts.configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.LogLevel, _ = flags.GetString("log-level")
			}
			if flags.Changed("strict") {
				cfg.Strict, _ = flags.GetBool("strict")
			}
			if flags.Changed("output") {
				cfg.Output, _ = flags.GetString("output")
			}
			opts.cfg = cfg

			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			if level > log.InfoLevel {
				log.SetFormatter(defaultLogFormatter)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "path of the yaml config file")
	flags.String("log-level", defaultConfig.LogLevel, "log level: panic|fatal|error|warn|info|debug|trace")
	flags.Bool("strict", defaultConfig.Strict, "validate the boot sector before reading")
	flags.StringP("output", "o", defaultConfig.Output, "output format: tree|yaml")

	root.AddCommand(newTreeCommand(afs, opts), newCatCommand(afs, opts))
	return root
}

func (o *options) mount(afs afero.Fs, path string) (*fattree.Fs, error) {
	mountOpts := []fattree.Option{fattree.WithLogger(log.StandardLogger())}
	if o.cfg.Strict {
		mountOpts = append(mountOpts, fattree.WithStrictChecks())
	}

	return fattree.MountFile(afs, path, mountOpts...)
}

func newTreeCommand(afs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tree IMAGE",
		Short: "Print the directory tree of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := opts.mount(afs, args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			return printOutput(cmd.OutOrStdout(), fs, opts.cfg.Output)
		},
	}
}

func newCatCommand(afs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cat IMAGE PATH",
		Short: "Print the content of a file inside of an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := opts.mount(afs, args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			content, err := afero.ReadFile(fs, args[1])
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(content)
			return err
		},
	}
}

func main() {
	log.SetFormatter(new(infoFormatter))
	log.SetLevel(log.InfoLevel)

	if err := newRootCommand(afero.NewOsFs()).Execute(); err != nil {
		log.WithFields(checkpoint.Fields(err)).Error(err)
		os.Exit(1)
	}
}
