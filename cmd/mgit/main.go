// cmd/mgit/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"mgit/internal/config"
	"mgit/internal/errors"
	"mgit/internal/logging"
	"mgit/internal/object"
	"mgit/internal/repo"
	"mgit/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    = config.Default()
	logger = logging.Nop()

	configPath    string
	storeRoot     string
	logLevel      string
	storeFromFlag bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mgit",
		Short: "mgit is a minimal content-addressable object store and index",
		Long: `mgit records file contents under SHA-256 content addresses and keeps a
sorted, checksummed index of tracked paths, in the layout of a version
control system's plumbing layer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = os.Getenv("MGIT_CONFIG")
			}
			loaded, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			storeFromFlag = cmd.Flags().Changed("store")
			if storeFromFlag {
				loaded.StoreRoot = storeRoot
			}
			if cmd.Flags().Changed("log-level") {
				loaded.LogLevel = logLevel
			}
			cfg = loaded

			l, err := logging.NewLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON config file (default $MGIT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&storeRoot, "store", config.DefaultStoreRoot, "store root directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newHashObjectCmd(),
		newCatFileCmd(),
		newLsFilesCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty store root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(cfg.StoreRoot)
			if err != nil {
				return fmt.Errorf("getting absolute path: %w", err)
			}
			created, err := repo.Initialize(abs)
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty mgit repository in", abs)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Repository already initialized in", abs)
			}
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Store file contents and record them in the index",
		Long:  `Stores each file as a blob and records its metadata and address in the index. Directories are walked; hidden entries are skipped.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := operation(cmd.Context())

			r, err := openRepo()
			if err != nil {
				return err
			}

			recorded, err := r.Add(ctx, args)
			if err != nil {
				return fmt.Errorf("adding paths: %w", err)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			out := cmd.OutOrStdout()
			for _, rec := range recorded {
				status := green("added")
				if rec.Replaced {
					status = yellow("updated")
				}
				fmt.Fprintf(out, "%s  %s  %s\n", status, rec.Address.String()[:12], rec.Path)
			}

			log.Info("add completed", zap.Int("paths", len(recorded)))
			return nil
		},
	}
}

func newHashObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object [--stdin | <file>]",
		Short: "Compute the address of a file, optionally storing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, _ := cmd.Flags().GetString("type")
			write, _ := cmd.Flags().GetBool("write")
			useStdin, _ := cmd.Flags().GetBool("stdin")

			source := "-"
			if len(args) == 1 {
				source = args[0]
			} else if !useStdin {
				return fmt.Errorf("hash-object needs a file or --stdin")
			}

			var content []byte
			var err error
			if source == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(source)
			}
			if err != nil {
				return errors.IOError("reading input", source, err)
			}

			var addr object.Address
			if write {
				r, err := openRepo()
				if err != nil {
					return err
				}
				if addr, err = r.Store(tag, content); err != nil {
					return fmt.Errorf("storing object: %w", err)
				}
			} else {
				addr = object.Hash(tag, content)
			}

			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}

	cmd.Flags().StringP("type", "t", object.BlobTag, "object type tag")
	cmd.Flags().BoolP("write", "w", false, "write the object into the store")
	cmd.Flags().Bool("stdin", false, "read content from standard input")
	return cmd
}

func newCatFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file <address>",
		Short: "Show the content, type or size of a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showType, _ := cmd.Flags().GetBool("type")
			showSize, _ := cmd.Flags().GetBool("size")

			addr, err := object.ParseAddress(args[0])
			if err != nil {
				return err
			}
			r, err := openRepo()
			if err != nil {
				return err
			}
			tag, content, err := r.Objects.Read(addr)
			if err != nil {
				return fmt.Errorf("reading object: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, tag)
			case showSize:
				fmt.Fprintln(out, len(content))
			default:
				_, err = out.Write(content)
			}
			return err
		},
	}

	cmd.Flags().BoolP("type", "t", false, "print the object's type tag")
	cmd.Flags().BoolP("size", "s", false, "print the object's content size")
	cmd.MarkFlagsMutuallyExclusive("type", "size")
	return cmd
}

func newLsFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls-files",
		Short: "List the paths recorded in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, _ := cmd.Flags().GetBool("stage")
			digestForm, _ := cmd.Flags().GetBool("digest")

			r, err := openRepo()
			if err != nil {
				return err
			}
			idx, err := r.Index.Load()
			if err != nil {
				return fmt.Errorf("loading index: %w", err)
			}

			blue := color.New(color.FgBlue).SprintFunc()
			out := cmd.OutOrStdout()
			for _, e := range idx.Entries() {
				if !stage {
					fmt.Fprintln(out, e.Path)
					continue
				}
				addr := e.Address.String()
				if digestForm {
					addr = e.Address.Digest().String()
				}
				fmt.Fprintf(out, "%06o %s %s\n", e.Mode, blue(addr), e.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("stage", "s", false, "show mode and address for each entry")
	cmd.Flags().Bool("digest", false, "with --stage, print addresses as sha256:<hex>")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Record files in the index whenever they change",
		Long:  `Watches the given files and directories (default: every path already in the index) and re-records each file after it is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := operation(cmd.Context())
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := openRepo()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				idx, err := r.Index.Load()
				if err != nil {
					return fmt.Errorf("loading index: %w", err)
				}
				for _, e := range idx.Entries() {
					paths = append(paths, filepath.Join(r.WorkTree, filepath.FromSlash(e.Path)))
				}
			}
			if len(paths) == 0 {
				return fmt.Errorf("nothing to watch: index is empty and no paths were given")
			}

			w, err := watch.New(r, r.Root, log)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Watch(paths...); err != nil {
				return fmt.Errorf("watching paths: %w", err)
			}

			log.Info("watching", zap.Int("paths", len(paths)))
			return w.Run(ctx)
		},
	}
}

// operation tags the command's context and logger with a fresh operation id.
func operation(ctx context.Context) (context.Context, *zap.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, _ = logging.WithOperation(ctx)
	return ctx, logger.WithOperationID(ctx)
}

func openRepo() (*repo.Repository, error) {
	root := cfg.StoreRoot
	if !filepath.IsAbs(root) && !storeFromFlag {
		// Look upward so commands work from subdirectories.
		if found, err := repo.FindRoot(".", root); err == nil {
			root = found
		}
	}

	r, err := repo.Open(root, repo.Options{
		CompressionLevel: cfg.Compression.Level,
		CacheSize:        cfg.CacheSize,
		Workers:          cfg.Workers,
		Logger:           logger.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return r, nil
}

func main() {
	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		red := color.New(color.FgRed).SprintFunc()
		if kind := errors.TypeOf(err); kind != "" {
			fmt.Fprintf(os.Stderr, "%s [%s] %v\n", red("error:"), kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		}
		os.Exit(1)
	}
}
