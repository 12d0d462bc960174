package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/GriffinCanCode/WebDesk/internal/domain/filesystem"
	"github.com/spf13/cobra"
)

var (
	fsUser      string
	fsRecursive bool
)

// fsCmd works on the persisted local tree directly. No kernel is booted and
// no permissions apply.
var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Inspect and edit the persisted local filesystem",
	Long: `Operates on the local filesystem stored under --storage-dir without
booting a kernel. With --user the user's home skeleton is created first.`,
}

var fsLsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: withBackend(func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error {
		path := "/"
		if len(args) == 1 {
			path = args[0]
		}
		entries, err := b.ListDirectory(cmd.Context(), path)
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	}),
}

var fsCatCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file",
	Args:  cobra.ExactArgs(1),
	RunE: withBackend(func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error {
		res, err := b.ReadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), res.Content)
		if !strings.HasSuffix(res.Content, "\n") {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}),
}

var fsWriteCmd = &cobra.Command{
	Use:   "write <path> [content]",
	Short: "Write a file, reading content from stdin when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: withBackend(func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error {
		var content string
		if len(args) == 2 {
			content = args[1]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			content = string(data)
		}
		res, err := b.WriteFile(cmd.Context(), args[0], content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", res.Path, res.Size)
		return nil
	}),
}

var fsMkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(1),
	RunE: withBackend(func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error {
		_, err := b.CreateDirectory(cmd.Context(), args[0])
		return err
	}),
}

var fsRmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file, or a directory with -r",
	Args:  cobra.ExactArgs(1),
	RunE: withBackend(func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error {
		if fsRecursive {
			_, err := b.DeleteDirectory(cmd.Context(), args[0])
			return err
		}
		_, err := b.DeleteFile(cmd.Context(), args[0])
		return err
	}),
}

func init() {
	fsCmd.PersistentFlags().StringVarP(&fsUser, "user", "u", "", "create this user's home skeleton before running")
	fsRmCmd.Flags().BoolVarP(&fsRecursive, "recursive", "r", false, "remove a directory")

	fsCmd.AddCommand(fsLsCmd, fsCatCmd, fsWriteCmd, fsMkdirCmd, fsRmCmd)
}

type backendFunc func(cmd *cobra.Command, b *filesystem.LocalBackend, args []string) error

// withBackend opens the configured store as a local backend
func withBackend(fn backendFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		backend := filesystem.NewLocalBackend(store, logger.Component("filesystem"))
		if fsUser != "" {
			if err := backend.Init(cmd.Context(), fsUser); err != nil {
				return err
			}
		}
		return fn(cmd, backend, args)
	}
}

func printEntries(w io.Writer, entries []filesystem.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		size := "-"
		if e.Size != nil {
			size = fmt.Sprint(*e.Size)
		}
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, size, e.Modified.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
