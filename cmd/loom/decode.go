package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loom-ui/loom/pkg/reactive"
)

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <task-token>",
		Short: "Inspect a serialized task token sequence",
		Long: `Decode the flag and index fields of a serialized task and print them
in human-readable form. Object references stay opaque; resolving them
needs the session's reference table.

Example:
  loom decode "i 2 4f 3a 50"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, args[0])
		},
	}
	return cmd
}

func runDecode(cmd *cobra.Command, token string) error {
	fields := strings.Fields(token)
	if len(fields) != 4 && len(fields) != 5 {
		return fmt.Errorf("expected 4 or 5 tokens, got %d", len(fields))
	}

	rawFlags, err := strconv.ParseUint(fields[0], 36, 32)
	if err != nil {
		return fmt.Errorf("bad flags token %q: %w", fields[0], err)
	}
	flags := reactive.TaskFlags(rawFlags)

	index, err := strconv.ParseInt(fields[1], 36, 64)
	if err != nil {
		return fmt.Errorf("bad index token %q: %w", fields[1], err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "kind:    %s\n", kindName(flags))
	fmt.Fprintf(out, "index:   %d\n", index)
	fmt.Fprintf(out, "dirty:   %t\n", flags&reactive.FlagDirty != 0)
	fmt.Fprintf(out, "cleanup: %t\n", flags&reactive.FlagCleanup != 0)
	fmt.Fprintf(out, "body:    %s\n", fields[2])
	fmt.Fprintf(out, "host:    %s\n", fields[3])
	if len(fields) == 5 {
		fmt.Fprintf(out, "state:   %s\n", fields[4])
	}
	return nil
}

func kindName(flags reactive.TaskFlags) string {
	switch {
	case flags&reactive.FlagVisible != 0:
		return reactive.TaskVisible.String()
	case flags&reactive.FlagPlain != 0:
		return reactive.TaskPlain.String()
	case flags&reactive.FlagResource != 0:
		return reactive.TaskResource.String()
	case flags&reactive.FlagComputed != 0:
		return reactive.TaskComputed.String()
	default:
		return "unknown"
	}
}
