package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/contextflow/internal/memory"
)

var (
	learnMeta   []string
	recallLimit int
	allUsers    bool
	forgetWhere []string
)

var learnCmd = &cobra.Command{
	Use:   "learn [text...]",
	Short: "Store knowledge in long-term memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		meta, err := parseMeta(learnMeta)
		if err != nil {
			return err
		}

		cfg, stack, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer stack.Close()

		meta[memory.UserKey] = cfg.Workflow.UserID
		id, err := stack.Memory.Learn(cmd.Context(), text, meta)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var recallCmd = &cobra.Command{
	Use:   "recall [query...]",
	Short: "Search long-term memory with hybrid retrieval",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, stack, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer stack.Close()

		var filter memory.Filter
		if !allUsers {
			filter = memory.Filter{memory.UserKey: cfg.Workflow.UserID}
		}
		results, err := stack.Memory.RecallKnowledge(cmd.Context(), query, recallLimit, filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "no matching knowledge")
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d. [%.4f] %s  %s\n", i+1, r.Score, r.ID, r.Text)
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Delete knowledge by id, or every record of the user matching --where",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && len(forgetWhere) == 0 {
			return errors.New("pass a record id or at least one --where key=value")
		}

		cfg, stack, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer stack.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			rec, err := stack.Memory.GetKnowledge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rec.Metadata[memory.UserKey] != cfg.Workflow.UserID {
				return memory.ErrNotFound
			}
			if err := stack.Memory.Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out, "deleted", args[0])
			return nil
		}

		meta, err := parseMeta(forgetWhere)
		if err != nil {
			return err
		}
		meta[memory.UserKey] = cfg.Workflow.UserID
		n, err := stack.Memory.ForgetWhere(cmd.Context(), memory.Filter(meta))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d records\n", n)
		return nil
	},
}

// parseMeta turns key=value pairs into metadata. The user key is reserved.
func parseMeta(pairs []string) (map[string]string, error) {
	meta := make(map[string]string, len(pairs)+1)
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("metadata %q is not key=value", p)
		}
		if k == memory.UserKey {
			return nil, fmt.Errorf("metadata key %q is set from --user", memory.UserKey)
		}
		meta[k] = strings.TrimSpace(v)
	}
	return meta, nil
}

func init() {
	learnCmd.Flags().StringArrayVarP(&learnMeta, "meta", "m", nil, "metadata key=value (repeatable)")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", memory.DefaultLimit, "maximum results")
	recallCmd.Flags().BoolVar(&allUsers, "all-users", false, "search knowledge of every user")
	forgetCmd.Flags().StringArrayVar(&forgetWhere, "where", nil, "delete records matching key=value (repeatable)")

	rootCmd.AddCommand(learnCmd, recallCmd, forgetCmd)
}
