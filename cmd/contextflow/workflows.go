package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/contextflow/internal/app"
	"github.com/aiox-platform/contextflow/internal/catalog"
	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

var (
	session     string
	showOutputs bool
)

var workflowShort = map[string]string{
	"clinical":  "Run the clinical decision support workflow on a patient case",
	"financial": "Run the investment research workflow on a question",
	"legal":     "Run the legal research workflow on a legal question",
	"assistant": "Ask the personal assistant",
}

func newWorkflowCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [input...]",
		Short: workflowShort[name],
		Long: workflowShort[name] + `.

The input is read from the arguments, or from stdin when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			input, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, stack, err := openStack(ctx)
			if err != nil {
				return err
			}
			defer stack.Close()

			model, err := app.NewModel(cfg.LLM)
			if err != nil {
				return err
			}

			wf, err := catalog.Lookup(name, catalog.Deps{
				Memory:      stack.Memory,
				Model:       model,
				Tools:       catalog.NewToolRegistry(stack.Memory, cfg.Memory.KnowledgeResults),
				StepTimeout: cfg.Workflow.StepTimeout,
				Observer:    workflow.LogObserver{},
			})
			if err != nil {
				return err
			}

			sess := session
			if sess == "" {
				sess = name
			}
			res, err := wf.Run(ctx, workflow.RunInput{
				Input:      input,
				SessionKey: memory.SessionKey(cfg.Workflow.UserID, sess),
				UserID:     cfg.Workflow.UserID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showOutputs {
				steps := make([]string, 0, len(res.Outputs))
				for step := range res.Outputs {
					steps = append(steps, step)
				}
				sort.Strings(steps)
				for _, step := range steps {
					fmt.Fprintf(out, "=== %s ===\n%s\n\n", step, res.Outputs[step])
				}
				fmt.Fprintln(out, "=== result ===")
			}
			fmt.Fprintln(out, res.Content)
			return nil
		},
	}
}

func init() {
	for _, name := range catalog.Names() {
		cmd := newWorkflowCmd(name)
		cmd.Flags().StringVarP(&session, "session", "s", "", "conversation name under the user (default: the workflow name)")
		cmd.Flags().BoolVar(&showOutputs, "steps", false, "print every step's output before the result")
		rootCmd.AddCommand(cmd)
	}
}
