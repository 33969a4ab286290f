package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/orchestrate"
	"github.com/SwaroopMeher/deep-research-agent/internal/provider"
	"github.com/SwaroopMeher/deep-research-agent/internal/report"
	"github.com/SwaroopMeher/deep-research-agent/internal/session"
)

var (
	primaryQuestion string
	reportOut       string
)

// initCmd starts a new research session
var initCmd = &cobra.Command{
	Use:   "init <topic>",
	Short: "Start a new research session",
	Long: `Create a research session for a topic and print its ID.

Example:
  deepresearch init "Redis vs Memcached performance"
  deepresearch init "Rust async runtimes" --question "which runtime is fastest"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := session.NewStore(cfg.Sessions.Dir)
		sess, err := store.Create(args[0], primaryQuestion)
		if err != nil {
			return err
		}

		fmt.Println(sess.ID)
		return nil
	},
}

// iterateCmd runs a single iteration
var iterateCmd = &cobra.Command{
	Use:   "iterate <session-id>",
	Short: "Run one research iteration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := drive(args[0], false)
		if err != nil {
			return err
		}
		printOutcome(sess)
		return nil
	},
}

// runCmd loops iterations until the session halts
var runCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Run iterations until the session halts",
	Long: `Run the research loop until a halt condition fires: the primary
question is answered with high confidence, two consecutive iterations
change nothing, the iteration limit is reached, or the primary finding
is confirmed by three independent sources. Ctrl-C requests a graceful
halt; settled results are preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := drive(args[0], true)
		if err != nil {
			return err
		}
		printOutcome(sess)
		return nil
	},
}

// statusCmd reports session phase, findings, and health
var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show session status and health",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sess, err := session.NewStore(cfg.Sessions.Dir).Load(args[0])
		if err != nil {
			return err
		}

		fmt.Print(report.RenderStatus(report.BuildStatus(sess, "")))
		return nil
	},
}

// reportCmd renders the final report
var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Render the final research report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sess, err := session.NewStore(cfg.Sessions.Dir).Load(args[0])
		if err != nil {
			return err
		}

		rendered := report.RenderFinal(sess)
		if reportOut == "" {
			fmt.Print(rendered)
			return nil
		}
		if err := os.WriteFile(reportOut, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote report: %s\n", reportOut)
		}
		return nil
	},
}

// listCmd lists persisted sessions
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List research sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store := session.NewStore(cfg.Sessions.Dir)
		ids, err := store.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			sess, err := store.Load(id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", id, err)
				continue
			}
			fmt.Printf("%s  %-18s %2d iterations  %s\n", sess.ID, sess.Status, len(sess.Iterations), sess.Topic)
		}
		return nil
	},
}

// drive wires the orchestrator and runs one iteration or the full
// loop, translating Ctrl-C into a graceful stop request
func drive(sessionID string, loop bool) (*model.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	caps, err := provider.NewCapabilities(cfg)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(cfg.Sessions.Dir)
	orch := orchestrate.New(cfg, store, caps)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			fmt.Fprintln(os.Stderr, "Stop requested, finishing settled work...")
			orch.Stop()
		case <-done:
		}
	}()

	ctx := context.Background()
	if loop {
		return orch.Run(ctx, sessionID)
	}
	return orch.RunIteration(ctx, sessionID)
}

func printOutcome(sess *model.Session) {
	if n := len(sess.Iterations); n > 0 {
		fmt.Print(report.RenderIterationSummary(sess.Iterations[n-1]))
	}
	if sess.Status != model.StatusActive {
		fmt.Printf("Session %s: %s\n", sess.ID, sess.Status)
	}
}

func init() {
	initCmd.Flags().StringVar(&primaryQuestion, "question", "", "primary question (defaults to the topic)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "write the report to a file instead of stdout")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(iterateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(listCmd)
}
