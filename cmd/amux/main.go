// amux is the CLI/TUI front end for amuxd: it multiplexes PTY-backed AI
// coding assistant sessions across Git repositories and worktrees.
//
// amux will start amuxd automatically if it is not already running.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amux-dev/amux/internal/client"
	"github.com/amux-dev/amux/internal/proto"
)

var rawAttach bool

func main() {
	root := &cobra.Command{
		Use:          "amux",
		Short:        "Multiplex PTY-backed AI coding assistant sessions across Git worktrees",
		SilenceUsage: true,
		// Bare `amux`, with no subcommand, launches the TUI front end.
		RunE: runTUI,
	}

	root.AddCommand(
		newRepoCmd(),
		newSessionCmd(),
		newAttachCmd(),
		newListCmd(),
		newProvidersCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "amux:", err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	if err := client.EnsureDaemon(); err != nil {
		return nil, err
	}
	return client.New(client.SocketPath()), nil
}

func newRepoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "repo", Short: "Manage registered repositories"}

	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqAddRepo, Path: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Printf("added repo %s (%s)\n", resp.Repo.Name, resp.Repo.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqListRepos})
			if err != nil {
				return err
			}
			for _, r := range resp.Repos {
				fmt.Printf("%s  %-30s %s  (%d sessions)\n", r.ID, r.Name, r.Path, r.SessionCount)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <repo-id>",
		Short: "Unregister a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqRemoveRepo, RepoID: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func newSessionCmd() *cobra.Command {
	var provider, model, mode, prompt, resumeID string

	cmd := &cobra.Command{Use: "session", Short: "Manage sessions"}

	create := &cobra.Command{
		Use:   "create <repo-id> <branch>",
		Short: "Create a new session on a repo/branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{
				Type:     proto.ReqCreateSession,
				RepoID:   args[0],
				Branch:   args[1],
				Provider: provider,
				Model:    model,
				Mode:     mode,
				Prompt:   prompt,
				ResumeID: resumeID,
			})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Printf("created session %s (%s)\n", resp.Session.Name, resp.Session.ID)
			return nil
		},
	}
	create.Flags().StringVar(&provider, "provider", "", "AI provider (default: claude)")
	create.Flags().StringVar(&model, "model", "", "provider model")
	create.Flags().StringVar(&mode, "mode", "new", "session mode: new|resume|oneshot|shell")
	create.Flags().StringVar(&prompt, "prompt", "", "initial prompt (oneshot mode)")
	create.Flags().StringVar(&resumeID, "resume-id", "", "provider session id to resume")

	destroy := &cobra.Command{
		Use:   "destroy <session-id>",
		Short: "Destroy a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqDestroySession, SessionID: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop <session-id>",
		Short: "Stop a session's PTY without destroying its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqStopSession, SessionID: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <session-id> <name>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqRenameSession, SessionID: args[0], Name: args[1]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}

	cmd.AddCommand(create, destroy, stop, rename)
	return cmd
}

func newAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <session-id>",
		Short: "Attach your terminal to a session (detach: Ctrl-])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return client.RunRawAttach(c, args[0])
		},
	}
	cmd.Flags().BoolVar(&rawAttach, "raw", true, "raw terminal attach (the only mode currently implemented)")
	return cmd
}

func newListCmd() *cobra.Command {
	var repoID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqListSessions, RepoID: repoID})
			if err != nil {
				return err
			}
			for _, s := range resp.Sessions {
				fmt.Printf("%s  %-20s %-20s %s\n", s.ID, s.Name, s.Branch, s.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repoID, "repo", "", "filter by repo id")
	return cmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available AI providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Call(proto.Request{Type: proto.ReqListProviders})
			if err != nil {
				return err
			}
			for _, p := range resp.Providers {
				fmt.Printf("%-10s %-20s default=%s models=%v\n", p.Name, p.DisplayName, p.DefaultModel, p.Models)
			}
			return nil
		},
	}
}
