// Package gitcmd builds and spawns git processes for a single repository
// checkout. It is the only package that knows how a git invocation looks;
// the runner sees it through the runner.Command interface.
package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/githerd/githerd/internal/runner"
)

// insteadOf rewrites handed to git -c. Injected before any other argument
// so they apply to the remote resolution of the actual subcommand.
const (
	sshRewrite   = "url.git@github.com:.insteadOf=https://github.com/"
	httpsRewrite = "url.https://github.com/.insteadOf=git@github.com:"
)

// Command is one git invocation against one checkout. Stateless after
// construction and safe to Start from any goroutine.
type Command struct {
	Dir  string   // checkout directory, passed via git -C
	Args []string // subcommand and its arguments
}

func New(dir string, args ...string) *Command {
	return &Command{Dir: dir, Args: args}
}

func schemeArgs(scheme runner.Scheme) []string {
	switch scheme {
	case runner.SchemeSSH:
		return []string{"-c", sshRewrite}
	case runner.SchemeHTTPS:
		return []string{"-c", httpsRewrite}
	default:
		return nil
	}
}

func (c *Command) argv(scheme runner.Scheme) []string {
	args := append([]string{}, schemeArgs(scheme)...)
	args = append(args, "-C", c.Dir)
	return append(args, c.Args...)
}

// Render returns the invocation as dry-run displays it. It must describe
// exactly the process Start would execute.
func (c *Command) Render(scheme runner.Scheme) string {
	var b strings.Builder
	b.WriteString("git ")
	if sa := schemeArgs(scheme); sa != nil {
		b.WriteString(sa[0])
		b.WriteString(` "`)
		b.WriteString(sa[1])
		b.WriteString(`" `)
	}
	b.WriteString("-C ")
	b.WriteString(c.Dir)
	b.WriteString(" ")
	b.WriteString(strings.Join(c.Args, " "))
	return b.String()
}

// Start launches the git process without waiting for it. Stdin comes from
// the null device and GIT_TERMINAL_PROMPT is disabled, so a credential
// prompt can never stall a run: git fails instead of asking.
func (c *Command) Start(ctx context.Context, scheme runner.Scheme) (runner.Handle, error) {
	cmd := exec.CommandContext(ctx, "git", c.argv(scheme)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	p := &process{done: make(chan struct{})}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// process implements runner.Handle on top of exec.Cmd. The monitoring
// goroutine started in Start owns waitErr until done is closed; after that
// the buffers and waitErr are immutable.
type process struct {
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan struct{}
	waitErr error

	waitOnce sync.Once
	outcome  runner.Outcome
}

func (p *process) Poll() (bool, error) {
	select {
	case <-p.done:
		return true, nil
	default:
		return false, nil
	}
}

// Wait blocks until the process exited and both pipes are drained, then
// snapshots the outcome. A non-zero exit status is reported as data.
func (p *process) Wait() runner.Outcome {
	<-p.done
	p.waitOnce.Do(func() {
		p.outcome = runner.Outcome{
			Stdout: p.stdout.Bytes(),
			Stderr: p.stderr.Bytes(),
		}
		var exitErr *exec.ExitError
		switch {
		case p.waitErr == nil:
		case errors.As(p.waitErr, &exitErr):
			p.outcome.ExitCode = exitErr.ExitCode()
		default:
			p.outcome.Err = p.waitErr
		}
	})
	return p.outcome
}
