package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/block/flight-control/internal/services"
	"github.com/block/flight-control/internal/types"
)

// Agent executes a run inside a working directory and emits (stream, line)
// pairs. The underlying process is a black box; only its line output and
// exit code matter here.
type Agent interface {
	Run(ctx context.Context, job *services.DispatchEnvelope, workDir string, emit func(stream, line string)) (exitCode int, err error)
}

// CommandAgent shells out to the agent binary named by agent_type (the
// default binding is goose), passing the task prompt and merging env_vars
// and decrypted credentials into the subprocess environment.
type CommandAgent struct{}

func NewCommandAgent() *CommandAgent {
	return &CommandAgent{}
}

func (a *CommandAgent) Run(ctx context.Context, job *services.DispatchEnvelope, workDir string, emit func(stream, line string)) (int, error) {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := job.AgentType
	if binary == "" {
		binary = "goose"
	}
	cmd := exec.CommandContext(runCtx, binary, "run", "--text", job.TaskPrompt)
	cmd.Dir = workDir
	cmd.Env = buildEnv(job)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, err
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start agent %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit(types.LogStreamStdout, scanner.Text())
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit(types.LogStreamStderr, scanner.Text())
		}
	}()
	wg.Wait()

	err = cmd.Wait()
	if runCtx.Err() == context.DeadlineExceeded {
		return -1, fmt.Errorf("agent timed out after %s", timeout)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

func buildEnv(job *services.DispatchEnvelope) []string {
	env := os.Environ()
	for k, v := range job.EnvVars {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}
	for envVar, plaintext := range job.Credentials {
		env = append(env, fmt.Sprintf("%s=%s", envVar, plaintext))
	}
	return env
}
