package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harun/tabkeeper/internal/tracing"
	"github.com/harun/tabkeeper/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxLineSize matches the longest line a session script may carry.
const maxLineSize = 1024 * 1024

var _ session.Executor = (*Runner)(nil)

// Runner replays script files through a Registry.
type Runner struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewRunner returns a runner executing lines with registry.
func NewRunner(registry *Registry) *Runner {
	return &Runner{
		registry: registry,
		logger:   log.With().Str("component", "script-runner").Logger(),
	}
}

// Execute runs every line of the script at path. Blank lines and lines
// starting with a double quote are skipped. The first failing line stops
// the replay and is reported as "path:line: err".
func (r *Runner) Execute(ctx context.Context, path string) error {
	file, err := os.Open(session.ExpandHome(path))
	if err != nil {
		return err
	}
	defer file.Close()

	return r.Run(ctx, path, file)
}

// Run executes the script read from rd; name is used in error messages.
func (r *Runner) Run(ctx context.Context, name string, rd io.Reader) error {
	if tracing.GetSource(ctx) == "" {
		ctx = tracing.WithSource(ctx, "script")
	}
	logger := tracing.LoggerFromContext(ctx, r.logger).With().Str("script", name).Logger()

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	executed := 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNum, err)
		}

		line := strings.TrimLeft(strings.TrimSpace(scanner.Text()), ":")
		if line == "" || strings.HasPrefix(line, `"`) {
			continue
		}

		if err := r.registry.Execute(ctx, line); err != nil {
			logger.Debug().Int("line", lineNum).Err(err).Msg("Script line failed")
			return fmt.Errorf("%s:%d: %w", name, lineNum, err)
		}
		executed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s:%d: %w", name, lineNum+1, err)
	}

	logger.Debug().Int("commands", executed).Msg("Script executed")
	return nil
}
