package audio

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/safepath/buddy/internal/log"
)

// Speaker plays clips through a local player process, one process per clip.
// The default player is ffplay reading the clip from stdin.
type Speaker struct {
	// Command and Args override the player binary. The clip bytes are
	// written to the process's stdin.
	Command string
	Args    []string

	mu     sync.Mutex
	closed bool
}

var _ Sink = (*Speaker)(nil)

// NewSpeaker creates a sink backed by the default local player.
func NewSpeaker() *Speaker {
	return &Speaker{
		Command: "ffplay",
		Args:    []string{"-autoexit", "-nodisp", "-loglevel", "quiet", "-"},
	}
}

// Begin spawns the player and feeds it the clip.
func (s *Speaker) Begin(clip Clip) (Playback, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.mu.Unlock()

	cmd := exec.Command(s.Command, s.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player: %w", err)
	}

	pb := &processPlayback{cmd: cmd, done: make(chan struct{})}

	go func() {
		if _, err := stdin.Write(clip.Data); err != nil {
			log.Debug("player stdin write interrupted", "error", err)
		}
		stdin.Close()
	}()

	go func() {
		cmd.Wait()
		pb.finish()
	}()

	return pb, nil
}

// Close marks the sink unusable. In-flight playbacks run to completion.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// processPlayback tracks one player process.
type processPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func (p *processPlayback) Done() <-chan struct{} {
	return p.done
}

func (p *processPlayback) Stop() error {
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.finish()
	return nil
}

func (p *processPlayback) finish() {
	p.once.Do(func() {
		close(p.done)
	})
}
