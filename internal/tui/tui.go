// Package tui renders a full-screen follow view for a supervised process:
// a live header with identity and state, and the output stream as it arrives.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Paintersrp/runproc/internal/proc"
)

const (
	headerTitle  = "Process"
	outputTitle  = "Output"
	refreshEvery = 200 * time.Millisecond
)

// UI follows a single process until it reaches a terminal state or the user
// quits. Quitting kills the process.
type UI struct {
	app    *tview.Application
	header *tview.TextView
	output *tview.TextView
	proc   *proc.Process

	stopOnce sync.Once
	done     chan struct{}
}

// New constructs the follow view for the supplied process.
func New(p *proc.Process) *UI {
	app := tview.NewApplication()

	header := tview.NewTextView().SetDynamicColors(true)
	header.SetBorder(true).SetTitle(headerTitle)

	output := tview.NewTextView().SetWrap(false).SetScrollable(true)
	output.SetBorder(true).SetTitle(outputTitle)
	output.SetChangedFunc(func() {
		output.ScrollToEnd()
		app.Draw()
	})

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 4, 0, false).
		AddItem(output, 0, 1, true)

	ui := &UI{
		app:    app,
		header: header,
		output: output,
		proc:   p,
		done:   make(chan struct{}),
	}

	app.SetRoot(flex, true)
	app.SetInputCapture(ui.handleKey)

	return ui
}

// Follow runs the view for the process until it finishes or the user quits.
func Follow(ctx context.Context, p *proc.Process) error {
	return New(p).Run(ctx)
}

// Run starts the application loop and the refresh goroutine. It returns when
// the process reaches a terminal state, the user quits, or the context is
// cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		u.follow(ctx)
	}()

	err := u.app.Run()
	cancel()
	wg.Wait()
	return err
}

// Stop terminates the application loop. It is idempotent.
func (u *UI) Stop() {
	u.stopOnce.Do(func() {
		u.app.Stop()
		close(u.done)
	})
}

// Done returns a channel closed when the view stops.
func (u *UI) Done() <-chan struct{} {
	return u.done
}

func (u *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyCtrlC,
		event.Key() == tcell.KeyRune && event.Rune() == 'q':
		u.proc.Kill()
		u.Stop()
		return nil
	}
	return event
}

// follow drains output and refreshes the header until the process finishes.
// TextView writes are safe from this goroutine; the changed hook redraws.
func (u *UI) follow(ctx context.Context) {
	ticker := time.NewTicker(refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.Stop()
			return
		case <-ticker.C:
			u.drainOutput()
			u.refreshHeader()
			if u.proc.Finished() {
				// One final pass catches lines flushed between the drain
				// and the state check.
				u.drainOutput()
				u.refreshHeader()
				u.Stop()
				return
			}
		}
	}
}

func (u *UI) drainOutput() {
	for _, line := range u.proc.DrainOutput() {
		fmt.Fprintln(u.output, line)
	}
}

func (u *UI) refreshHeader() {
	u.header.SetText(headerText(u.proc.Info(), u.proc.State()))
	u.app.Draw()
}

// headerText renders the two header lines shown above the output stream.
func headerText(info proc.Info, state proc.State) string {
	pid := "-"
	if info.PID > 0 {
		pid = fmt.Sprintf("%d", info.PID)
	}
	return fmt.Sprintf("[yellow]%s[-]\npid %s  state [green]%s[-]  elapsed %s",
		tview.Escape(info.Command), pid, state, info.Duration.Round(100*time.Millisecond))
}
