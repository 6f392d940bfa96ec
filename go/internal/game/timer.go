package game

import (
	"context"

	"github.com/jonboulle/clockwork"
)

// pendingTick is the one scheduled countdown tick of a session.
type pendingTick struct {
	timer  clockwork.Timer
	cancel context.CancelFunc
}

// stop cancels the tick's waiter goroutine and the timer itself.
func (p *pendingTick) stop() {
	p.cancel()
	stopAndDrainTimer(p.timer)
}

// stopAndDrainTimer stops a timer and drains its channel so a fired value
// is not left behind.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
