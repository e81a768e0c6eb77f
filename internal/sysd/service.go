package sysd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/adichiru/jenkins-auto-update/internal/domain/pkg"
	"github.com/adichiru/jenkins-auto-update/internal/logger"
)

const (
	// jobModeFail makes systemd refuse the request instead of queueing it
	// behind conflicting jobs.
	jobModeFail = "fail"

	// jobResultDone is the only job result treated as success.
	jobResultDone = "done"

	loadStateLoaded   = "loaded"
	activeStateActive = "active"
	activeStateFailed = "failed"
)

// errJobFailed is returned when a systemd job finishes with a result other
// than "done".
var errJobFailed = errors.New("systemd job did not complete")

// DBusAPI is the subset of the systemd D-Bus connection the controller uses.
// It exists so tests can substitute a stub connection.
type DBusAPI interface {
	Close()
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
}

// Controller starts, stops and inspects one systemd unit.
// Start and Stop block for a settle delay after the job completes so the
// unit state has converged before any follow-up check.
type Controller struct {
	// unitName is the managed unit, e.g. "jenkins.service".
	unitName string
	// settleDelay is the post-command wait.
	settleDelay time.Duration
	// newConn opens a D-Bus connection; overridable in tests.
	newConn func(ctx context.Context) (DBusAPI, error)
}

// NewController creates a controller for the named unit.
func NewController(unitName string, settleDelay time.Duration) *Controller {
	return &Controller{
		unitName:    unitName,
		settleDelay: settleDelay,
		newConn: func(ctx context.Context) (DBusAPI, error) {
			return dbus.NewWithContext(ctx)
		},
	}
}

// Status returns the typed health state of the unit.
func (c *Controller) Status(ctx context.Context) (pkg.HealthState, error) {
	conn, err := c.newConn(ctx)
	if err != nil {
		return pkg.HealthUnknown, fmt.Errorf("connect to dbus: %w", err)
	}

	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{c.unitName})
	if err != nil {
		return pkg.HealthUnknown, fmt.Errorf("query unit %s: %w", c.unitName, err)
	}

	for _, unit := range units {
		if unit.Name != c.unitName {
			continue
		}

		switch {
		case unit.LoadState == loadStateLoaded && unit.ActiveState == activeStateActive:
			return pkg.HealthRunning, nil
		case unit.ActiveState == activeStateFailed:
			return pkg.HealthFailed, nil
		case unit.LoadState != loadStateLoaded:
			return pkg.HealthUnknown, nil
		default:
			return pkg.HealthStopped, nil
		}
	}

	return pkg.HealthUnknown, nil
}

// Start requests unit start and waits for the job result plus the settle delay.
func (c *Controller) Start(ctx context.Context) error {
	return c.runJob(ctx, "start", func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, c.unitName, jobModeFail, ch)
	})
}

// Stop requests unit stop and waits for the job result plus the settle delay.
func (c *Controller) Stop(ctx context.Context) error {
	return c.runJob(ctx, "stop", func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, c.unitName, jobModeFail, ch)
	})
}

// runJob issues a unit job, waits for its result and then settles.
func (c *Controller) runJob(
	ctx context.Context,
	op string,
	issue func(conn DBusAPI, ch chan<- string) (int, error),
) error {
	conn, err := c.newConn(ctx)
	if err != nil {
		return fmt.Errorf("connect to dbus: %w", err)
	}

	defer conn.Close()

	statusCh := make(chan string, 1)
	if _, err = issue(conn, statusCh); err != nil {
		return fmt.Errorf("dbus %s request for %s: %w", op, c.unitName, err)
	}

	select {
	case status := <-statusCh:
		if status != jobResultDone {
			return fmt.Errorf("%s %s (job result %q): %w", op, c.unitName, status, errJobFailed)
		}
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", op, c.unitName, ctx.Err())
	}

	logger.DebugKV(ctx, "Unit job finished, settling", "unit", c.unitName, "op", op)

	return c.settle(ctx)
}

// settle blocks for the configured delay so the unit state converges.
func (c *Controller) settle(ctx context.Context) error {
	if c.settleDelay <= 0 {
		return nil
	}

	select {
	case <-time.After(c.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
