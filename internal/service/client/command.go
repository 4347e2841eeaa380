package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/config"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
	"github.com/oshokin/lookout-monitor/internal/logger"
	"github.com/oshokin/lookout-monitor/internal/service/common"
)

// Action selects what the control client asks the monitor to do.
type Action string

const (
	// ActionStatus prints the engine snapshot.
	ActionStatus Action = "status"
	// ActionRecenter requests a one-shot recenter.
	ActionRecenter Action = "recenter"
	// ActionActivity switches the manual activity override.
	ActionActivity Action = "activity"
)

// Options configures a single control-plane call.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// Address overrides the control address from config when specified.
	Address string

	// Action is the operation to perform.
	Action Action

	// Mode is the activity override for ActionActivity.
	Mode activity.Mode

	// Output receives human-readable results, stdout when nil.
	Output io.Writer
}

var errUnknownAction = errors.New("unknown action")

// Run connects to the monitor and performs the requested action once.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "lookout-ctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use address from options if provided, otherwise use config.
	address := cfg.Control.ListenAddress
	if opts.Address != "" {
		address = opts.Address
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(cfg.Control.Timeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Action {
	case ActionStatus:
		status, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}

		return writeStatus(out, status)
	case ActionRecenter:
		actor, err := common.DetectActor()
		if err != nil {
			return err
		}

		if err := client.Recenter(ctx, actor); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Recenter requested", "address", address, "actor", actor.String())

		return nil
	case ActionActivity:
		actor, err := common.DetectActor()
		if err != nil {
			return err
		}

		if err := client.SetActivity(ctx, actor, opts.Mode); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Activity override updated", "address", address, "mode", opts.Mode, "actor", actor.String())

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownAction, opts.Action)
	}
}

// writeStatus renders the engine snapshot as a header and one row per alarm.
func writeStatus(out io.Writer, status *lookout.Status) error {
	if status == nil {
		_, err := fmt.Fprintln(out, "<nil status>")

		return err
	}

	state := "inactive"
	if status.Active {
		state = "active"
	}

	_, _ = fmt.Fprintf(out, "engine: %s, %s, uptime %s\n",
		state, status.ActivityMode, time.Duration(status.EngineMs)*time.Millisecond)
	_, _ = fmt.Fprintf(out, "center: yaw %.1f, pitch %.1f (%s)\n",
		status.CenterYaw, status.CenterPitch, status.BaselineMode)
	_, _ = fmt.Fprintf(out, "relative: yaw %.1f, pitch %.1f\n\n",
		status.RelativeYaw, status.RelativePitch)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ALARM\tIDLE\tSEEN\tWARNING\tSILENCED\tVOLUME")

	for _, a := range status.Alarms {
		name := a.Name
		if a.Widest {
			name += "*"
		}

		if !a.Enabled {
			_, _ = fmt.Fprintf(w, "%s\tdisabled\t-\t-\t-\t-\n", name)

			continue
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%d\n",
			name,
			time.Duration(a.IdleMs)*time.Millisecond,
			seenFlags(a),
			a.WarningActive,
			time.Duration(a.SilencedForMs)*time.Millisecond,
			a.AppliedVolume,
		)
	}

	return w.Flush()
}

// seenFlags renders the directional flags as LRUD with dashes for unseen.
func seenFlags(a lookout.AlarmStatus) string {
	flags := []byte("----")

	for i, seen := range []bool{a.SeenLeft, a.SeenRight, a.SeenUp, a.SeenDown} {
		if seen {
			flags[i] = "LRUD"[i]
		}
	}

	return string(flags)
}
