package main

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tello-mission/internal/app/drone/audit"
	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
	"tello-mission/internal/app/drone/photo"
	"tello-mission/internal/app/drone/sim"
	"tello-mission/internal/app/drone/telemetry"
	"tello-mission/internal/app/drone/tello"
	"tello-mission/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (c *cli) planOptions() []mission.Option {
	var opts []mission.Option
	if c.capture {
		opts = append(opts, mission.WithCapture())
	}
	if c.cfg.Mission.MaxLeg > 0 {
		opts = append(opts, mission.WithMaxLeg(c.cfg.Mission.MaxLeg))
	}
	return opts
}

func (c *cli) printPlan(cmd *cobra.Command, build planBuilder) error {
	plan, err := build(c.planOptions()...)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func (c *cli) fly(cmd *cobra.Command, build planBuilder) error {
	plan, err := build(c.planOptions()...)
	if err != nil {
		return err
	}
	logger := c.logger.With(zap.String("pattern", string(plan.Pattern())))
	logger.Info("Mission planned",
		zap.Int("waypoints", plan.Len()),
		zap.Int("expected_photos", plan.ExpectedPhotos()),
		zap.Float64("path_cm", plan.PathLength()))

	photos, err := photo.NewStore(c.cfg.Photos.DirFor(string(plan.Pattern())))
	if err != nil {
		return err
	}
	reports, err := audit.NewWriter(c.cfg.Report.Dir)
	if err != nil {
		return err
	}
	port, closePort, err := c.openPort(photos)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePort(); err != nil {
			logger.Warn("Closing drone port failed", zap.Error(err))
		}
	}()

	opts := c.executorOptions()
	var dash *telemetry.Server
	if c.cfg.Telemetry.Enabled {
		dash = telemetry.NewServer(c.logger)
		opts = append(opts, command.WithObserver(dash))
	}
	exec := command.NewExecutor(c.logger, opts...)

	// The dashboard outlives an interrupt so the operator still sees the
	// emergency landing; it stops once the mission returns.
	ctx := cmd.Context()
	dashCtx, stopDash := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDash()

	var (
		g   errgroup.Group
		res *command.Result
	)
	if dash != nil {
		g.Go(func() error {
			if err := dash.Run(dashCtx, c.cfg.Telemetry.Addr); err != nil {
				logger.Error("Dashboard stopped", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopDash()
		var err error
		res, err = exec.Execute(ctx, plan, port)
		if err == nil && dash != nil {
			dash.SetResult(res)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	path, err := reports.Write(plan, res)
	if err != nil {
		logger.Error("Couldn't write mission report", zap.Error(err))
	}
	printSummary(cmd, plan, res, path)
	return res.Err()
}

func (c *cli) executorOptions() []command.Option {
	m := c.cfg.Mission
	opts := []command.Option{
		command.WithMinBattery(m.MinBattery),
		command.WithCriticalBattery(m.CriticalBattery),
		command.WithMaxPhotoFailures(m.MaxPhotoFailures),
	}
	if m.ReturnHome {
		opts = append(opts, command.WithReturnHome())
	}
	for name, h := range actionHandlers(c.logger) {
		opts = append(opts, command.WithActionHandler(name, h))
	}
	return opts
}

// openPort returns the configured backend and a function that releases it.
func (c *cli) openPort(photos *photo.Store) (command.Port, func() error, error) {
	d := c.cfg.Drone
	switch d.Backend {
	case config.BackendTello:
		p := tello.NewPort(tello.NewDriver(d.UDPPort), tello.Config{
			StickSpeed:      d.StickSpeed,
			CmPerSecond:     d.CmPerSecond,
			DegPerSecond:    d.DegPerSecond,
			CommandInterval: d.CommandInterval,
			SettleTime:      d.SettleTime,
			Timeout:         d.Timeout,
			LowBatteryWarn:  d.LowBatteryWarn,
		}, photos, c.logger)
		return p, p.Close, nil
	default:
		s := c.cfg.Simulator
		drone, err := sim.Open(sim.Config{
			StepDelay:        s.StepDelay,
			Battery:          s.Battery,
			DrainPerMetre:    s.DrainPerMetre,
			DrainPerRotation: s.DrainPerRotation,
			FailConnect:      s.FailConnect,
			FailTakeoff:      s.FailTakeoff,
			FailLand:         s.FailLand,
			FailMoveAt:       s.FailMoveAt,
			FailPhotoAt:      s.FailPhotoAt,
		}, photos, c.logger)
		if err != nil {
			return nil, nil, err
		}
		return drone, drone.Close, nil
	}
}

func printSummary(cmd *cobra.Command, plan *mission.Plan, res *command.Result, reportPath string) {
	out := cmd.OutOrStdout()
	status := "completed"
	if !res.Completed {
		status = "failed"
	}
	fmt.Fprintf(out, "mission %s %s: %d/%d waypoints, %d photos (%d failed) in %s\n",
		res.Pattern, status, res.WaypointsReached, plan.Len(),
		len(res.Photos), res.PhotoFailures(), res.Duration.Round(time.Millisecond))
	if res.Failure != nil {
		fmt.Fprintf(out, "  %v\n", res.Failure)
	}
	if reportPath != "" {
		fmt.Fprintf(out, "  report: %s\n", reportPath)
	}
}
