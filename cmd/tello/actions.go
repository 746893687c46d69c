package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tello-mission/internal/app/drone/command"
	"tello-mission/internal/app/drone/mission"
)

const pauseFor = 3 * time.Second

// actionHandlers are the custom actions a waypoint file may name.
func actionHandlers(logger *zap.Logger) map[mission.Action]command.ActionHandler {
	return map[mission.Action]command.ActionHandler{
		"log_battery": func(_ context.Context, port command.Port, index int, label string) error {
			level, err := port.Battery()
			if err != nil {
				return err
			}
			logger.Info("Battery at waypoint", zap.Int("index", index), zap.String("label", label), zap.Int("battery", level))
			return nil
		},
		"pause": func(ctx context.Context, _ command.Port, _ int, _ string) error {
			t := time.NewTimer(pauseFor)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}
