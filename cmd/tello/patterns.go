package main

import (
	"github.com/spf13/cobra"

	"tello-mission/internal/app/drone/mission"
)

// planBuilder produces the plan a pattern command was asked for.
type planBuilder func(opts ...mission.Option) (*mission.Plan, error)

// patternCommands returns one subcommand per mission pattern. Each hands
// its builder to run, so the same set serves flying and plan printing.
func patternCommands(run func(cmd *cobra.Command, build planBuilder) error) []*cobra.Command {
	var (
		side, sqHeight float64

		gridN                        int
		spacing, overlap, gridHeight float64

		radius, orbitHeight float64
		orbitPoints         int

		startRadius, growth, climb float64
		turns, perTurn             int
	)

	square := &cobra.Command{
		Use:   "square",
		Short: "Fly the four corners of a square.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(opts ...mission.Option) (*mission.Plan, error) {
				return mission.Square(side, sqHeight, opts...)
			})
		},
	}
	square.Flags().Float64Var(&side, "side", 100, "side length in cm")
	square.Flags().Float64Var(&sqHeight, "height", 100, "flight height in cm")

	grid := &cobra.Command{
		Use:   "grid",
		Short: "Sweep an n by n photo grid in a lawnmower path.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(opts ...mission.Option) (*mission.Plan, error) {
				return mission.Grid(gridN, spacing, overlap, gridHeight, opts...)
			})
		},
	}
	grid.Flags().IntVar(&gridN, "size", 3, "points per row and column")
	grid.Flags().Float64Var(&spacing, "spacing", 50, "nominal spacing in cm")
	grid.Flags().Float64Var(&overlap, "overlap", 0.3, "photo overlap fraction in [0,1)")
	grid.Flags().Float64Var(&gridHeight, "height", 120, "flight height in cm")

	orbital := &cobra.Command{
		Use:   "orbital",
		Short: "Circle the takeoff point photographing the centre.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(opts ...mission.Option) (*mission.Plan, error) {
				return mission.Orbital(radius, orbitPoints, orbitHeight, opts...)
			})
		},
	}
	orbital.Flags().Float64Var(&radius, "radius", 100, "orbit radius in cm")
	orbital.Flags().IntVar(&orbitPoints, "points", 8, "photo positions around the circle")
	orbital.Flags().Float64Var(&orbitHeight, "height", 100, "flight height in cm")

	spiral := &cobra.Command{
		Use:   "spiral",
		Short: "Climb along a widening spiral.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(opts ...mission.Option) (*mission.Plan, error) {
				return mission.Spiral(startRadius, growth, climb, turns, perTurn, opts...)
			})
		},
	}
	spiral.Flags().Float64Var(&startRadius, "start-radius", 50, "starting radius in cm")
	spiral.Flags().Float64Var(&growth, "growth", 10, "radius growth per point in cm")
	spiral.Flags().Float64Var(&climb, "climb", 10, "height gained per point in cm")
	spiral.Flags().IntVar(&turns, "turns", 2, "number of turns")
	spiral.Flags().IntVar(&perTurn, "points", 8, "points per turn")

	waypoints := &cobra.Command{
		Use:   "waypoints <file>",
		Short: "Fly a JSON waypoint list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(opts ...mission.Option) (*mission.Plan, error) {
				return mission.LoadWaypoints(args[0], opts...)
			})
		},
	}

	return []*cobra.Command{square, grid, orbital, spiral, waypoints}
}
