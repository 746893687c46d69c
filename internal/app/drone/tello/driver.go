// Package tello flies a real DJI Tello through the gobot driver.
package tello

import (
	dji "gobot.io/x/gobot/platforms/dji/tello"
)

// Driver is the part of the gobot Tello driver the port needs. The stick
// calls take a speed from 0 to 100, not a distance.
type Driver interface {
	Start() error
	Halt() error
	TakeOff() error
	Land() error
	Hover()

	Forward(speed int) error
	Backward(speed int) error
	Left(speed int) error
	Right(speed int) error
	Up(speed int) error
	Down(speed int) error
	Clockwise(speed int) error
	CounterClockwise(speed int) error

	StartVideo() error
	On(name string, f func(s interface{})) error
}

var _ Driver = (*dji.Driver)(nil)

// NewDriver returns the gobot driver bound to the given local UDP port.
func NewDriver(udpPort string) Driver {
	return dji.NewDriver(udpPort)
}

// Event names published by the driver.
const (
	connectedEvent  = dji.ConnectedEvent
	flightDataEvent = dji.FlightDataEvent
	videoFrameEvent = dji.VideoFrameEvent
)
