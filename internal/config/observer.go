package config

import "fmt"

// Waypoint is a column the observer walks to.
type Waypoint struct {
	X float64 `yaml:"x" toml:"x"`
	Z float64 `yaml:"z" toml:"z"`
}

// Observer describes the scripted path the headless driver walks. The
// observer follows the terrain surface between waypoints.
type Observer struct {
	// blocks per second
	Speed     float64    `yaml:"speed" toml:"speed"`
	Loop      bool       `yaml:"loop" toml:"loop"`
	Waypoints []Waypoint `yaml:"waypoints" toml:"waypoints"`
}

func defaultObserver() Observer {
	return Observer{
		Speed: 4.3,
		Loop:  true,
		Waypoints: []Waypoint{
			{X: 0, Z: 0},
			{X: 256, Z: 0},
			{X: 256, Z: 256},
			{X: 0, Z: 256},
		},
	}
}

func (o Observer) validate() error {
	if o.Speed < 0 {
		return fmt.Errorf("%w: observer.speed %v is negative", ErrInvalid, o.Speed)
	}
	return nil
}
