package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_MUTE       = 113
	KEY_VOLUMEDOWN = 114
	KEY_VOLUMEUP   = 115
	KEY_PLAYPAUSE  = 164
	KEY_STOPCD     = 166
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Fade engine defaults
const (
	defaultUpdateHz    = 30.0 // Gain alterations per second
	defaultDurationSec = 3.0  // Default fade duration (seconds)
	defaultVelocity    = 2.0  // Default curve velocity (unitless)

	defaultReadTimeoutMS = 500 // Default timeout for reading websocket responses (ms)

	safeDefaultGain = 0.0 // Gain assumed when the server cannot be queried
)
