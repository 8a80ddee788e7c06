package main

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// translateKeyEvent maps a media-key input event onto a daemon Action.
// Returns (nil, false) for events the daemon has no use for (non-key events,
// releases, repeats, unmapped keys).
//
// Mapping:
//   - play/pause toggles between fade-out and fade-in
//   - stop halts the current fade where it is
//   - volume up/down request a full fade to 1.0 / 0.0 at default parameters
func translateKeyEvent(ev inputEvent) (Action, bool) {
	if ev.Type != EV_KEY || ev.Value != evValuePress {
		return nil, false
	}

	switch ev.Code {
	case KEY_PLAYPAUSE:
		return FadeToggle{}, true
	case KEY_STOPCD:
		return StopFade{}, true
	case KEY_VOLUMEUP:
		return FadeIn{}, true
	case KEY_VOLUMEDOWN:
		return FadeOut{}, true
	case KEY_MUTE:
		return SetGain{Gain: 0, Origin: "input"}, true
	default:
		return nil, false
	}
}
