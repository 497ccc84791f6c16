package headless

import "time"

// FrameInterval is the DMG frame period (70224 cycles at 4.194304 MHz).
const FrameInterval = time.Second * 70224 / 4194304

// Config contains settings that affect the headless runtime.
type Config struct {
	Clocked bool // deliver frames on an internal clock; otherwise only on StepFrame
	Trace   bool // log every delivered frame
}
