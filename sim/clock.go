package sim

// VTime is the simulated time. One unit of VTime elapses for every
// instruction that the simulator consumes.
type VTime uint32

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() VTime
}

// A Clock is the global instruction clock of a simulation. It is advanced
// exactly once before each instruction is interpreted.
type Clock struct {
	now VTime
}

// NewClock creates a clock that starts at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (c *Clock) Now() VTime {
	return c.now
}

// Tick advances the clock by one unit and returns the new time. The clock
// wraps around at 2^32 like a hardware counter.
func (c *Clock) Tick() VTime {
	c.now++
	return c.now
}
