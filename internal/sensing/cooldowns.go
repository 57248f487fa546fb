package sensing

import "sort"

// Cooldowns is a set of named countdown timers in seconds.
type Cooldowns struct {
	remaining map[string]float64
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{remaining: make(map[string]float64)}
}

// Start (re)arms a timer. A non-positive duration clears it.
func (c *Cooldowns) Start(name string, seconds float64) {
	if seconds <= 0 {
		delete(c.remaining, name)
		return
	}
	c.remaining[name] = seconds
}

// Ready reports whether the named timer is not running.
func (c *Cooldowns) Ready(name string) bool {
	return c.remaining[name] <= 0
}

// Remaining returns seconds left, 0 when ready.
func (c *Cooldowns) Remaining(name string) float64 {
	return c.remaining[name]
}

func (c *Cooldowns) Clear(name string) { delete(c.remaining, name) }

// Decay advances every timer by dt and drops expired ones.
func (c *Cooldowns) Decay(dt float64) {
	for name, left := range c.remaining {
		left -= dt
		if left <= 0 {
			delete(c.remaining, name)
			continue
		}
		c.remaining[name] = left
	}
}

// Active lists running timers, sorted by name.
func (c *Cooldowns) Active() []string {
	out := make([]string, 0, len(c.remaining))
	for name := range c.remaining {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
