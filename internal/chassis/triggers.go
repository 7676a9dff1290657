package chassis

import "drift-sim/internal/track"

// SetTriggers replaces the trigger volumes. Triggers the body already stands
// in do not fire until it leaves and comes back.
func (c *Chassis) SetTriggers(triggers []track.Trigger) {
	c.triggers = triggers
	c.inside = make([]bool, len(triggers))
	plan := track.ToPlan(c.pos)
	for i, t := range triggers {
		c.inside[i] = t.Contains(plan)
	}
}

func (c *Chassis) checkTriggers() {
	if len(c.triggers) == 0 {
		return
	}
	plan := track.ToPlan(c.pos)
	for i, t := range c.triggers {
		in := t.Contains(plan)
		if in && !c.inside[i] && c.OnTriggerEnter != nil {
			c.OnTriggerEnter(t.ID)
		}
		c.inside[i] = in
	}
}
