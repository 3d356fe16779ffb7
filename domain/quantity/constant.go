package quantity

import (
	"phaengine/domain/core"
	"phaengine/domain/unit"
)

// Constant is a named, shared value. Constant-reference quantities read it;
// editing it is the only way to change what they show.
type Constant struct {
	ID       core.ConstantID
	Name     string
	Quantity *Quantity
}

// NewConstant creates a constant backed by a user-entered quantity.
func (env *Env) NewConstant(name string, u *unit.Unit) *Constant {
	return &Constant{
		ID:       core.NewConstantID(),
		Name:     name,
		Quantity: env.NewUserEntered(name, u),
	}
}

// Set stores the constant's value for a scenario.
func (c *Constant) Set(scenario core.ReceptorID, x float64) error {
	return c.Quantity.SetValue(scenario, x)
}
