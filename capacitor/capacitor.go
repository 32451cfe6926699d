// Package capacitor models the continuous analog energy store that
// powers the simulated processor: a capacitor of fixed capacitance,
// charged by an ambient harvest source and discharged by instruction
// execution and checkpoint/restore penalties.
package capacitor

import "math"

// Config holds the physical parameters of a capacitor, loaded the way
// the rest of this simulator's scheme parameters are: a plain struct
// with a documented default constructor.
type Config struct {
	// Capacitance in farads.
	Capacitance float64 `json:"capacitance_farads"`
	// VMax is the maximum voltage the capacitor can hold, in volts.
	VMax float64 `json:"v_max_volts"`
}

// DefaultConfig returns parameters typical of the small supercapacitors
// used in energy-harvesting sensor nodes (the scale these schemes were
// originally evaluated against): 100uF at 3.3V.
func DefaultConfig() Config {
	return Config{
		Capacitance: 100e-6,
		VMax:        3.3,
	}
}

// Capacitor is a continuous-charge energy store. Energy is derived
// from voltage as E = 1/2 * C * v^2; there is no discrete internal
// time step — callers drive it with Harvest(p, dt) and Consume(dE).
type Capacitor struct {
	capacitance float64
	vMax        float64
	energyMax   float64
	voltage     float64
}

// New returns a fully charged Capacitor with the given configuration.
func New(cfg Config) *Capacitor {
	c := &Capacitor{
		capacitance: cfg.Capacitance,
		vMax:        cfg.VMax,
		energyMax:   0.5 * cfg.Capacitance * cfg.VMax * cfg.VMax,
	}
	c.voltage = cfg.VMax
	return c
}

// NewEmpty returns a Capacitor with the given configuration and zero
// stored energy, used to model a cold-start device.
func NewEmpty(cfg Config) *Capacitor {
	return &Capacitor{
		capacitance: cfg.Capacitance,
		vMax:        cfg.VMax,
		energyMax:   0.5 * cfg.Capacitance * cfg.VMax * cfg.VMax,
	}
}

// EnergyStored returns the energy currently stored, in joules.
func (c *Capacitor) EnergyStored() float64 {
	return 0.5 * c.capacitance * c.voltage * c.voltage
}

// EnergyMax returns the capacitor's maximum storable energy, in joules.
func (c *Capacitor) EnergyMax() float64 {
	return c.energyMax
}

// Voltage returns the capacitor's current voltage.
func (c *Capacitor) Voltage() float64 {
	return c.voltage
}

// Consume reduces stored energy by deltaE joules. If deltaE exceeds
// stored energy, voltage saturates at 0 — negative charge is
// impossible.
func (c *Capacitor) Consume(deltaE float64) {
	remaining := c.EnergyStored() - deltaE
	if remaining <= 0 {
		c.voltage = 0
		return
	}
	c.voltage = voltageFromEnergy(remaining, c.capacitance)
}

// Harvest adds pSource*deltaT joules of energy, integrated from a
// constant source power over the interval, clamping at the capacitor's
// maximum energy.
func (c *Capacitor) Harvest(pSource, deltaT float64) {
	gained := pSource * deltaT
	energy := c.EnergyStored() + gained
	if energy >= c.energyMax {
		c.voltage = c.vMax
		return
	}
	c.voltage = voltageFromEnergy(energy, c.capacitance)
}

func voltageFromEnergy(energy, capacitance float64) float64 {
	if capacitance <= 0 || energy <= 0 {
		return 0
	}
	return math.Sqrt(2 * energy / capacitance)
}
