// Package problem defines the closed set of named non-value results that flow
// through numeric call paths in place of errors.
package problem

import (
	"fmt"
	"sort"
)

// Sentinel names.
const (
	NameUndefined          = "Undefined"
	NameCircular           = "Circular"
	NameWrongOperandCount  = "WrongOperandCount"
	NameDivisionByZero     = "DivisionByZero"
	NameBrokenLink         = "BrokenLink"
	NameBug                = "Bug"
	NameNoConversionFactor = "NoConversionFactor"
	NameUnitMismatch       = "UnitMismatch"
	NameNoCalculator       = "NoCalculator"
	NameOutOfTable         = "OutOfTable"
)

// Sentinel is an immutable "no valid number" marker. Compare by identity or
// by Name, never numerically.
type Sentinel struct {
	Name        string
	Explanation string
	// Event optionally points back at whatever produced the problem.
	Event any
}

func (s *Sentinel) String() string {
	if s == nil {
		return "<ok>"
	}
	return s.Name
}

// Is reports whether s carries the named problem.
func (s *Sentinel) Is(name string) bool {
	return s != nil && s.Name == name
}

// WithEvent returns a copy of s bound to an originating event.
func (s *Sentinel) WithEvent(event any) *Sentinel {
	cp := *s
	cp.Event = event
	return &cp
}

// Set is the registry of sentinels built once at startup.
type Set struct {
	byName map[string]*Sentinel

	Undefined          *Sentinel
	Circular           *Sentinel
	WrongOperandCount  *Sentinel
	DivisionByZero     *Sentinel
	BrokenLink         *Sentinel
	Bug                *Sentinel
	NoConversionFactor *Sentinel
	UnitMismatch       *Sentinel
	NoCalculator       *Sentinel
	OutOfTable         *Sentinel
}

// BuildSet constructs the standard sentinel set.
func BuildSet() *Set {
	s := &Set{byName: make(map[string]*Sentinel)}
	s.Undefined = s.add(NameUndefined, "Value is not defined")
	s.Circular = s.add(NameCircular, "Calculation refers back to itself")
	s.WrongOperandCount = s.add(NameWrongOperandCount, "Wrong number of inputs for this operation")
	s.DivisionByZero = s.add(NameDivisionByZero, "Division by zero")
	s.BrokenLink = s.add(NameBrokenLink, "Linked item no longer exists")
	s.Bug = s.add(NameBug, "Internal error; please report")
	s.NoConversionFactor = s.add(NameNoConversionFactor, "Units cannot be converted")
	s.UnitMismatch = s.add(NameUnitMismatch, "Inputs have incompatible units")
	s.NoCalculator = s.add(NameNoCalculator, "No calculation is available for this value")
	s.OutOfTable = s.add(NameOutOfTable, "Value is outside the lookup table")
	return s
}

func (s *Set) add(name, explanation string) *Sentinel {
	p := &Sentinel{Name: name, Explanation: explanation}
	s.byName[name] = p
	return p
}

// Lookup finds a sentinel by internal name.
func (s *Set) Lookup(name string) (*Sentinel, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Register adds a domain-specific sentinel, for example an incompatible gate
// input problem defined by a host.
func (s *Set) Register(name, explanation string) (*Sentinel, error) {
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("problem %s already registered", name)
	}
	return s.add(name, explanation), nil
}

// Names lists all registered sentinel names, sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
