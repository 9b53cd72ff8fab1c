package assistance

import (
	"time"

	"github.com/mohitkumar/assist/model"
)

// Kind classifies an assistance process for clients.
type Kind string

const (
	KindReactive      Kind = "reactive_assistance"
	KindProactive     Kind = "proactive_assistance"
	KindCooperative   Kind = "cooperative_assistance"
	KindInformational Kind = "informational_feedback"
)

// Well-known operation keys.
const (
	OperationKeyInitiation = "initiation"
	OperationKeyAbortion   = "abortion"
)

// Process is one assistance type: a key, descriptive metadata and a
// definition binding operation keys to operations.
type Process interface {
	Key() string
	Kind() Kind
	Description() string
	Parameters() []model.Parameter
	Definition() *Definition
}

// Step binds an operation key to an operation inside a phase plan. A
// positive Delay makes the step reachable through a deferred invocation
// instead of an immediate trigger.
type Step struct {
	OperationKey string
	Operation    Operation
	Parameters   []model.Parameter
	Delay        time.Duration
}

// Phase groups consecutive steps.
type Phase struct {
	Parameters []model.Parameter
	Steps      []Step
}

// registeredOperation is a phase-plan entry: the operation plus its
// effective spec after registration-time injection.
type registeredOperation struct {
	op         Operation
	spec       Spec
	phase      int
	stepNumber int
}

// Definition holds the registered operations of one process type. It is
// assembled once at startup and read-only afterwards.
type Definition struct {
	phases     []Phase
	operations map[string]*registeredOperation
}

func NewDefinition() *Definition {
	return &Definition{
		operations: make(map[string]*registeredOperation),
	}
}

// RegisterPhases installs a phase plan. Every step's spec is copied and
// extended with the wiring to its successor: an immediate trigger when the
// next step has no delay, a deferred invocation otherwise. Every step but
// the very first additionally requires a running instance.
//
// A duplicate operation key is a configuration error and panics.
func (d *Definition) RegisterPhases(phases ...Phase) *Definition {
	stepNumber := 0
	for phaseIdx, phase := range phases {
		for stepIdx, step := range phase.Steps {
			stepNumber++
			if _, exists := d.operations[step.OperationKey]; exists {
				panic(DuplicateOperationError{OperationKey: step.OperationKey})
			}
			spec := step.Operation.Spec()
			if phaseIdx > 0 || stepIdx > 0 {
				spec.InProgressRequired = true
			}
			if next, ok := nextStep(phases, phaseIdx, stepIdx); ok {
				var wiring SubsequentOperation
				if next.Delay > 0 {
					wiring = Scheduled(next.OperationKey, next.Delay)
				} else {
					wiring = Triggered(next.OperationKey)
				}
				spec.Subsequents = append(append([]SubsequentOperation{}, spec.Subsequents...), wiring)
			}
			d.operations[step.OperationKey] = &registeredOperation{
				op:         step.Operation,
				spec:       spec,
				phase:      phaseIdx + 1,
				stepNumber: stepNumber,
			}
		}
	}
	d.phases = append(d.phases, phases...)
	return d
}

// RegisterOperation installs an operation outside any phase plan, e.g. an
// abortion handler. Its spec is taken as declared.
func (d *Definition) RegisterOperation(key string, op Operation) *Definition {
	if _, exists := d.operations[key]; exists {
		panic(DuplicateOperationError{OperationKey: key})
	}
	d.operations[key] = &registeredOperation{op: op, spec: op.Spec()}
	return d
}

func (d *Definition) operation(key string) (*registeredOperation, bool) {
	reg, ok := d.operations[key]
	return reg, ok
}

// HasOperation reports whether key is bound.
func (d *Definition) HasOperation(key string) bool {
	_, ok := d.operations[key]
	return ok
}

// StepNumber returns the global step position of a phase-registered
// operation, counting from 1 across all phases. Operations registered
// outside a phase plan have no step number.
func (d *Definition) StepNumber(key string) (int, bool) {
	reg, ok := d.operations[key]
	if !ok || reg.stepNumber == 0 {
		return 0, false
	}
	return reg.stepNumber, true
}

// PhaseNumber returns the 1-based phase of a phase-registered operation.
func (d *Definition) PhaseNumber(key string) (int, bool) {
	reg, ok := d.operations[key]
	if !ok || reg.phase == 0 {
		return 0, false
	}
	return reg.phase, true
}

func nextStep(phases []Phase, phaseIdx, stepIdx int) (Step, bool) {
	phase := phases[phaseIdx]
	if stepIdx+1 < len(phase.Steps) {
		return phase.Steps[stepIdx+1], true
	}
	for i := phaseIdx + 1; i < len(phases); i++ {
		if len(phases[i].Steps) > 0 {
			return phases[i].Steps[0], true
		}
	}
	return Step{}, false
}

// TypeDescription is the client-facing view of a process type.
type TypeDescription struct {
	Key         string            `json:"key"`
	Kind        Kind              `json:"kind"`
	Description string            `json:"description,omitempty"`
	Parameters  []model.Parameter `json:"parameters,omitempty"`
	Phases      []PhaseView       `json:"phases,omitempty"`
}

type PhaseView struct {
	Number     int               `json:"number"`
	Parameters []model.Parameter `json:"parameters,omitempty"`
	Steps      []StepView        `json:"steps"`
}

type StepView struct {
	OperationKey string            `json:"operation_key"`
	Parameters   []model.Parameter `json:"parameters,omitempty"`
	DelaySeconds int64             `json:"delay_seconds,omitempty"`
}

// Describe renders a process into its client-facing description.
func Describe(p Process) TypeDescription {
	desc := TypeDescription{
		Key:         p.Key(),
		Kind:        p.Kind(),
		Description: p.Description(),
		Parameters:  p.Parameters(),
	}
	for i, phase := range p.Definition().phases {
		view := PhaseView{Number: i + 1, Parameters: phase.Parameters}
		for _, step := range phase.Steps {
			view.Steps = append(view.Steps, StepView{
				OperationKey: step.OperationKey,
				Parameters:   step.Parameters,
				DelaySeconds: int64(step.Delay / time.Second),
			})
		}
		desc.Phases = append(desc.Phases, view)
	}
	return desc
}
