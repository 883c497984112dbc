package saga

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Plan is an ordered sequence of steps, represented as a directed dependency
// graph. Callers build a Plan by appending steps one after another; each step
// depends on the one appended before it, so the graph is a single chain and
// execution is strictly sequential. Later steps consume the resource
// identifiers produced by earlier ones (an organization name before repository
// creation), which is why no parallel stages exist here.
type Plan struct {
	SagaName SagaName

	graph    *simple.DirectedGraph
	steps    map[int64]StepName
	registry *Registry
}

// PlanBuilder assembles a Plan.
type PlanBuilder struct {
	sagaName  SagaName
	graph     *simple.DirectedGraph
	steps     map[int64]StepName
	stepNames map[StepName]struct{}
	registry  *Registry
	lastAdded int64
}

// NewPlanBuilder creates a builder for a saga plan. Steps appended to the
// builder are auto-registered in registry.
func NewPlanBuilder(sagaName SagaName, registry *Registry) *PlanBuilder {
	return &PlanBuilder{
		sagaName:  sagaName,
		graph:     simple.NewDirectedGraph(),
		steps:     make(map[int64]StepName),
		stepNames: make(map[StepName]struct{}),
		registry:  registry,
		lastAdded: -1,
	}
}

// Append adds a step that depends on the previously appended step.
func (b *PlanBuilder) Append(step Step) error {
	name := step.Name()
	if _, exists := b.stepNames[name]; exists {
		return fmt.Errorf("step with name %q already exists in plan", name)
	}
	b.stepNames[name] = struct{}{}

	if _, err := b.registry.Get(name); err != nil {
		if regErr := b.registry.Register(step); regErr != nil {
			return fmt.Errorf("failed to register step %q: %w", name, regErr)
		}
	}

	node := b.graph.NewNode()
	b.graph.AddNode(node)
	b.steps[node.ID()] = name

	if b.lastAdded >= 0 {
		b.graph.SetEdge(simple.Edge{
			F: b.graph.Node(b.lastAdded),
			T: node,
		})
	}
	b.lastAdded = node.ID()

	return nil
}

// Build finalizes the plan.
func (b *PlanBuilder) Build() (*Plan, error) {
	if len(b.steps) == 0 {
		return nil, fmt.Errorf("plan %q has no steps", b.sagaName)
	}

	return &Plan{
		SagaName: b.sagaName,
		graph:    b.graph,
		steps:    b.steps,
		registry: b.registry,
	}, nil
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Plan) StepNames() ([]StepName, error) {
	order, err := p.executionOrder()
	if err != nil {
		return nil, err
	}

	names := make([]StepName, len(order))
	for i, id := range order {
		names[i] = p.steps[id]
	}
	return names, nil
}

// executionOrder returns node IDs in dependency order. A stabilized
// topological sort keeps the result deterministic; a cycle (impossible via the
// builder, possible if a plan is ever constructed by hand) is an error.
func (p *Plan) executionOrder() ([]int64, error) {
	sorted, err := topo.SortStabilized(p.graph, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].ID() < nodes[j].ID()
		})
	})
	if err != nil {
		return nil, fmt.Errorf("plan %q is not executable (cycle detected?): %w", p.SagaName, err)
	}

	order := make([]int64, len(sorted))
	for i, node := range sorted {
		order[i] = node.ID()
	}
	return order, nil
}
