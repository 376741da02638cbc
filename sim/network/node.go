package network

import (
	"fmt"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/qproc"
)

// Node is a locality entity: all operations on it are local, and protocols
// running on the same node share one signal scope. A node owns its ports
// and optionally a processor; ownership forms a tree, with lookups by name
// instead of back-pointers.
type Node struct {
	name      string
	entity    sim.EntityID
	ctx       *sim.Context
	processor *qproc.Processor

	ports     map[string]*Port
	portNames []string
}

// NewNode creates a node, optionally owning a processor.
func NewNode(ctx *sim.Context, name string, processor *qproc.Processor) *Node {
	return &Node{
		name:      name,
		entity:    ctx.Kernel.NewEntity(),
		ctx:       ctx,
		processor: processor,
		ports:     make(map[string]*Port),
	}
}

func (n *Node) Name() string                { return n.name }
func (n *Node) Entity() sim.EntityID        { return n.entity }
func (n *Node) Processor() *qproc.Processor { return n.processor }

// AddPort creates a named port on the node.
func (n *Node) AddPort(name string) *Port {
	if _, ok := n.ports[name]; ok {
		panic(fmt.Sprintf("node %s: port %q already exists", n.name, name))
	}
	p := NewPort(n.ctx, n.name+"."+name)
	n.ports[name] = p
	n.portNames = append(n.portNames, name)
	return p
}

// Port returns the named port, or nil.
func (n *Node) Port(name string) *Port { return n.ports[name] }

// emitOutlet adapts a node port into a processor EmitSink: a completed
// Emit instruction transmits a photon message referencing the storage
// position it stays entangled with.
type emitOutlet struct {
	port *Port
}

func (s emitOutlet) Emit(position int) {
	s.port.TX(&Message{Header: HeaderPhoton, Items: []any{position}})
}

// BindEmission routes the processor's emissions out through the given node
// port.
func (n *Node) BindEmission(portName string) {
	port := n.Port(portName)
	if port == nil {
		panic(fmt.Sprintf("node %s: no port %q to bind emission to", n.name, portName))
	}
	n.processor.SetEmitSink(emitOutlet{port: port})
}
