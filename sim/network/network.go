package network

import (
	"fmt"

	"github.com/qnet-sim/qnet-sim/sim"
)

// Network is the registry owning nodes and connections. Forwarding links
// between entities resolve through its lookup tables; nothing holds a
// back-pointer to its owner.
type Network struct {
	name  string
	ctx   *sim.Context
	nodes map[string]*Node
	names []string
	conns map[string]Connection
}

// NewNetwork creates an empty network.
func NewNetwork(ctx *sim.Context, name string) *Network {
	return &Network{
		name:  name,
		ctx:   ctx,
		nodes: make(map[string]*Node),
		conns: make(map[string]Connection),
	}
}

func (n *Network) Name() string { return n.name }

// AddNode registers a node under its name.
func (n *Network) AddNode(node *Node) {
	if _, ok := n.nodes[node.Name()]; ok {
		panic(fmt.Sprintf("network %s: node %q already registered", n.name, node.Name()))
	}
	n.nodes[node.Name()] = node
	n.names = append(n.names, node.Name())
}

// Node returns the named node, or nil.
func (n *Network) Node(name string) *Node { return n.nodes[name] }

// NodeNames returns the registered node names in insertion order.
func (n *Network) NodeNames() []string { return append([]string{}, n.names...) }

// AddConnection wires a connection between two node ports (created on
// demand) and registers it under a label.
func (n *Network) AddConnection(a, b *Node, conn Connection, label, portA, portB string) {
	key := connKey(a.Name(), b.Name(), label)
	if _, ok := n.conns[key]; ok {
		panic(fmt.Sprintf("network %s: connection %q already registered", n.name, key))
	}
	pa := a.Port(portA)
	if pa == nil {
		pa = a.AddPort(portA)
	}
	pb := b.Port(portB)
	if pb == nil {
		pb = b.AddPort(portB)
	}
	conn.Connect(pa, pb)
	n.conns[key] = conn
}

// Connection returns the labelled connection between two nodes, or nil.
func (n *Network) Connection(a, b *Node, label string) Connection {
	return n.conns[connKey(a.Name(), b.Name(), label)]
}

func connKey(a, b, label string) string {
	return fmt.Sprintf("%s|%s|%s", a, b, label)
}
