package viewer

import (
	"sync"

	"github.com/matsen/cloudscope/internal/topology"
)

// Selection is the host's record of the currently selected node.
// Pass its Set method to WithSelectHandler.
type Selection struct {
	mu   sync.RWMutex
	node *topology.Node
}

// Set records n as the selected node.
func (s *Selection) Set(n topology.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = &n
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node = nil
}

// Current returns the selected node, if any.
func (s *Selection) Current() (topology.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.node == nil {
		return topology.Node{}, false
	}
	return *s.node, true
}
