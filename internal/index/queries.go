package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/matsen/cloudscope/internal/topology"
)

// Summary aggregates a snapshot.
type Summary struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	TotalCost  int            `json:"totalCost"`
	AvgCPU     float64        `json:"avgCpu"`
	AvgMem     float64        `json:"avgMem"`
	ByKind     map[string]int `json:"byKind"`
	ByRegion   map[string]int `json:"byRegion"`
	ByProtocol map[string]int `json:"byProtocol"`
}

// NodeDetail is a node record with its connection counts.
type NodeDetail struct {
	topology.Node
	InDegree  int `json:"inDegree"`
	OutDegree int `json:"outDegree"`
}

const selectNodeFields = `id, kind, region, cost, cpu, mem`

// Summary computes counts and averages over the indexed snapshot.
func (d *DB) Summary() (Summary, error) {
	var s Summary

	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(cost), 0), COALESCE(AVG(cpu), 0), COALESCE(AVG(mem), 0)
		FROM nodes
	`).Scan(&s.Nodes, &s.TotalCost, &s.AvgCPU, &s.AvgMem)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing nodes: %w", err)
	}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&s.Edges); err != nil {
		return Summary{}, fmt.Errorf("counting edges: %w", err)
	}

	if s.ByKind, err = d.countBy("nodes", "kind"); err != nil {
		return Summary{}, err
	}
	if s.ByRegion, err = d.countBy("nodes", "region"); err != nil {
		return Summary{}, err
	}
	if s.ByProtocol, err = d.countBy("edges", "protocol"); err != nil {
		return Summary{}, err
	}

	return s, nil
}

// countBy groups table by column. Both names are internal constants.
func (d *DB) countBy(table, column string) (map[string]int, error) {
	rows, err := d.db.Query(fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`, column, table, column))
	if err != nil {
		return nil, fmt.Errorf("counting %s by %s: %w", table, column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning %s count: %w", column, err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// TopByCost returns up to limit nodes ordered by descending cost. Ties keep
// generation order.
func (d *DB) TopByCost(limit int) ([]topology.Node, error) {
	rows, err := d.db.Query(`
		SELECT `+selectNodeFields+`
		FROM nodes
		ORDER BY cost DESC, idx ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top nodes: %w", err)
	}
	defer rows.Close()

	nodes := []topology.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Node retrieves a node and its degrees. Returns nil if the id is not indexed.
func (d *DB) Node(id string) (*NodeDetail, error) {
	n, err := scanNode(d.db.QueryRow(`SELECT `+selectNodeFields+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	detail := &NodeDetail{Node: n}
	err = d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM edges WHERE target_id = ?),
			(SELECT COUNT(*) FROM edges WHERE source_id = ?)
	`, id, id).Scan(&detail.InDegree, &detail.OutDegree)
	if err != nil {
		return nil, fmt.Errorf("counting degree of %s: %w", id, err)
	}
	return detail, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (topology.Node, error) {
	var n topology.Node
	var kind string
	err := row.Scan(&n.ID, &kind, &n.Region, &n.Cost, &n.Metrics.CPU, &n.Metrics.Mem)
	if errors.Is(err, sql.ErrNoRows) {
		return topology.Node{}, err
	}
	if err != nil {
		return topology.Node{}, fmt.Errorf("scanning node: %w", err)
	}
	n.Kind = topology.Kind(kind)
	return n, nil
}
