package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/graph"
)

// Module is a stored graph node
type Module struct {
	ID              int64    `json:"id"`
	Source          string   `json:"source"`
	Terminal        bool     `json:"terminal"`
	Followable      bool     `json:"followable"`
	CoreModule      bool     `json:"coreModule"`
	CouldNotResolve bool     `json:"couldNotResolve"`
	DependencyTypes []string `json:"dependencyTypes,omitempty"`

	// Distance from the queried module; set by upstream/downstream queries
	// with a depth limit.
	Depth int `json:"depth,omitempty"`
}

// Dependency is a stored edge between two modules
type Dependency struct {
	ID              int64           `json:"id"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Module          string          `json:"module,omitempty"`
	Followable      bool            `json:"followable"`
	CoreModule      bool            `json:"coreModule"`
	CouldNotResolve bool            `json:"couldNotResolve"`
	DependencyTypes []string        `json:"dependencyTypes,omitempty"`
	Circular        *bool           `json:"circular,omitempty"`
	Valid           *bool           `json:"valid,omitempty"`
	Rules           []graph.RuleRef `json:"rules,omitempty"`
}

// Stats summarizes the database contents
type Stats struct {
	Modules      int64     `json:"modules"`
	Dependencies int64     `json:"dependencies"`
	Circular     int64     `json:"circular"`
	Violations   int64     `json:"violations"`
	LastCruise   time.Time `json:"lastCruise,omitempty"`
}

// SaveResult replaces the database contents with res in one transaction.
func (db *DB) SaveResult(res *cruise.Result) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM dependencies; DELETE FROM modules;"); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	insertModule, err := tx.Prepare(
		`INSERT INTO modules (source, terminal, followable, core_module, could_not_resolve, dependency_types)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertModule.Close()

	ids := make(map[string]int64, len(res.Dependencies))
	for _, n := range res.Dependencies {
		var c graph.Classification
		if n.Classification != nil {
			c = *n.Classification
		}
		r, err := insertModule.Exec(n.Source, boolInt(n.IsTerminal()), boolInt(c.Followable),
			boolInt(c.CoreModule), boolInt(c.CouldNotResolve), encodeJSON(c.DependencyTypes))
		if err != nil {
			return fmt.Errorf("insert module %s: %w", n.Source, err)
		}
		if ids[n.Source], err = r.LastInsertId(); err != nil {
			return err
		}
	}

	insertDependency, err := tx.Prepare(
		`INSERT INTO dependencies (from_id, to_id, module, followable, core_module, could_not_resolve,
		                           dependency_types, circular, valid, rules)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insertDependency.Close()

	for _, n := range res.Dependencies {
		for _, e := range n.Dependencies {
			to, ok := ids[e.Resolved]
			if !ok {
				return fmt.Errorf("dependency %s -> %s: %w", n.Source, e.Resolved, ErrNotFound)
			}
			_, err := insertDependency.Exec(ids[n.Source], to, e.Module, boolInt(e.Followable),
				boolInt(e.CoreModule), boolInt(e.CouldNotResolve), encodeJSON(e.DependencyTypes),
				nullBool(e.Circular), nullBool(e.Valid), encodeJSON(e.Rules))
			if err != nil {
				return fmt.Errorf("insert dependency %s -> %s: %w", n.Source, e.Resolved, err)
			}
		}
	}

	if _, err := tx.Exec(`INSERT INTO cruises (created_at, summary) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), encodeJSON(res.Summary)); err != nil {
		return fmt.Errorf("record cruise: %w", err)
	}

	return tx.Commit()
}

const moduleColumns = `m.id, m.source, m.terminal, m.followable, m.core_module, m.could_not_resolve, m.dependency_types`

const dependencyQuery = `
	SELECT d.id, f.source, t.source, d.module, d.followable, d.core_module, d.could_not_resolve,
	       d.dependency_types, d.circular, d.valid, d.rules
	FROM dependencies d
	JOIN modules f ON f.id = d.from_id
	JOIN modules t ON t.id = d.to_id`

// GetModule returns the module with the given source
func (db *DB) GetModule(source string) (*Module, error) {
	row := db.conn.QueryRow(`SELECT `+moduleColumns+` FROM modules m WHERE m.source = ?`, source)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", source, ErrNotFound)
	}
	return m, err
}

// FindModules returns modules whose source contains pattern.
// Results are sorted by match quality: exact match > ends with pattern > contains pattern
func (db *DB) FindModules(pattern string) ([]*Module, error) {
	rows, err := db.conn.Query(
		`SELECT `+moduleColumns+` FROM modules m
		 WHERE m.source LIKE ?
		 ORDER BY
			CASE
				WHEN m.source = ? THEN 0
				WHEN m.source LIKE '%' || ? THEN 1
				ELSE 2
			END,
			length(m.source) ASC, m.source ASC`,
		"%"+pattern+"%", pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanModules(rows)
}

// GetDependencies returns the outgoing dependencies of source in extraction order
func (db *DB) GetDependencies(source string) ([]*Dependency, error) {
	if _, err := db.GetModule(source); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(dependencyQuery+` WHERE f.source = ? ORDER BY d.id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// GetDependents returns the dependencies that point at source
func (db *DB) GetDependents(source string) ([]*Dependency, error) {
	if _, err := db.GetModule(source); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(dependencyQuery+` WHERE t.source = ? ORDER BY f.source, d.id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// GetDependentCount returns the number of modules that directly depend on source
func (db *DB) GetDependentCount(source string) (int, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(DISTINCT d.from_id) FROM dependencies d
		 JOIN modules t ON t.id = d.to_id WHERE t.source = ?`,
		source,
	).Scan(&count)
	return count, err
}

// GetUpstream returns all modules that transitively depend on source, up to
// maxDepth. If maxDepth is 0, there is no depth limit.
func (db *DB) GetUpstream(source string, maxDepth int) ([]*Module, error) {
	return db.reach(source, maxDepth, "from_id", "to_id")
}

// GetDownstream returns all modules source transitively depends on, up to
// maxDepth. If maxDepth is 0, there is no depth limit.
func (db *DB) GetDownstream(source string, maxDepth int) ([]*Module, error) {
	return db.reach(source, maxDepth, "to_id", "from_id")
}

// reach walks dependencies from source, stepping from the `match` column to
// the `next` column.
func (db *DB) reach(source string, maxDepth int, next, match string) ([]*Module, error) {
	start, err := db.GetModule(source)
	if err != nil {
		return nil, err
	}

	var query string
	var args []interface{}

	if maxDepth == 0 {
		// Without depth the walk is over ids only, which terminates on cycles
		query = `
		WITH RECURSIVE walk(id) AS (
			SELECT ` + next + ` FROM dependencies WHERE ` + match + ` = ?
			UNION
			SELECT d.` + next + ` FROM dependencies d JOIN walk w ON d.` + match + ` = w.id
		)
		SELECT ` + moduleColumns + `, 0 FROM modules m JOIN walk w ON w.id = m.id
		WHERE m.id != ? ORDER BY m.source`
		args = []interface{}{start.ID, start.ID}
	} else {
		query = `
		WITH RECURSIVE walk(id, depth) AS (
			SELECT ` + next + `, 1 FROM dependencies WHERE ` + match + ` = ?
			UNION
			SELECT d.` + next + `, w.depth + 1 FROM dependencies d JOIN walk w ON d.` + match + ` = w.id
			WHERE w.depth < ?
		)
		SELECT ` + moduleColumns + `, MIN(w.depth) AS depth FROM modules m JOIN walk w ON w.id = m.id
		WHERE m.id != ? GROUP BY m.id ORDER BY depth, m.source`
		args = []interface{}{start.ID, maxDepth, start.ID}
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []*Module
	for rows.Next() {
		m, err := scanModuleWith(rows, new(int))
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// GetCircularDependencies returns the dependencies annotated as circular
func (db *DB) GetCircularDependencies() ([]*Dependency, error) {
	rows, err := db.conn.Query(dependencyQuery + ` WHERE d.circular = 1 ORDER BY f.source, d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// GetViolations returns the dependencies that violate at least one rule
func (db *DB) GetViolations() ([]*Dependency, error) {
	rows, err := db.conn.Query(dependencyQuery + ` WHERE d.valid = 0 ORDER BY f.source, d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDependencies(rows)
}

// GetStats returns counts over the stored graph
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	var last sql.NullString
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM modules),
			(SELECT COUNT(*) FROM dependencies),
			(SELECT COUNT(*) FROM dependencies WHERE circular = 1),
			(SELECT COUNT(*) FROM dependencies WHERE valid = 0),
			(SELECT MAX(created_at) FROM cruises)
	`).Scan(&s.Modules, &s.Dependencies, &s.Circular, &s.Violations, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		if s.LastCruise, err = time.Parse(time.RFC3339, last.String); err != nil {
			return nil, fmt.Errorf("parse cruise time: %w", err)
		}
	}
	return &s, nil
}

// TreeNode is a module with the modules reached from it
type TreeNode struct {
	Module   *Module
	Children []*TreeNode
	Cycle    bool // Module already appears on the path from the root
}

// GetDependentTree builds a tree of modules depending on source
func (db *DB) GetDependentTree(source string, maxDepth int) ([]*TreeNode, error) {
	return db.tree(source, maxDepth, map[string]bool{source: true}, func(s string) ([]*Dependency, error) {
		return db.GetDependents(s)
	}, func(d *Dependency) string { return d.From })
}

// GetDependencyTree builds a tree of modules source depends on
func (db *DB) GetDependencyTree(source string, maxDepth int) ([]*TreeNode, error) {
	return db.tree(source, maxDepth, map[string]bool{source: true}, func(s string) ([]*Dependency, error) {
		return db.GetDependencies(s)
	}, func(d *Dependency) string { return d.To })
}

func (db *DB) tree(source string, maxDepth int, path map[string]bool,
	edges func(string) ([]*Dependency, error), other func(*Dependency) string) ([]*TreeNode, error) {
	deps, err := edges(source)
	if err != nil {
		return nil, err
	}

	result := make([]*TreeNode, 0, len(deps))
	for _, d := range deps {
		m, err := db.GetModule(other(d))
		if err != nil {
			return nil, err
		}
		node := &TreeNode{Module: m}
		switch {
		case path[m.Source]:
			node.Cycle = true
		case maxDepth != 1:
			path[m.Source] = true
			if node.Children, err = db.tree(m.Source, maxDepth-1, path, edges, other); err != nil {
				return nil, err
			}
			delete(path, m.Source)
		}
		result = append(result, node)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanModule(row scanner) (*Module, error) {
	return scanModuleWith(row)
}

// scanModuleWith scans the module columns followed by extra destinations;
// a single *int extra receives the depth.
func scanModuleWith(row scanner, extra ...*int) (*Module, error) {
	var m Module
	var terminal, followable, core, unresolved int
	var types string
	dest := []interface{}{&m.ID, &m.Source, &terminal, &followable, &core, &unresolved, &types}
	for _, e := range extra {
		dest = append(dest, e)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.Terminal = terminal != 0
	m.Followable = followable != 0
	m.CoreModule = core != 0
	m.CouldNotResolve = unresolved != 0
	if err := json.Unmarshal([]byte(types), &m.DependencyTypes); err != nil {
		return nil, fmt.Errorf("decode dependency types of %s: %w", m.Source, err)
	}
	if len(extra) > 0 {
		m.Depth = *extra[0]
	}
	return &m, nil
}

func scanModules(rows *sql.Rows) ([]*Module, error) {
	var modules []*Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func scanDependencies(rows *sql.Rows) ([]*Dependency, error) {
	var deps []*Dependency
	for rows.Next() {
		var d Dependency
		var followable, core, unresolved int
		var types, rules string
		var circular, valid sql.NullInt64
		if err := rows.Scan(&d.ID, &d.From, &d.To, &d.Module, &followable, &core, &unresolved,
			&types, &circular, &valid, &rules); err != nil {
			return nil, err
		}
		d.Followable = followable != 0
		d.CoreModule = core != 0
		d.CouldNotResolve = unresolved != 0
		if circular.Valid {
			c := circular.Int64 != 0
			d.Circular = &c
		}
		if valid.Valid {
			v := valid.Int64 != 0
			d.Valid = &v
		}
		if err := json.Unmarshal([]byte(types), &d.DependencyTypes); err != nil {
			return nil, fmt.Errorf("decode dependency types: %w", err)
		}
		if err := json.Unmarshal([]byte(rules), &d.Rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
		deps = append(deps, &d)
	}
	return deps, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	return boolInt(*b)
}

// encodeJSON encodes v for a TEXT column; nil slices become "[]".
func encodeJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}
