package sheet

import (
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Sheet owns a position-ordered table of cells and coordinates parsing,
// translation, dependency analysis and incremental recalculation against a
// single injected execution engine. the cell map and dependency graph are
// exclusively owned and mutated only through the update operations; callers
// needing concurrent access must serialize externally.
type Sheet struct {
	spread Spread

	cells map[string]*Cell
	ids   []string          // cell definition order
	names map[string]string // cell name -> cell id

	// staleNames holds, per cell, a name binding dropped by a commit that
	// the engine still carries until the cell's next evaluation
	staleNames map[string]string

	graph *DependencyGraph

	language string // target language for imported foreign formulas
}

// Option configures a Sheet at construction
type Option func(*Sheet)

// WithLanguage sets the target language used when translating imported
// foreign spreadsheet formulas ("r" or "python"). defaults to "r".
func WithLanguage(language string) Option {
	return func(s *Sheet) {
		s.language = language
	}
}

// New creates an empty Sheet evaluating against the given execution engine.
// the engine reference is held for the Sheet's lifetime.
func New(spread Spread, opts ...Option) *Sheet {
	s := &Sheet{
		spread:     spread,
		cells:      make(map[string]*Cell),
		names:      make(map[string]string),
		staleNames: make(map[string]string),
		graph:      NewDependencyGraph(),
		language:   "r",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Change is one cell assignment in an update request
type Change struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

// Update describes one re-evaluated cell in an update response
type Update struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Cell returns a copy of the cell at the given id. the second result is
// false when the cell does not exist; per the unknown-cell policy that is
// not an error.
func (s *Sheet) Cell(id string) (Cell, bool) {
	c, exists := s.cells[id]
	if !exists {
		return Cell{}, false
	}
	return *c, true
}

// Ids returns every cell id in definition order
func (s *Sheet) Ids() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Order returns the current topological calculation order over all cells
func (s *Sheet) Order() ([]string, error) {
	order, err := s.graph.Order()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(order))
	copy(out, order)
	return out, nil
}

// Depends returns the ids a cell's translated expression references.
// unknown cells yield an empty set without error.
func (s *Sheet) Depends(id string) []string {
	c, exists := s.cells[id]
	if !exists {
		return nil
	}
	out := make([]string, len(c.Depends))
	copy(out, c.Depends)
	return out
}

// Predecessors returns the cells a cell directly depends on, ordered as
// the subsequence of Order(). unknown cells yield an empty sequence.
func (s *Sheet) Predecessors(id string) []string {
	preds, _ := s.graph.Predecessors(id)
	return preds
}

// Successors returns the cells directly depending on a cell, ordered as
// the subsequence of Order(). unknown cells yield an empty sequence.
func (s *Sheet) Successors(id string) []string {
	succs, _ := s.graph.Successors(id)
	return succs
}

// cell returns the cell at id, creating an empty one when absent. cells are
// created implicitly the first time an address is referenced.
func (s *Sheet) cell(id string) (*Cell, error) {
	if c, exists := s.cells[id]; exists {
		return c, nil
	}
	row, col, err := IndexID(id)
	if err != nil {
		return nil, err
	}
	c := &Cell{ID: id, Row: row, Col: col}
	s.cells[id] = c
	s.ids = append(s.ids, id)
	s.graph.Register(id)
	return c, nil
}

// stagedCell is a parsed and translated but not yet committed cell update
type stagedCell struct {
	id         string
	source     string
	kind       CellKind
	name       string
	expression string
	translated string
	depends    []string
}

// stage parses and translates one source assignment and derives its
// dependency set, without touching the cell table or the graph
func (s *Sheet) stage(id, source string) (*stagedCell, error) {
	if !IsID(id) {
		return nil, NewParseError(id, "not a cell address")
	}

	kind, name, expression := parseSource(source)

	// only expression kinds go through range expansion and dependency
	// analysis; a literal's text reaches the engine untouched even when it
	// happens to look like a range or a union
	translated := ""
	var depends []string
	switch kind {
	case KindNamedExpression, KindDynamicExpression:
		var err error
		translated, err = translate(expression, s.spread)
		if err != nil {
			return nil, err
		}
		depends, err = s.deriveDepends(id, translated)
		if err != nil {
			return nil, err
		}
	case KindEmpty:
	default:
		translated = expression
	}

	return &stagedCell{
		id:         id,
		source:     source,
		kind:       kind,
		name:       name,
		expression: expression,
		translated: translated,
		depends:    depends,
	}, nil
}

// deriveDepends asks the engine which identifiers a translated expression
// references and filters them down to cells: an identifier counts only when
// it is a concrete cell address or another cell's name. the engine may
// over-approximate freely; function names and foreign identifiers fall out
// here.
func (s *Sheet) deriveDepends(id, translated string) ([]string, error) {
	identifiers, err := s.spread.Depends(translated)
	if err != nil {
		return nil, NewEvaluationError(id, err.Error())
	}

	seen := make(map[string]struct{})
	var depends []string
	for _, ident := range identifiers {
		target := ""
		if IsID(ident) {
			target = ident
		} else if named, ok := s.names[ident]; ok {
			target = named
		}
		if target == "" {
			continue
		}
		// direct self references stay in the set so the graph rejects them
		// as a one-cell cycle
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		depends = append(depends, target)
	}
	return depends, nil
}

// commit applies a staged update to the dependency graph, rejecting it
// atomically when it would introduce a cycle. on success the cell table is
// updated; on failure the prior graph, order and cell state are retained
// unchanged.
func (s *Sheet) commit(staged *stagedCell) (*Cell, error) {
	_, existed := s.cells[staged.id]
	var priorDepends []string
	if existed {
		priorDepends = s.graph.Precedents(staged.id)
	}

	// note which precedent cells the commit would create so a rollback can
	// remove them again
	var created []string
	if !existed {
		created = append(created, staged.id)
	}
	for _, dep := range staged.depends {
		if _, ok := s.cells[dep]; !ok && !s.graph.Contains(dep) {
			created = append(created, dep)
		}
	}

	c, err := s.cell(staged.id)
	if err != nil {
		return nil, err
	}
	s.graph.SetPrecedents(staged.id, staged.depends)

	if _, err := s.graph.Order(); err != nil {
		// roll back: restore the prior edge set and drop anything the
		// attempt created
		s.graph.SetPrecedents(staged.id, priorDepends)
		for _, id := range created {
			s.graph.Remove(id)
			delete(s.cells, id)
			for i, sid := range s.ids {
				if sid == id {
					s.ids = append(s.ids[:i], s.ids[i+1:]...)
					break
				}
			}
		}
		return nil, err
	}

	// ensure implicitly referenced cells exist in the cell table too
	for _, dep := range staged.depends {
		if _, err := s.cell(dep); err != nil {
			return nil, err
		}
	}

	// maintain the name index. a name dropped here is still bound on the
	// engine side; remember it so the next evaluation clears it.
	if c.Name != "" && c.Name != staged.name {
		if s.names[c.Name] == c.ID {
			delete(s.names, c.Name)
		}
		s.staleNames[c.ID] = c.Name
	}
	if staged.name != "" {
		s.names[staged.name] = c.ID
	}

	c.Source = staged.source
	c.Kind = staged.kind
	c.Name = staged.name
	c.Expression = staged.expression
	c.Translated = staged.translated
	c.Depends = staged.depends
	return c, nil
}

// evaluate sends one cell to the engine and records the result. empty cells
// clear their engine bindings instead; their dependents then surface the
// engine's own undefined-reference error when re-evaluated.
func (s *Sheet) evaluate(c *Cell) {
	if prior, ok := s.staleNames[c.ID]; ok {
		s.spread.Clear(c.ID, prior)
		delete(s.staleNames, c.ID)
	}

	if c.Kind == KindEmpty {
		s.spread.Clear(c.ID, c.Name)
		c.Type, c.Value, c.Error = "", "", ""
		return
	}

	result, err := s.spread.Set(c.ID, c.Translated, c.Name)
	if err != nil {
		c.Type, c.Value = "", ""
		c.Error = err.Error()
		return
	}

	// the engine reports results as "type value"
	c.Error = ""
	if i := strings.Index(result, " "); i >= 0 {
		c.Type, c.Value = result[:i], result[i+1:]
	} else {
		c.Type, c.Value = result, ""
	}
}

// evaluateAffected evaluates the given set of cells once each, in
// topological order, and returns an Update for every cell whose result
// changed
func (s *Sheet) evaluateAffected(affected map[string]struct{}) ([]Update, error) {
	order, err := s.graph.Order()
	if err != nil {
		return nil, err
	}

	var updates []Update
	for _, id := range order {
		if _, ok := affected[id]; !ok {
			continue
		}
		c := s.cells[id]
		prevType, prevValue, prevError := c.Type, c.Value, c.Error
		s.evaluate(c)
		if c.Type == prevType && c.Value == prevValue && c.Error == prevError {
			continue
		}
		updates = append(updates, Update{
			ID:    c.ID,
			Kind:  c.Kind.String(),
			Type:  c.Type,
			Value: c.Value,
			Error: c.Error,
		})
	}
	return updates, nil
}

// UpdateCell assigns new source to one cell: parse, translate, re-derive
// dependencies, then evaluate the cell and every transitive dependent in
// topological order. cells not downstream of the change are untouched. an
// update that would create a circular dependency is rejected atomically
// with the Sheet's prior state retained.
func (s *Sheet) UpdateCell(id, source string) ([]Update, error) {
	staged, err := s.stage(id, source)
	if err != nil {
		return nil, err
	}
	c, err := s.commit(staged)
	if err != nil {
		return nil, err
	}

	affected := s.graph.Affected(c.ID)
	affected[c.ID] = struct{}{}
	return s.evaluateAffected(affected)
}

// UpdateBatch applies several cell assignments as one batch: every
// change is parsed, translated and merged into the dependency graph first,
// then affected cells are evaluated once each in one combined order. a
// change that fails to parse, translate or commit is reported and skipped
// without blocking the rest of the batch.
func (s *Sheet) UpdateBatch(changes []Change) ([]Update, error) {
	var errs *multierror.Error

	affected := make(map[string]struct{})
	for _, change := range changes {
		staged, err := s.stage(change.ID, change.Source)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		c, err := s.commit(staged)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		affected[c.ID] = struct{}{}
	}

	// one combined affected set so no cell evaluates more than once even
	// when several of its precedents changed in this batch
	for id := range affected {
		for dep := range s.graph.Affected(id) {
			affected[dep] = struct{}{}
		}
	}

	updates, err := s.evaluateAffected(affected)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	return updates, errs.ErrorOrNil()
}

// UpdateAll re-parses, re-translates and re-derives dependencies for every
// cell from its current source, rebuilds the graph, then evaluates every
// cell once in topological order. used after bulk loads.
func (s *Sheet) UpdateAll() ([]Update, error) {
	var errs *multierror.Error

	// rebuild the name index from every source first, so a cell referencing
	// a name defined later in definition order still derives the dependency
	s.names = make(map[string]string)
	for _, id := range s.ids {
		if _, name, _ := parseSource(s.cells[id].Source); name != "" {
			s.names[name] = id
		}
	}

	affected := make(map[string]struct{})
	for _, id := range s.ids {
		staged, err := s.stage(id, s.cells[id].Source)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if _, err := s.commit(staged); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		affected[id] = struct{}{}
	}

	updates, err := s.evaluateAffected(affected)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	return updates, errs.ErrorOrNil()
}

// metadata reads the evaluated value of the cell carrying the given name.
// sheet metadata is stored in ordinary named cells and flows through the
// same parse and evaluate pipeline as everything else.
func (s *Sheet) metadata(name string) string {
	id, ok := s.names[name]
	if !ok {
		return ""
	}
	return s.cells[id].Value
}

// Title returns the sheet title, read from the cell named "title"
func (s *Sheet) Title() string { return s.metadata("title") }

// Description returns the sheet description, read from the cell named
// "description"
func (s *Sheet) Description() string { return s.metadata("description") }

// Authors returns the sheet authors, read from the cell named "authors"
func (s *Sheet) Authors() string { return s.metadata("authors") }

// Keywords returns the sheet keywords, read from the cell named "keywords"
func (s *Sheet) Keywords() string { return s.metadata("keywords") }
