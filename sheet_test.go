package sheet

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	testIdentPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	testSumPattern   = regexp.MustCompile(`^sum\(\[(.*)\]\)$`)
)

// testSpread is a minimal in-process execution engine: numbers, quoted
// strings, identifiers, "+" and "*" arithmetic, and sum over a collection
// literal. collection literals render as [A1,A2]; identifier scanning
// over-approximates the way a real engine would.
type testSpread struct {
	bindings map[string]string
	sets     map[string]int // Set call counts per id
}

func newTestSpread() *testSpread {
	return &testSpread{
		bindings: make(map[string]string),
		sets:     make(map[string]int),
	}
}

func (ts *testSpread) Set(id, expression, name string) (string, error) {
	ts.sets[id]++
	typ, value, err := ts.eval(expression)
	if err != nil {
		delete(ts.bindings, id)
		if name != "" {
			delete(ts.bindings, name)
		}
		return "", err
	}
	ts.bindings[id] = value
	if name != "" {
		ts.bindings[name] = value
	}
	return typ + " " + value, nil
}

func (ts *testSpread) Get(name string) (string, error) {
	value, ok := ts.bindings[name]
	if !ok {
		return "", errors.New("undefined identifier " + name)
	}
	return value, nil
}

func (ts *testSpread) Collect(ids []string) (string, error) {
	return "[" + strings.Join(ids, ",") + "]", nil
}

func (ts *testSpread) Depends(expression string) ([]string, error) {
	return testIdentPattern.FindAllString(expression, -1), nil
}

func (ts *testSpread) Clear(id, name string) error {
	delete(ts.bindings, id)
	if name != "" {
		delete(ts.bindings, name)
	}
	return nil
}

func (ts *testSpread) List() ([]string, error) {
	names := make([]string, 0, len(ts.bindings))
	for name := range ts.bindings {
		names = append(names, name)
	}
	return names, nil
}

func (ts *testSpread) eval(expression string) (typ, value string, err error) {
	expr := strings.TrimSpace(expression)

	if m := testSumPattern.FindStringSubmatch(expr); m != nil {
		total := 0.0
		for _, part := range strings.Split(m[1], ",") {
			f, err := ts.evalNumber(part)
			if err != nil {
				return "", "", err
			}
			total += f
		}
		return "number", formatTestNumber(total), nil
	}

	if strings.Contains(expr, "+") {
		total := 0.0
		for _, term := range strings.Split(expr, "+") {
			f, err := ts.evalNumber(term)
			if err != nil {
				return "", "", err
			}
			total += f
		}
		return "number", formatTestNumber(total), nil
	}

	if strings.Contains(expr, "*") {
		product := 1.0
		for _, factor := range strings.Split(expr, "*") {
			f, err := ts.evalNumber(factor)
			if err != nil {
				return "", "", err
			}
			product *= f
		}
		return "number", formatTestNumber(product), nil
	}

	if _, err := strconv.ParseFloat(expr, 64); err == nil {
		return "number", expr, nil
	}

	if len(expr) >= 2 && (expr[0] == '"' || expr[0] == '\'') && expr[len(expr)-1] == expr[0] {
		return "string", expr[1 : len(expr)-1], nil
	}

	if testIdentPattern.FindString(expr) == expr {
		value, ok := ts.bindings[expr]
		if !ok {
			return "", "", errors.New("undefined identifier " + expr)
		}
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return "number", value, nil
		}
		return "string", value, nil
	}

	return "", "", errors.New("cannot evaluate " + strconv.Quote(expr))
}

func (ts *testSpread) evalNumber(expression string) (float64, error) {
	_, value, err := ts.eval(expression)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.New("not a number: " + value)
	}
	return f, nil
}

func formatTestNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SheetTestCase drives a Sheet against the test engine with a chainable
// interface, failing the test on the first unexpected error
type SheetTestCase struct {
	t      *testing.T
	sheet  *Sheet
	spread *testSpread
	last   []Update
}

func NewSheetTestCase(t *testing.T) *SheetTestCase {
	spread := newTestSpread()
	return &SheetTestCase{
		t:      t,
		sheet:  New(spread),
		spread: spread,
	}
}

func (tc *SheetTestCase) Update(id, source string) *SheetTestCase {
	tc.t.Helper()
	updates, err := tc.sheet.UpdateCell(id, source)
	if err != nil {
		tc.t.Fatalf("UpdateCell(%s, %q) failed: %v", id, source, err)
	}
	tc.last = updates
	return tc
}

func (tc *SheetTestCase) ExpectValue(id, want string) *SheetTestCase {
	tc.t.Helper()
	c, ok := tc.sheet.Cell(id)
	if !ok {
		tc.t.Fatalf("cell %s does not exist", id)
	}
	if c.Error != "" {
		tc.t.Errorf("cell %s has error %q, want value %q", id, c.Error, want)
	} else if c.Value != want {
		tc.t.Errorf("cell %s = %q, want %q", id, c.Value, want)
	}
	return tc
}

func (tc *SheetTestCase) ExpectError(id, fragment string) *SheetTestCase {
	tc.t.Helper()
	c, ok := tc.sheet.Cell(id)
	if !ok {
		tc.t.Fatalf("cell %s does not exist", id)
	}
	if !strings.Contains(c.Error, fragment) {
		tc.t.Errorf("cell %s error = %q, want it to contain %q", id, c.Error, fragment)
	}
	return tc
}

func (tc *SheetTestCase) ExpectDepends(id string, want ...string) *SheetTestCase {
	tc.t.Helper()
	got := tc.sheet.Depends(id)
	if diff := cmp.Diff(want, got); diff != "" {
		tc.t.Errorf("depends(%s) mismatch (-want +got):\n%s", id, diff)
	}
	return tc
}

func TestSheetEvaluatesInDependencyOrder(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("C1", "1").
		Update("A1", "=C1").
		Update("B1", "=A1 + C1")

	tc.ExpectValue("C1", "1").
		ExpectValue("A1", "1").
		ExpectValue("B1", "2").
		ExpectDepends("B1", "A1", "C1")

	order, err := tc.sheet.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	if position["C1"] > position["B1"] || position["A1"] > position["B1"] {
		t.Errorf("order %v does not place C1 and A1 before B1", order)
	}
}

func TestSheetRangeExpression(t *testing.T) {
	NewSheetTestCase(t).
		Update("A1", "1").
		Update("A2", "2").
		Update("A3", "3").
		Update("B1", "=sum(A1:A3)").
		ExpectValue("B1", "6").
		ExpectDepends("B1", "A1", "A2", "A3")
}

func TestSheetCellKindsEvaluate(t *testing.T) {
	NewSheetTestCase(t).
		Update("A1", "42").
		Update("A2", `"quoted"`).
		Update("A3", "An implicit string").
		Update("A4", "answer = 6*7").
		ExpectValue("A1", "42").
		ExpectValue("A2", "quoted").
		ExpectValue("A3", "An implicit string").
		ExpectValue("A4", "42")
}

func TestSheetNamedDependency(t *testing.T) {
	NewSheetTestCase(t).
		Update("A1", "answer = 6*7").
		Update("B1", "=answer + 1").
		ExpectValue("B1", "43").
		ExpectDepends("B1", "A1")
}

func TestSheetIncrementalUpdate(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "1").
		Update("B1", "=A1 + 1").
		Update("C1", "100")

	updates, err := tc.sheet.UpdateCell("A1", "5")
	if err != nil {
		t.Fatalf("UpdateCell failed: %v", err)
	}

	// only the changed cell and its transitive dependents appear
	got := make([]string, len(updates))
	for i, u := range updates {
		got[i] = u.ID
	}
	if diff := cmp.Diff([]string{"A1", "B1"}, got); diff != "" {
		t.Errorf("update set mismatch (-want +got):\n%s", diff)
	}
	tc.ExpectValue("B1", "6").ExpectValue("C1", "100")
}

func TestSheetTransitivePropagation(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "1").
		Update("B1", "=A1").
		Update("C1", "=B1").
		Update("D1", "=C1")

	updates, err := tc.sheet.UpdateCell("A1", "7")
	if err != nil {
		t.Fatalf("UpdateCell failed: %v", err)
	}
	if len(updates) != 4 {
		t.Errorf("got %d updates, want 4", len(updates))
	}
	tc.ExpectValue("D1", "7")
}

func TestSheetCycleRejectedAtomically(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("X1", "1").
		Update("Y1", "=X1")

	orderBefore, err := tc.sheet.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}

	_, err = tc.sheet.UpdateCell("X1", "=Y1")
	var circular *CircularDependencyError
	if !errors.As(err, &circular) {
		t.Fatalf("UpdateCell = %v, want CircularDependencyError", err)
	}

	// the prior state is fully retained
	orderAfter, err := tc.sheet.Order()
	if err != nil {
		t.Fatalf("Order failed after rejected update: %v", err)
	}
	if diff := cmp.Diff(orderBefore, orderAfter); diff != "" {
		t.Errorf("order changed by rejected update (-before +after):\n%s", diff)
	}
	c, _ := tc.sheet.Cell("X1")
	if c.Source != "1" {
		t.Errorf("X1 source = %q after rejected update, want %q", c.Source, "1")
	}
	tc.ExpectValue("X1", "1").ExpectValue("Y1", "1")
}

func TestSheetSelfReferenceRejected(t *testing.T) {
	tc := NewSheetTestCase(t)
	_, err := tc.sheet.UpdateCell("A1", "=A1 + 1")
	var circular *CircularDependencyError
	if !errors.As(err, &circular) {
		t.Fatalf("UpdateCell = %v, want CircularDependencyError", err)
	}
	if _, exists := tc.sheet.Cell("A1"); exists {
		t.Error("rejected update left an implicitly created cell behind")
	}
}

func TestSheetStringCellsPassThroughUntranslated(t *testing.T) {
	// text that merely looks like a union or a range is still plain text
	tc := NewSheetTestCase(t).
		Update("A1", "B1 & B2 are cells").
		Update("A2", "see A1:A3 for details")

	tc.ExpectValue("A1", "B1 & B2 are cells").
		ExpectValue("A2", "see A1:A3 for details")

	c, _ := tc.sheet.Cell("A2")
	if want := `"see A1:A3 for details"`; c.Translated != want {
		t.Errorf("A2 translated = %q, want %q", c.Translated, want)
	}
	if deps := tc.sheet.Depends("A1"); len(deps) != 0 {
		t.Errorf("string cell A1 derived dependencies %v", deps)
	}
}

func TestSheetUnionRejected(t *testing.T) {
	tc := NewSheetTestCase(t)
	_, err := tc.sheet.UpdateCell("A1", "=B1&B2")
	var notImplemented *NotImplementedError
	if !errors.As(err, &notImplemented) {
		t.Fatalf("UpdateCell = %v, want NotImplementedError", err)
	}
}

func TestSheetClearCell(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "1").
		Update("B1", "=A1")

	updates, err := tc.sheet.UpdateCell("A1", "")
	if err != nil {
		t.Fatalf("clearing failed: %v", err)
	}

	// the dependent is still re-evaluated and surfaces the engine's own
	// undefined-reference error
	tc.ExpectError("B1", "undefined identifier A1")
	found := false
	for _, u := range updates {
		if u.ID == "B1" {
			found = true
		}
	}
	if !found {
		t.Errorf("updates %v do not include the dependent B1", updates)
	}
}

func TestSheetClearNamedCellUnbindsName(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "answer = 42").
		Update("B1", "=answer").
		ExpectValue("B1", "42")

	if _, err := tc.sheet.UpdateCell("A1", ""); err != nil {
		t.Fatalf("clearing failed: %v", err)
	}

	// the engine-side name binding goes away with the cell
	tc.ExpectError("B1", "undefined identifier answer")
	if _, err := tc.spread.Get("answer"); err == nil {
		t.Error("name binding survived clearing its cell")
	}
}

func TestSheetRenameUnbindsOldName(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "x = 1").
		Update("B1", "=x").
		ExpectValue("B1", "1")

	tc.Update("A1", "y = 1").
		ExpectError("B1", "undefined identifier x")
	if _, err := tc.spread.Get("x"); err == nil {
		t.Error("old name binding survived the rename")
	}
	if _, err := tc.spread.Get("y"); err != nil {
		t.Errorf("new name not bound: %v", err)
	}
}

func TestSheetEvaluationErrorIsLocal(t *testing.T) {
	// one broken cell does not block independent cells
	NewSheetTestCase(t).
		Update("A1", "=nope").
		Update("B1", "2").
		ExpectError("A1", "undefined identifier nope").
		ExpectValue("B1", "2")
}

func TestSheetBatchEvaluatesOnce(t *testing.T) {
	tc := NewSheetTestCase(t)
	tc.spread.sets = make(map[string]int)

	_, err := tc.sheet.UpdateBatch([]Change{
		{ID: "A1", Source: "1"},
		{ID: "B1", Source: "=A1 + 1"},
		{ID: "C1", Source: "=A1 + B1"},
	})
	if err != nil {
		t.Fatalf("UpdateBatch failed: %v", err)
	}

	for id, count := range tc.spread.sets {
		if count != 1 {
			t.Errorf("cell %s evaluated %d times in one batch, want 1", id, count)
		}
	}
	tc.ExpectValue("C1", "3")
}

func TestSheetBatchReportsBadChangeAndContinues(t *testing.T) {
	tc := NewSheetTestCase(t)
	_, err := tc.sheet.UpdateBatch([]Change{
		{ID: "A1", Source: "=B1&B2"},
		{ID: "C1", Source: "5"},
	})
	var notImplemented *NotImplementedError
	if !errors.As(err, &notImplemented) {
		t.Fatalf("UpdateBatch = %v, want NotImplementedError in chain", err)
	}
	tc.ExpectValue("C1", "5")
}

func TestSheetUpdateAllIdempotent(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "1").
		Update("B1", "=A1 + 1").
		Update("C1", "=sum(A1:B1)")

	first, err := tc.sheet.UpdateAll()
	if err != nil {
		t.Fatalf("UpdateAll failed: %v", err)
	}
	orderFirst, _ := tc.sheet.Order()

	second, err := tc.sheet.UpdateAll()
	if err != nil {
		t.Fatalf("second UpdateAll failed: %v", err)
	}
	orderSecond, _ := tc.sheet.Order()

	if diff := cmp.Diff(orderFirst, orderSecond); diff != "" {
		t.Errorf("order not stable across UpdateAll (-first +second):\n%s", diff)
	}
	// nothing changed between the runs, so the second returns no updates
	if len(first) != 0 || len(second) != 0 {
		t.Errorf("idempotent UpdateAll reported changes: first %v, second %v", first, second)
	}
	tc.ExpectValue("C1", "3")
}

func TestSheetUpdateAllResolvesForwardNames(t *testing.T) {
	// A1 references a name whose defining cell comes later in definition
	// order, so the dependency is only discoverable on a full rebuild
	tc := NewSheetTestCase(t).
		Update("A1", "=answer").
		Update("A2", "answer = 2")

	if _, err := tc.sheet.UpdateAll(); err != nil {
		t.Fatalf("UpdateAll failed: %v", err)
	}

	tc.ExpectDepends("A1", "A2").ExpectValue("A1", "2")

	order, err := tc.sheet.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	if diff := cmp.Diff([]string{"A2", "A1"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSheetMetadataAsNamedCells(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", `title = "Budget 2026"`).
		Update("A2", `description = "Quarterly budget"`).
		Update("A3", `authors = "a@example.org"`).
		Update("A4", `keywords = "budget, quarterly"`)

	if got := tc.sheet.Title(); got != "Budget 2026" {
		t.Errorf("Title() = %q", got)
	}
	if got := tc.sheet.Description(); got != "Quarterly budget" {
		t.Errorf("Description() = %q", got)
	}
	if got := tc.sheet.Authors(); got != "a@example.org" {
		t.Errorf("Authors() = %q", got)
	}
	if got := tc.sheet.Keywords(); got != "budget, quarterly" {
		t.Errorf("Keywords() = %q", got)
	}
}

func TestSheetPredecessorsSuccessors(t *testing.T) {
	tc := NewSheetTestCase(t).
		Update("A1", "1").
		Update("B1", "=A1").
		Update("C1", "=A1 + B1")

	if diff := cmp.Diff([]string{"A1", "B1"}, tc.sheet.Predecessors("C1")); diff != "" {
		t.Errorf("predecessors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B1", "C1"}, tc.sheet.Successors("A1")); diff != "" {
		t.Errorf("successors mismatch (-want +got):\n%s", diff)
	}
	if got := tc.sheet.Predecessors("ZZ99"); len(got) != 0 {
		t.Errorf("Predecessors of unknown cell = %v, want empty", got)
	}
}

func TestSheetInvalidAddressRejected(t *testing.T) {
	tc := NewSheetTestCase(t)
	_, err := tc.sheet.UpdateCell("1A", "1")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("UpdateCell(1A) = %v, want ParseError", err)
	}
}
