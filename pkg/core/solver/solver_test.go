package solver

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gridlock-solve/gridlock/pkg/core/board"
)

const (
	classicPuzzle = "530070000600195000098000060800060003400803001700020006060000280000419005000080079"
	classicSolved = "534678912672195348198342567859761423426853791713924856961537284287419635345286179"

	// Row 0 needs a 9 at (0, 8), but column 8 already holds one.
	unsolvablePuzzle = "123456780" +
		"000000000" +
		"000000009" +
		"000000000" +
		"000000000" +
		"000000000" +
		"000000000" +
		"000000000" +
		"000000000"
)

func mustParse(t *testing.T, s string) board.Board {
	t.Helper()
	b, err := board.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return b
}

// checkSolution verifies a result independently of the search: complete, no
// constraint violated, and every clue of the original puzzle preserved.
func checkSolution(t *testing.T, puzzle, solution board.Board) {
	t.Helper()
	if !solution.Complete() {
		t.Fatal("solution is not complete")
	}
	if !solution.Valid() {
		t.Fatal("solution violates a Sudoku constraint")
	}
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			if d := puzzle.Cell(r, c); d != 0 && solution.Cell(r, c) != d {
				t.Fatalf("clue %d at (%d, %d) not preserved", d, r, c)
			}
		}
	}
}

func TestSolveClassic(t *testing.T) {
	puzzle := mustParse(t, classicPuzzle)
	got, ok := Solve(puzzle)
	if !ok {
		t.Fatal("Solve reported unsolvable")
	}
	checkSolution(t, puzzle, got)
	if got.String() != classicSolved {
		t.Errorf("solution = %s, want %s", got, classicSolved)
	}
}

func TestSolveConcurrentClassic(t *testing.T) {
	puzzle := mustParse(t, classicPuzzle)
	for _, workers := range []int{1, 2, 8} {
		got, ok := SolveConcurrent(puzzle, workers)
		if !ok {
			t.Fatalf("workers=%d: reported unsolvable", workers)
		}
		checkSolution(t, puzzle, got)
		// The classic puzzle has a unique solution, so every worker count
		// must agree with the sequential path.
		if got.String() != classicSolved {
			t.Errorf("workers=%d: solution = %s, want %s", workers, got, classicSolved)
		}
	}
}

func TestSolveCompleteBoard(t *testing.T) {
	full := mustParse(t, classicSolved)
	got, ok := Solve(full)
	if !ok || got.String() != classicSolved {
		t.Fatalf("sequential: = (%s, %v), want the input back", got, ok)
	}
	got, ok = SolveConcurrent(full, 4)
	if !ok || got.String() != classicSolved {
		t.Fatalf("concurrent: = (%s, %v), want the input back", got, ok)
	}
}

func TestSolveUnsolvable(t *testing.T) {
	puzzle := mustParse(t, unsolvablePuzzle)
	if !puzzle.Valid() {
		t.Fatal("test puzzle must be well-formed")
	}
	if _, ok := Solve(puzzle); ok {
		t.Error("sequential: solved an unsolvable puzzle")
	}
	for _, workers := range []int{1, 4} {
		if _, ok := SolveConcurrent(puzzle, workers); ok {
			t.Errorf("workers=%d: solved an unsolvable puzzle", workers)
		}
	}
}

func TestSolveEmptyBoard(t *testing.T) {
	var empty board.Board
	got, ok := Solve(empty)
	if !ok {
		t.Fatal("empty board reported unsolvable")
	}
	checkSolution(t, empty, got)

	got, ok = SolveConcurrent(empty, 4)
	if !ok {
		t.Fatal("concurrent: empty board reported unsolvable")
	}
	checkSolution(t, empty, got)
}

func TestSolveSequentialDeterministic(t *testing.T) {
	// Many solutions exist for an empty board; the sequential path must still
	// pick the same one every run.
	var empty board.Board
	first, ok := Solve(empty)
	if !ok {
		t.Fatal("empty board reported unsolvable")
	}
	for i := 0; i < 3; i++ {
		again, ok := Solve(empty)
		if !ok || again.String() != first.String() {
			t.Fatalf("run %d: solution %s differs from first run %s", i, again, first)
		}
	}
}

// pathState is a scripted search space for observing exploration order: a
// state is a sequence of digits, one feasible set per depth, complete at the
// scripted length.
type pathState struct {
	path    []int
	allowed [][]int
	visited *[][]int
}

func (p pathState) Complete() bool { return len(p.path) == len(p.allowed) }

func (p pathState) NextEmpty() (int, int) { return 0, len(p.path) }

func (p pathState) CanPlace(_, col, digit int) bool {
	for _, d := range p.allowed[col] {
		if d == digit {
			return true
		}
	}
	return false
}

func (p pathState) Place(_, _, digit int) pathState {
	next := make([]int, len(p.path)+1)
	copy(next, p.path)
	next[len(p.path)] = digit
	*p.visited = append(*p.visited, next)
	return pathState{path: next, allowed: p.allowed, visited: p.visited}
}

func TestSolveExploresHighestDigitFirst(t *testing.T) {
	// Two feasible digits {3, 7} at the root: the LIFO discipline pops the
	// last-pushed branch, so 7 must be taken before 3.
	var visited [][]int
	root := pathState{
		allowed: [][]int{{3, 7}, {1}},
		visited: &visited,
	}
	got, ok := Solve(root)
	if !ok {
		t.Fatal("scripted space reported unsolvable")
	}
	if len(got.path) != 2 || got.path[0] != 7 || got.path[1] != 1 {
		t.Fatalf("solution path = %v, want [7 1]", got.path)
	}
	if len(visited) == 0 || visited[len(visited)-1][0] != 7 {
		t.Fatalf("visited order %v: expected the 7 branch expanded last-pushed, first-popped", visited)
	}
}

func TestClaimExactlyOneWinner(t *testing.T) {
	const attempts = 64
	var c claim[int]

	var won atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			<-start
			if c.TryClaim(v) {
				won.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if got := won.Load(); got != 1 {
		t.Fatalf("%d claims succeeded, want exactly 1", got)
	}
	if !c.Claimed() {
		t.Fatal("claim not observed after a successful TryClaim")
	}
	if c.winner < 0 || c.winner >= attempts {
		t.Fatalf("winner %d was never offered", c.winner)
	}
}

func TestClaimKeepsFirstValue(t *testing.T) {
	var c claim[string]
	if !c.TryClaim("first") {
		t.Fatal("first claim should win")
	}
	if c.TryClaim("second") {
		t.Fatal("second claim should lose")
	}
	if c.winner != "first" {
		t.Fatalf("winner = %q, want first", c.winner)
	}
}

func TestSolveCompleteStateExpandsNothing(t *testing.T) {
	// A root that is already complete must come straight back with no Place
	// calls on either path.
	var visited [][]int
	root := pathState{allowed: nil, visited: &visited}

	if _, ok := Solve(root); !ok {
		t.Fatal("sequential: complete root not returned")
	}
	if _, ok := SolveConcurrent(root, 4); !ok {
		t.Fatal("concurrent: complete root not returned")
	}
	if len(visited) != 0 {
		t.Fatalf("complete root was expanded: %v", visited)
	}
}

func TestSolveConcurrentStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress loop in short mode")
	}
	puzzle := mustParse(t, classicPuzzle)
	for i := 0; i < 20; i++ {
		got, ok := SolveConcurrent(puzzle, 8)
		if !ok {
			t.Fatalf("iteration %d: reported unsolvable", i)
		}
		if got.String() != classicSolved {
			t.Fatalf("iteration %d: solution = %s, want %s", i, got, classicSolved)
		}
	}
}
