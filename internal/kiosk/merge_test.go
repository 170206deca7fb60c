package kiosk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rliim/cmimport/internal/report"
)

// fakeTx records transaction and statement activity in a shared op log so the
// tests can assert savepoint/commit ordering. Begin returns a nested fakeTx
// writing to the same log, mirroring pgx's savepoint behavior.
type fakeTx struct {
	ops    *[]string
	args   *[][]any
	label  string
	failOn string // Exec on SQL containing this substring fails
	rows   [][]any
	done   bool
}

func newFakeTx() *fakeTx {
	ops := []string{}
	args := [][]any{}
	return &fakeTx{ops: &ops, args: &args, label: "tx"}
}

func (t *fakeTx) record(op string) {
	*t.ops = append(*t.ops, t.label+" "+op)
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	t.record("begin")
	return &fakeTx{ops: t.ops, args: t.args, label: "savepoint", failOn: t.failOn, rows: t.rows}, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.done = true
	t.record("commit")
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.record("rollback")
	return nil
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	*t.args = append(*t.args, args)
	if t.failOn != "" && strings.Contains(sql, t.failOn) {
		return pgconn.CommandTag{}, errors.New("merge boom")
	}
	switch {
	case strings.Contains(sql, "insert into collected_material"):
		t.record("insert cm")
	case strings.Contains(sql, "insert into small_find"):
		t.record("insert sf")
	case strings.Contains(sql, "delete from"):
		t.record("delete")
	default:
		t.record("exec")
	}
	return pgconn.NewCommandTag("INSERT 0 3"), nil
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	t.record("query")
	return &fakeRows{data: t.rows}, nil
}

func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (t *fakeTx) Conn() *pgx.Conn { return nil }

// fakeRows serves preset row values through the pgx.Rows interface.
type fakeRows struct {
	data [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d targets for %d values", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		default:
			return fmt.Errorf("scan: unexpected target %T", dest[i])
		}
	}
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

func TestMergerApply(t *testing.T) {
	ctx := context.Background()

	t.Run("success commits savepoint then transaction", func(t *testing.T) {
		outer := newFakeTx()
		outer.rows = [][]any{{"A", int64(2), int64(5)}}
		rep := report.New(io.Discard)

		merger := NewMerger(rep, "lkh")
		if err := merger.Apply(ctx, outer, true); err != nil {
			t.Fatalf("Apply: %v", err)
		}

		want := []string{
			"tx begin",
			"savepoint query",
			"savepoint insert cm",
			"savepoint insert sf",
			"savepoint commit",
			"tx commit",
		}
		if got := *outer.ops; !equalOps(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
		if rep.Errors() != 0 {
			t.Errorf("Errors = %d, want 0", rep.Errors())
		}
	})

	t.Run("no-commit leaves the outer transaction open", func(t *testing.T) {
		outer := newFakeTx()
		rep := report.New(io.Discard)

		merger := NewMerger(rep, "lkh")
		if err := merger.Apply(ctx, outer, false); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		for _, op := range *outer.ops {
			if op == "tx commit" || op == "tx rollback" {
				t.Fatalf("outer transaction touched: %v", *outer.ops)
			}
		}
	})

	t.Run("failure rolls back savepoint and transaction", func(t *testing.T) {
		outer := newFakeTx()
		outer.failOn = "insert into collected_material"
		rep := report.New(io.Discard)

		merger := NewMerger(rep, "lkh")
		if err := merger.Apply(ctx, outer, true); err == nil {
			t.Fatal("Apply = nil, want error")
		}

		want := []string{
			"tx begin",
			"savepoint query",
			"savepoint rollback",
			"tx rollback",
		}
		if got := *outer.ops; !equalOps(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
		if rep.Errors() == 0 {
			t.Error("expected an error record")
		}
	})

	t.Run("marker and user are bound", func(t *testing.T) {
		outer := newFakeTx()
		merger := NewMerger(report.New(io.Discard), "lkh")
		if err := merger.Apply(ctx, outer, true); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		// The collected_material insert binds marker + user, the small_find
		// insert just the user.
		args := *outer.args
		if len(args) != 2 {
			t.Fatalf("exec calls = %d, want 2", len(args))
		}
		if len(args[0]) != 2 || args[0][0] != ImportMarker || args[0][1] != "lkh" {
			t.Errorf("collected_material args = %v, want [%q lkh]", args[0], ImportMarker)
		}
		if len(args[1]) != 1 || args[1][0] != "lkh" {
			t.Errorf("small_find args = %v, want [lkh]", args[1])
		}
	})
}

func TestCheckContexts(t *testing.T) {
	t.Run("unknown loci warn", func(t *testing.T) {
		db := newFakeTx()
		db.rows = [][]any{{"A-999"}, {"B-777"}}
		rep := report.New(io.Discard)

		if err := CheckContexts(context.Background(), db, rep); err != nil {
			t.Fatalf("CheckContexts: %v", err)
		}
		if rep.Warnings() != 2 {
			t.Errorf("Warnings = %d, want 2", rep.Warnings())
		}
	})

	t.Run("all known", func(t *testing.T) {
		db := newFakeTx()
		rep := report.New(io.Discard)

		if err := CheckContexts(context.Background(), db, rep); err != nil {
			t.Fatalf("CheckContexts: %v", err)
		}
		if rep.Warnings() != 0 {
			t.Errorf("Warnings = %d, want 0", rep.Warnings())
		}
	})
}

func TestEraseFormerImport(t *testing.T) {
	t.Run("deletes in dependency order and commits", func(t *testing.T) {
		db := newFakeTx()
		rep := report.New(io.Discard)

		if err := EraseFormerImport(context.Background(), db, rep); err != nil {
			t.Fatalf("EraseFormerImport: %v", err)
		}
		want := []string{
			"tx begin",
			"savepoint delete",
			"savepoint delete",
			"savepoint delete",
			"savepoint commit",
		}
		if got := *db.ops; !equalOps(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("failure rolls back", func(t *testing.T) {
		db := newFakeTx()
		db.failOn = "collected_material_photo"
		rep := report.New(io.Discard)

		if err := EraseFormerImport(context.Background(), db, rep); err == nil {
			t.Fatal("EraseFormerImport = nil, want error")
		}
		got := *db.ops
		if got[len(got)-1] != "savepoint rollback" {
			t.Errorf("last op = %q, want savepoint rollback", got[len(got)-1])
		}
	})
}

func equalOps(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
