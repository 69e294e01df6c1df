package stdlib

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

// The db module exposes sqlite through native objects. Connections and
// row cursors are GC-managed: dropping the last reference finalizes
// them, so scripts that forget dbclose still release the handle.

type dbConn struct {
	db   *sql.DB
	path string
}

type dbRows struct {
	rows    *sql.Rows
	columns []string
	current []any
}

var dbConnProp = &tiny.NativeProp{
	Name: "dbconn",
	Finalize: func(addr any) {
		conn := addr.(*dbConn)
		if conn.db != nil {
			conn.db.Close()
			conn.db = nil
		}
	},
	ToString: func(addr any) string {
		return fmt.Sprintf("<db %s>", addr.(*dbConn).path)
	},
}

var dbRowsProp = &tiny.NativeProp{
	Name: "dbrows",
	Finalize: func(addr any) {
		r := addr.(*dbRows)
		if r.rows != nil {
			r.rows.Close()
			r.rows = nil
		}
	},
	ToString: func(addr any) string {
		return fmt.Sprintf("<dbrows %d cols>", len(addr.(*dbRows).columns))
	},
}

// BindDB registers the sqlite foreign functions.
func BindDB(state *tiny.State) error {
	bindings := map[string]tiny.ForeignFunction{
		"dbopen":   dbOpen,
		"dbclose":  dbClose,
		"dbexec":   dbExec,
		"dbquery":  dbQuery,
		"dbnext":   dbNext,
		"dbcolumn": dbColumn,
	}

	for name, fn := range bindings {
		if err := state.BindFunction(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// dbopen(path) opens or creates a database and returns a native
// connection handle, or null on failure.
func dbOpen(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	path, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return tiny.Null
	}

	return tiny.NewNative(t, &dbConn{db: db, path: path}, dbConnProp)
}

func toConn(v tiny.Value) *dbConn {
	conn, _ := v.ToAddr().(*dbConn)
	return conn
}

func dbClose(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	conn := toConn(args[0])
	if conn != nil && conn.db != nil {
		conn.db.Close()
		conn.db = nil
	}
	return tiny.Null
}

// dbexec(conn, sql) runs a statement and returns the affected row
// count, or null on failure.
func dbExec(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 2 {
		return tiny.Null
	}
	conn := toConn(args[0])
	query, ok := args[1].ToString()
	if conn == nil || conn.db == nil || !ok {
		return tiny.Null
	}

	result, err := conn.db.Exec(query)
	if err != nil {
		return tiny.Null
	}
	n, err := result.RowsAffected()
	if err != nil {
		return tiny.NewNumber(0)
	}
	return tiny.NewNumber(float64(n))
}

// dbquery(conn, sql) runs a query and returns a native row cursor.
func dbQuery(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 2 {
		return tiny.Null
	}
	conn := toConn(args[0])
	query, ok := args[1].ToString()
	if conn == nil || conn.db == nil || !ok {
		return tiny.Null
	}

	rows, err := conn.db.Query(query)
	if err != nil {
		return tiny.Null
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return tiny.Null
	}

	return tiny.NewNative(t, &dbRows{rows: rows, columns: columns}, dbRowsProp)
}

// dbnext(rows) advances the cursor; false once the result set is
// exhausted (the cursor is closed then).
func dbNext(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.NewBool(false)
	}
	r, _ := args[0].ToAddr().(*dbRows)
	if r == nil || r.rows == nil {
		return tiny.NewBool(false)
	}

	if !r.rows.Next() {
		r.rows.Close()
		r.rows = nil
		return tiny.NewBool(false)
	}

	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return tiny.NewBool(false)
	}
	r.current = values

	return tiny.NewBool(true)
}

// dbcolumn(rows, idx) returns the idx-th column of the current row.
func dbColumn(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 2 {
		return tiny.Null
	}
	r, _ := args[0].ToAddr().(*dbRows)
	idx := int(args[1].ToNumber())
	if r == nil || idx < 0 || idx >= len(r.current) {
		return tiny.Null
	}

	switch v := r.current[idx].(type) {
	case nil:
		return tiny.Null
	case int64:
		return tiny.NewNumber(float64(v))
	case float64:
		return tiny.NewNumber(v)
	case bool:
		return tiny.NewBool(v)
	case string:
		return tiny.NewString(t, v)
	case []byte:
		return tiny.NewString(t, string(v))
	}
	return tiny.Null
}
