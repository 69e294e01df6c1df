package stdlib

import (
	"bytes"
	"testing"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

func runScript(t *testing.T, modules []string, source string) (*tiny.State, *tiny.Thread, *bytes.Buffer) {
	t.Helper()

	state := tiny.NewState()
	if err := Bind(state, modules...); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := state.CompileString("test.tiny", source); err != nil {
		t.Fatalf("compile: %s", err)
	}

	thread := tiny.NewThread(state)
	var out bytes.Buffer
	thread.Out = &out
	if err := thread.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}
	return state, thread, &out
}

func globalIs(t *testing.T, state *tiny.State, thread *tiny.Thread, name string, want tiny.Value) {
	t.Helper()

	idx := state.GetGlobalIndex(name)
	if idx < 0 {
		t.Fatalf("global %q not found", name)
	}
	got := thread.GetGlobal(idx)
	if !got.Equals(want) {
		t.Errorf("%s = %s, want %s", name, got.Inspect(), want.Inspect())
	}
}

func TestPrintAndPrintf(t *testing.T) {
	_, _, out := runScript(t, []string{"core"}, `
print("a", 1)
printf("x=% y=%\n", 2, "three")
`)

	want := "a 1\nx=2 y=three\n"
	if out.String() != want {
		t.Errorf("output %q, want %q", out.String(), want)
	}
}

func TestStringHelpers(t *testing.T) {
	state, thread, _ := runScript(t, []string{"core"}, `
n := strlen("hello")
sub := substr("hello", 1, 3)
cat := strcat("foo", "bar")
`)

	globalIs(t, state, thread, "n", tiny.NewNumber(5))
	globalIs(t, state, thread, "sub", tiny.NewConstString("el"))
	globalIs(t, state, thread, "cat", tiny.NewConstString("foobar"))
}

func TestConversions(t *testing.T) {
	state, thread, _ := runScript(t, []string{"core"}, `
n := tonum("42.5")
s := tostr(7)
bad := tonum("nope")
`)

	globalIs(t, state, thread, "n", tiny.NewNumber(42.5))
	globalIs(t, state, thread, "s", tiny.NewConstString("7"))
	globalIs(t, state, thread, "bad", tiny.Null)
}

func TestMathHelpers(t *testing.T) {
	state, thread, _ := runScript(t, []string{"core"}, `
f := floor(2.9)
c := ceil(2.1)
a := abs(-3)
r := sqrt(16)
rand := random()
inRange := rand >= 0 and rand < 1
`)

	globalIs(t, state, thread, "f", tiny.NewNumber(2))
	globalIs(t, state, thread, "c", tiny.NewNumber(3))
	globalIs(t, state, thread, "a", tiny.NewNumber(3))
	globalIs(t, state, thread, "r", tiny.NewNumber(4))
	globalIs(t, state, thread, "inRange", tiny.NewBool(true))
}

func TestUUIDModule(t *testing.T) {
	state, thread, _ := runScript(t, []string{"core", "ident"}, `
a := uuid()
b := uuid()
lenOK := (strlen(a) == 36)
distinct := not (a == b)
`)

	globalIs(t, state, thread, "lenOK", tiny.NewBool(true))
	globalIs(t, state, thread, "distinct", tiny.NewBool(true))
}

func TestTermModule(t *testing.T) {
	state, thread, _ := runScript(t, []string{"term"}, `
tty := istty()
isBool := (tty == true) or (tty == false)
`)

	globalIs(t, state, thread, "isBool", tiny.NewBool(true))
}

func TestDBModule(t *testing.T) {
	state, thread, _ := runScript(t, []string{"db"}, `
conn := dbopen(":memory:")
ok := not (conn == null)

dbexec(conn, "create table kv (k text, v integer)")
dbexec(conn, "insert into kv values ('a', 1), ('b', 2), ('c', 3)")

rows := dbquery(conn, "select k, v from kv order by k")
total := 0
last := ""
while dbnext(rows) {
	last = dbcolumn(rows, 0)
	total += dbcolumn(rows, 1)
}
dbclose(conn)
`)

	globalIs(t, state, thread, "ok", tiny.NewBool(true))
	globalIs(t, state, thread, "total", tiny.NewNumber(6))
	globalIs(t, state, thread, "last", tiny.NewConstString("c"))
}

func TestDBHandleReleasedOnDestroy(t *testing.T) {
	state := tiny.NewState()
	if err := Bind(state, "db"); err != nil {
		t.Fatalf("bind: %s", err)
	}
	if err := state.CompileString("test.tiny", `h := dbopen(":memory:")`); err != nil {
		t.Fatalf("compile: %s", err)
	}

	thread := tiny.NewThread(state)
	if err := thread.Run(); err != nil {
		t.Fatalf("run: %s", err)
	}

	if thread.NumObjects() == 0 {
		t.Fatal("expected the connection to live on the GC heap")
	}

	// Destroying the thread finalizes the handle.
	thread.Destroy()
	if thread.NumObjects() != 0 {
		t.Errorf("objects remain after destroy: %d", thread.NumObjects())
	}
}

func TestRPCLoadMissingProto(t *testing.T) {
	state, thread, _ := runScript(t, []string{"rpc"}, `
loaded := rpcload("does-not-exist.proto")
`)

	globalIs(t, state, thread, "loaded", tiny.NewBool(false))
}

func TestRPCInvokeWithoutProtoFails(t *testing.T) {
	state, thread, _ := runScript(t, []string{"rpc"}, `
conn := rpcdial("localhost:0")
resp := rpcinvoke(conn, "missing.Service/Method", "{}")
failed := (resp == null)
rpcclose(conn)
`)

	globalIs(t, state, thread, "failed", tiny.NewBool(true))
}

func TestUnknownModule(t *testing.T) {
	state := tiny.NewState()
	if err := Bind(state, "nope"); err == nil {
		t.Fatal("expected unknown module to fail")
	}
}
