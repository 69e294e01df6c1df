// Package stdlib provides the host-side foreign-function modules:
// core string/number helpers, terminal queries, identifiers, a sqlite
// binding, and a dynamic gRPC client. Hosts bind the modules they
// want before compiling; scripts see them as ordinary functions.
package stdlib

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	tiny "github.com/hiperiondev/tiny/pkg/embed"
)

// BindCore registers the basic string, number, and I/O helpers.
func BindCore(state *tiny.State) error {
	bindings := map[string]tiny.ForeignFunction{
		"print":    corePrint,
		"printf":   corePrintf,
		"readline": coreReadline,
		"strlen":   coreStrlen,
		"substr":   coreSubstr,
		"strcat":   coreStrcat,
		"tonum":    coreTonum,
		"tostr":    coreTostr,
		"floor":    coreFloor,
		"ceil":     coreCeil,
		"abs":      coreAbs,
		"sqrt":     coreSqrt,
		"random":   coreRandom,
	}

	for name, fn := range bindings {
		if err := state.BindFunction(name, fn); err != nil {
			return err
		}
	}
	return nil
}

func corePrint(t *tiny.Thread, args []tiny.Value) tiny.Value {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Inspect()
	}
	fmt.Fprintln(t.Out, strings.Join(parts, " "))
	return tiny.Null
}

// printf writes a format string where each '%' consumes one argument,
// rendered with Inspect. "%%" emits a literal percent.
func corePrintf(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) == 0 {
		return tiny.Null
	}
	format, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}

	var sb strings.Builder
	next := 1
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			sb.WriteByte(format[i])
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			sb.WriteByte('%')
			i++
			continue
		}
		if next < len(args) {
			sb.WriteString(args[next].Inspect())
			next++
		}
	}

	fmt.Fprint(t.Out, sb.String())
	return tiny.Null
}

func coreReadline(t *tiny.Thread, args []tiny.Value) tiny.Value {
	line, err := t.ReadLine()
	if err != nil {
		return tiny.Null
	}
	return tiny.NewString(t, line)
}

func coreStrlen(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	s, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}
	return tiny.NewNumber(float64(len(s)))
}

func coreSubstr(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 3 {
		return tiny.Null
	}
	s, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}

	start := int(args[1].ToNumber())
	end := int(args[2].ToNumber())
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		return tiny.Null
	}

	return tiny.NewString(t, s[start:end])
}

func coreStrcat(t *tiny.Thread, args []tiny.Value) tiny.Value {
	var sb strings.Builder
	for _, arg := range args {
		s, ok := arg.ToString()
		if !ok {
			return tiny.Null
		}
		sb.WriteString(s)
	}
	return tiny.NewString(t, sb.String())
}

func coreTonum(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	s, ok := args[0].ToString()
	if !ok {
		return tiny.Null
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return tiny.Null
	}
	return tiny.NewNumber(n)
}

func coreTostr(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	return tiny.NewString(t, args[0].Inspect())
}

func coreFloor(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	return tiny.NewNumber(math.Floor(args[0].ToNumber()))
}

func coreCeil(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	return tiny.NewNumber(math.Ceil(args[0].ToNumber()))
}

func coreAbs(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	return tiny.NewNumber(math.Abs(args[0].ToNumber()))
}

func coreSqrt(t *tiny.Thread, args []tiny.Value) tiny.Value {
	if len(args) != 1 {
		return tiny.Null
	}
	return tiny.NewNumber(math.Sqrt(args[0].ToNumber()))
}

func coreRandom(t *tiny.Thread, args []tiny.Value) tiny.Value {
	return tiny.NewNumber(rand.Float64())
}
