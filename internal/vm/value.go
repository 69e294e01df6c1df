package vm

import (
	"fmt"
	"strconv"
)

// ValueType identifies the variant stored in a Value.
type ValueType uint8

const (
	ValNull ValueType = iota
	ValBool
	ValNumber
	ValString      // GC-managed owned string
	ValConstString // interned literal, never collected
	ValNative      // GC-managed opaque host object
	ValLightNative // raw host pointer, never collected
)

func (t ValueType) String() string {
	switch t {
	case ValNull:
		return "null"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValString, ValConstString:
		return "string"
	case ValNative:
		return "native"
	case ValLightNative:
		return "light native"
	}
	return "value"
}

// Value is the tagged runtime value. The zero Value is null.
type Value struct {
	typ     ValueType
	boolean bool
	number  float64
	cstr    string // const-string payload
	addr    any    // light-native payload
	obj     *Object
}

// Null is the null value.
var Null = Value{}

func NewBool(v bool) Value {
	return Value{typ: ValBool, boolean: v}
}

func NewNumber(v float64) Value {
	return Value{typ: ValNumber, number: v}
}

// NewConstString wraps a string whose storage is owned outside the GC
// heap (literals, host constants).
func NewConstString(s string) Value {
	return Value{typ: ValConstString, cstr: s}
}

// NewLightNative wraps a raw host pointer the collector never tracks.
func NewLightNative(addr any) Value {
	return Value{typ: ValLightNative, addr: addr}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNull() bool { return v.typ == ValNull }

// ToBool returns the boolean payload, or false for any other type.
func (v Value) ToBool() bool {
	if v.typ != ValBool {
		return false
	}
	return v.boolean
}

// ToNumber returns the numeric payload, or 0 for any other type.
func (v Value) ToNumber() float64 {
	if v.typ != ValNumber {
		return 0
	}
	return v.number
}

// ToString returns the string payload and whether the value is a
// string of either flavor.
func (v Value) ToString() (string, bool) {
	switch v.typ {
	case ValConstString:
		return v.cstr, true
	case ValString:
		return v.obj.str, true
	}
	return "", false
}

// ToAddr returns the host pointer of a native or light-native value,
// nil otherwise.
func (v Value) ToAddr() any {
	switch v.typ {
	case ValLightNative:
		return v.addr
	case ValNative:
		return v.obj.addr
	}
	return nil
}

// Prop returns the property descriptor of a native value. Light
// natives carry no descriptor.
func (v Value) Prop() *NativeProp {
	if v.typ != ValNative {
		return nil
	}
	return v.obj.prop
}

func (v Value) isHeapObject() bool {
	return v.typ == ValString || v.typ == ValNative
}

// Equals implements the language equality rules: identical tags are
// required except that const strings and owned strings compare by
// content; natives compare by pointer identity.
func (v Value) Equals(o Value) bool {
	if v.typ != o.typ {
		vs, vok := v.ToString()
		os, ook := o.ToString()
		return vok && ook && vs == os
	}

	switch v.typ {
	case ValNull:
		return true
	case ValBool:
		return v.boolean == o.boolean
	case ValNumber:
		return v.number == o.number
	case ValString, ValConstString:
		vs, _ := v.ToString()
		os, _ := o.ToString()
		return vs == os
	case ValNative:
		return v.obj.addr == o.obj.addr
	case ValLightNative:
		return v.addr == o.addr
	}
	return false
}

// Inspect renders the value the way PRINT shows it.
func (v Value) Inspect() string {
	switch v.typ {
	case ValNull:
		return "null"
	case ValBool:
		return strconv.FormatBool(v.boolean)
	case ValNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case ValString:
		return v.obj.str
	case ValConstString:
		return v.cstr
	case ValNative:
		if v.obj.prop != nil && v.obj.prop.ToString != nil {
			return v.obj.prop.ToString(v.obj.addr)
		}
		return fmt.Sprintf("<native %p>", v.obj)
	case ValLightNative:
		return fmt.Sprintf("<light native %v>", v.addr)
	}
	return "<value>"
}
