package tiny

import (
	"fmt"
	"reflect"

	"github.com/hiperiondev/tiny/internal/vm"
)

// Marshaller converts between Go values and script values. Strings
// passed in from Go are host-owned and become const strings; strings
// built inside foreign callees that should be collectable are created
// with NewString instead.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value into a script value bound to t.
func (m *Marshaller) ToValue(t *Thread, v any) Value {
	switch val := v.(type) {
	case nil:
		return Null
	case Value:
		return val
	case bool:
		return vm.NewBool(val)
	case float64:
		return vm.NewNumber(val)
	case float32:
		return vm.NewNumber(float64(val))
	case int:
		return vm.NewNumber(float64(val))
	case int32:
		return vm.NewNumber(float64(val))
	case int64:
		return vm.NewNumber(float64(val))
	case string:
		return vm.NewConstString(val)
	}
	return vm.NewLightNative(v)
}

// FromValue converts a script value back into a Go value.
func (m *Marshaller) FromValue(v Value) any {
	switch v.Type() {
	case vm.ValNull:
		return nil
	case vm.ValBool:
		return v.ToBool()
	case vm.ValNumber:
		return v.ToNumber()
	case vm.ValString, vm.ValConstString:
		s, _ := v.ToString()
		return s
	case vm.ValNative, vm.ValLightNative:
		return v.ToAddr()
	}
	return nil
}

// WrapFunc adapts a Go function into a ForeignFunction via reflection.
// Supported parameter types: bool, the common numeric kinds, string,
// Value, and *Thread (which receives the invoking thread and does not
// consume a script argument). Results may be (T), (T, error), or
// nothing; an error result turns into a null return value.
func (m *Marshaller) WrapFunc(name string, fn any) (ForeignFunction, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("binding '%s': unsupported value of type %T", name, fn)
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("binding '%s': variadic functions are not supported", name)
	}
	if fnType.NumOut() > 2 {
		return nil, fmt.Errorf("binding '%s': too many return values", name)
	}

	threadType := reflect.TypeOf((*Thread)(nil))
	errorType := reflect.TypeOf((*error)(nil)).Elem()

	return func(t *Thread, args []Value) Value {
		goArgs := make([]reflect.Value, 0, fnType.NumIn())
		argPos := 0

		for i := 0; i < fnType.NumIn(); i++ {
			in := fnType.In(i)
			if in == threadType {
				goArgs = append(goArgs, reflect.ValueOf(t))
				continue
			}
			if argPos >= len(args) {
				return Null
			}
			converted, ok := m.fromValueAs(args[argPos], in)
			if !ok {
				return Null
			}
			goArgs = append(goArgs, converted)
			argPos++
		}

		results := fnVal.Call(goArgs)

		if len(results) == 2 {
			if fnType.Out(1).Implements(errorType) && !results[1].IsNil() {
				return Null
			}
			results = results[:1]
		}
		if len(results) == 1 {
			if fnType.Out(0).Implements(errorType) {
				if !results[0].IsNil() {
					return Null
				}
				return Null
			}
			return m.ToValue(t, results[0].Interface())
		}
		return Null
	}, nil
}

func (m *Marshaller) fromValueAs(v Value, target reflect.Type) (reflect.Value, bool) {
	if target == reflect.TypeOf(Value{}) {
		return reflect.ValueOf(v), true
	}

	switch target.Kind() {
	case reflect.Bool:
		if v.Type() != vm.ValBool {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v.ToBool()), true

	case reflect.Float64, reflect.Float32,
		reflect.Int, reflect.Int32, reflect.Int64:
		if v.Type() != vm.ValNumber {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v.ToNumber()).Convert(target), true

	case reflect.String:
		s, ok := v.ToString()
		if !ok {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(s), true

	case reflect.Interface:
		if target.NumMethod() == 0 {
			return reflect.ValueOf(m.FromValue(v)), true
		}
	}

	if addr := v.ToAddr(); addr != nil {
		av := reflect.ValueOf(addr)
		if av.Type().AssignableTo(target) {
			return av, true
		}
	}

	return reflect.Value{}, false
}
