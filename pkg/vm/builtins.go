package vm

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kristofer/lumen/pkg/object"
)

// builtinMethods maps a heap object kind to its name->native-method
// table. These back every non-Instance receiver's method calls: Array,
// Dictionary, String, Range, Generator, Promise, Exception, and Class
// (for introspection). Instance receivers instead resolve through the
// ordinary Class.Methods chain rooted at vm.objectClass (builtins.go's
// registerNatives), per spec.md §3.2/§3.3.
func (vm *VM) builtinMethods(kind object.Kind) map[string]object.NativeMethodFn {
	switch kind {
	case object.KindArray:
		return arrayMethods
	case object.KindDictionary:
		return dictionaryMethods
	case object.KindString:
		return stringMethods
	case object.KindRange:
		return rangeMethods
	case object.KindGenerator:
		return generatorMethods
	case object.KindPromise:
		return promiseMethods
	case object.KindException:
		return exceptionMethods
	case object.KindClass:
		return classMethods
	default:
		return nil
	}
}

func (vm *VM) invokeBuiltin(receiver object.Value, name string, argCount int) error {
	if !receiver.IsObject() {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	kind := vm.heap.Get(receiver.AsObject()).Hdr().Kind
	methods := vm.builtinMethods(kind)
	fn, ok := methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.callNativeMethod(fn, receiver, argCount)
}

func (vm *VM) invokeBuiltinGet(receiver object.Value, name string) error {
	if !receiver.IsObject() {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	kind := vm.heap.Get(receiver.AsObject()).Hdr().Kind
	methods := vm.builtinMethods(kind)
	fn, ok := methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	bound := object.NewNativeBoundMethod(receiver, fn)
	vm.pop()
	vm.push(object.Obj(vm.heap.Allocate(bound)))
	return nil
}

// ---- stringification ----

// Stringify exposes toDisplayString to callers outside this package
// (cmd/lumen's REPL, printing an expression's result).
func (vm *VM) Stringify(v object.Value) (string, error) {
	return vm.toDisplayString(v)
}

// toDisplayString renders v for `print`/`toString`, calling a
// user-defined toString() method when the receiver is an Instance that
// overrides the Object default.
func (vm *VM) toDisplayString(v object.Value) (string, error) {
	switch {
	case v.IsNil():
		return "nil", nil
	case v.IsUndefined():
		return "undefined", nil
	case v.IsBool():
		return strconv.FormatBool(v.AsBool()), nil
	case v.IsInt():
		return strconv.Itoa(int(v.AsInt())), nil
	case v.IsFloat():
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64), nil
	case v.IsObject():
		return vm.objectToString(v)
	}
	return "", nil
}

func (vm *VM) objectToString(v object.Value) (string, error) {
	hdr := vm.heap.Get(v.AsObject()).Hdr()
	switch o := vm.heap.Get(v.AsObject()).(type) {
	case *object.StringObject:
		return o.Chars, nil
	case *object.FunctionObject:
		name := "<script>"
		if o.Name != object.NilId {
			name = vm.heap.StringAt(o.Name)
		}
		return fmt.Sprintf("<fn %s>", name), nil
	case *object.ClosureObject:
		fn := vm.heap.Get(o.Function).(*object.FunctionObject)
		name := "<script>"
		if fn.Name != object.NilId {
			name = vm.heap.StringAt(fn.Name)
		}
		return fmt.Sprintf("<fn %s>", name), nil
	case *object.ClassObject:
		return vm.heap.StringAt(o.Name), nil
	case *object.InstanceObject:
		method, ok := object.LookupMethod(vm.heap, hdr.Class, "toString")
		overrides := ok && (method.Native == nil || object.IsInstanceOf(vm.heap, hdr.Class, vm.classes["Exception"]))
		if overrides {
			result, err := vm.callSyncMethod(method, v, nil)
			if err != nil {
				return "", err
			}
			if result.IsObject() {
				if s, ok := vm.heap.Get(result.AsObject()).(*object.StringObject); ok {
					return s.Chars, nil
				}
			}
		}
		return fmt.Sprintf("<instance %s>", object.ClassName(vm.heap, hdr.Class)), nil
	case *object.ArrayObject:
		s := "["
		for i, e := range o.Elements {
			if i > 0 {
				s += ", "
			}
			es, err := vm.toDisplayString(e)
			if err != nil {
				return "", err
			}
			s += es
		}
		return s + "]", nil
	case *object.DictionaryObject:
		s := "{"
		first := true
		var innerErr error
		o.Each(func(k, val object.Value) {
			if innerErr != nil {
				return
			}
			if !first {
				s += ", "
			}
			first = false
			ks, err := vm.toDisplayString(k)
			if err != nil {
				innerErr = err
				return
			}
			vs, err := vm.toDisplayString(val)
			if err != nil {
				innerErr = err
				return
			}
			s += ks + ": " + vs
		})
		if innerErr != nil {
			return "", innerErr
		}
		return s + "}", nil
	case *object.RangeObject:
		op := "..."
		if o.Inclusive {
			op = ".."
		}
		return fmt.Sprintf("%d%s%d", o.From, op, o.To), nil
	case *object.ExceptionObject:
		return o.Message, nil
	case *object.GeneratorObject:
		return "<generator>", nil
	case *object.PromiseObject:
		return "<promise>", nil
	case *object.NamespaceObject:
		return fmt.Sprintf("<namespace %s>", o.FullyQualified), nil
	}
	return "<object>", nil
}

// ---- per-kind native method tables ----

var arrayMethods = map[string]object.NativeMethodFn{
	"length": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		a := receiver.AsObject()
		arr := vmb.Heap().Get(a).(*object.ArrayObject)
		return object.Int(int32(len(arr.Elements))), nil
	},
	"push": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		arr := vmb.Heap().Get(receiver.AsObject()).(*object.ArrayObject)
		if len(args) != 1 {
			return object.Nil, vmb.ThrowError("", "Expected 1 argument but got %d.", len(args))
		}
		arr.Elements = append(arr.Elements, args[0])
		vmb.Heap().WriteBarrier(receiver.AsObject(), valueObjectID(args[0]))
		return receiver, nil
	},
	"pop": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		arr := vmb.Heap().Get(receiver.AsObject()).(*object.ArrayObject)
		if len(arr.Elements) == 0 {
			return object.Nil, vmb.ThrowError("", "Can't pop from an empty array.")
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	},
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		s, err := vm.objectToString(receiver)
		if err != nil {
			return object.Nil, err
		}
		return object.Obj(vm.heap.TakeString(s)), nil
	},
}

var dictionaryMethods = map[string]object.NativeMethodFn{
	"length": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		d := vmb.Heap().Get(receiver.AsObject()).(*object.DictionaryObject)
		return object.Int(int32(d.Len())), nil
	},
	"has": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		d := vmb.Heap().Get(receiver.AsObject()).(*object.DictionaryObject)
		_, ok := d.Get(args[0], vmb.Heap())
		return object.Bool(ok), nil
	},
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		s, err := vm.objectToString(receiver)
		if err != nil {
			return object.Nil, err
		}
		return object.Obj(vm.heap.TakeString(s)), nil
	},
}

var stringMethods = map[string]object.NativeMethodFn{
	"length": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		s := vmb.Heap().Get(receiver.AsObject()).(*object.StringObject)
		return object.Int(int32(len([]rune(s.Chars)))), nil
	},
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		return receiver, nil
	},
}

var rangeMethods = map[string]object.NativeMethodFn{
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		s, err := vm.objectToString(receiver)
		if err != nil {
			return object.Nil, err
		}
		return object.Obj(vm.heap.TakeString(s)), nil
	},
}

// nativeInstanceExceptionMessage backs Exception.message/toString for an
// ordinary Instance descending from the built-in Exception class (e.g.
// `class MyError < Exception { init(msg) { this.message = msg; } }`) —
// distinct from exceptionMethods, which backs the VM's own
// internally-raised *object.ExceptionObject values (runtimeError).
func nativeInstanceExceptionMessage(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	inst := vm.heap.Get(receiver.AsObject()).(*object.InstanceObject)
	class := vm.heap.Get(inst.Header.Class).(*object.ClassObject)
	idx, ok := class.FieldIndex["message"]
	if !ok || idx >= len(inst.Fields) {
		return object.Obj(vm.heap.TakeString("")), nil
	}
	return inst.Fields[idx], nil
}

var exceptionMethods = map[string]object.NativeMethodFn{
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		ex := vm.heap.Get(receiver.AsObject()).(*object.ExceptionObject)
		return object.Obj(vm.heap.TakeString(ex.Message)), nil
	},
	"message": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		ex := vm.heap.Get(receiver.AsObject()).(*object.ExceptionObject)
		return object.Obj(vm.heap.TakeString(ex.Message)), nil
	},
}

var classMethods = map[string]object.NativeMethodFn{
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		s, err := vm.objectToString(receiver)
		if err != nil {
			return object.Nil, err
		}
		return object.Obj(vm.heap.TakeString(s)), nil
	},
}

// ---- root Object class natives (original_source/std/lang.c) ----

func registerNatives(vm *VM) {
	objectClass := object.NewClass(object.BehaviorClass)
	objectClass.Name = vm.heap.CopyString("Object")
	objectClass.IsNative = true
	objectID := vm.heap.Allocate(objectClass)
	vm.objectClass = objectID
	vm.classes["Object"] = objectID

	objectClass.Methods["class"] = object.Method{Native: nativeClass}
	objectClass.Methods["toString"] = object.Method{Native: nativeToString}
	objectClass.Methods["isKindOf"] = object.Method{Native: nativeIsKindOf}
	objectClass.Methods["equals"] = object.Method{Native: nativeEquals}

	meta := object.NewClass(object.BehaviorMetaclass)
	meta.Name = objectClass.Name
	objectClass.Header.Class = vm.heap.Allocate(meta)

	exceptionClass := object.NewClass(object.BehaviorClass)
	exceptionClass.Name = vm.heap.CopyString("Exception")
	exceptionClass.Super = objectID
	object.Inherit(exceptionClass, objectClass)
	exceptionClass.FieldIndex["message"] = 0
	exceptionClass.Methods["message"] = object.Method{Native: nativeInstanceExceptionMessage}
	exceptionClass.Methods["toString"] = object.Method{Native: nativeInstanceExceptionMessage}
	exceptionID := vm.heap.Allocate(exceptionClass)
	exMeta := object.NewClass(object.BehaviorMetaclass)
	exMeta.Name = exceptionClass.Name
	exceptionClass.Header.Class = vm.heap.Allocate(exMeta)
	vm.classes["Exception"] = exceptionID

	// Object and Exception are globals too, not just the internal class
	// registry: `class MyError < Exception { ... }` resolves its
	// superclass name through an ordinary OpGetGlobal, same as any
	// user-declared class.
	vm.globals["Object"] = object.Obj(objectID)
	vm.globals["Exception"] = object.Obj(exceptionID)

	vm.globals["print"] = object.Obj(vm.heap.Allocate(&object.NativeFunctionObject{
		Header: object.Header{Kind: object.KindNativeFunction},
		Name:   "print",
		Fn:     nativePrint,
	}))
	vm.globals["clock"] = object.Obj(vm.heap.Allocate(&object.NativeFunctionObject{
		Header: object.Header{Kind: object.KindNativeFunction},
		Name:   "clock",
		Fn:     nativeClock,
	}))
	vm.globals["Promise"] = object.Obj(vm.heap.Allocate(&object.NativeFunctionObject{
		Header: object.Header{Kind: object.KindNativeFunction},
		Name:   "Promise",
		Fn:     nativeNewPromise,
	}))
}

func nativeClass(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	if !receiver.IsObject() {
		return object.Nil, nil
	}
	return object.Obj(vmb.Heap().Get(receiver.AsObject()).Hdr().Class), nil
}

func nativeToString(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	s, err := vm.objectToString(receiver)
	if err != nil {
		return object.Nil, err
	}
	return object.Obj(vm.heap.TakeString(s)), nil
}

func nativeIsKindOf(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	if len(args) != 1 || !args[0].IsObject() || !receiver.IsObject() {
		return object.False, nil
	}
	hdr := vmb.Heap().Get(receiver.AsObject()).Hdr()
	return object.Bool(object.IsInstanceOf(vmb.Heap(), hdr.Class, args[0].AsObject())), nil
}

func nativeEquals(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	if len(args) != 1 {
		return object.False, nil
	}
	return object.Bool(object.ValuesEqual(receiver, args[0])), nil
}

func nativePrint(vmb object.VMBridge, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	var v object.Value
	if len(args) > 0 {
		v = args[0]
	} else {
		v = object.Nil
	}
	s, err := vm.toDisplayString(v)
	if err != nil {
		return object.Nil, err
	}
	fmt.Println(s)
	return object.Nil, nil
}

func nativeClock(vmb object.VMBridge, args []object.Value) (object.Value, error) {
	return object.Float(float64(time.Now().UnixNano()) / 1e9), nil
}
