package vm

import "github.com/kristofer/lumen/pkg/object"

// nativeNewPromise implements the `Promise(executor)` constructor: it
// allocates a pending Promise and invokes executor(resolve, reject)
// synchronously (spec.md §5's cooperative, single-threaded model has no
// external scheduler to defer to, so settlement happens inline within the
// executor call rather than on a later tick).
func nativeNewPromise(vmb object.VMBridge, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	if len(args) != 1 || !args[0].IsObject() {
		return object.Nil, vm.runtimeError("Promise expects a single executor function.")
	}
	executor := args[0]
	p := object.NewPromise(executor.AsObject())
	pID := vm.heap.Allocate(p)

	resolve := vm.makeSettleFn(pID, object.PromiseFulfilled)
	reject := vm.makeSettleFn(pID, object.PromiseRejected)

	if _, err := vm.callSyncValue(executor, []object.Value{resolve, reject}); err != nil {
		p.State = object.PromiseRejected
		p.Value = object.Nil
		return object.Nil, err
	}
	return object.Obj(pID), nil
}

// makeSettleFn returns a native function that transitions promise pID to
// state the first time it's called, recording its single argument as the
// settled value and running any handlers already registered in order
// (spec.md §5: "Promise handlers execute in the order they were
// registered").
func (vm *VM) makeSettleFn(pID object.ObjectId, state object.PromiseState) object.Value {
	fn := &object.NativeFunctionObject{
		Header: object.Header{Kind: object.KindNativeFunction},
		Name:   "settle",
		Fn: func(vmb object.VMBridge, args []object.Value) (object.Value, error) {
			vm := vmb.(*VM)
			p := vm.heap.Get(pID).(*object.PromiseObject)
			if p.State != object.PromisePending {
				return object.Nil, nil
			}
			v := object.Nil
			if len(args) > 0 {
				v = args[0]
			}
			p.State = state
			p.Value = v
			if err := vm.runPromiseHandlers(pID); err != nil {
				return object.Nil, err
			}
			return object.Nil, nil
		},
	}
	return object.Obj(vm.heap.Allocate(fn))
}

func (vm *VM) runPromiseHandlers(pID object.ObjectId) error {
	p := vm.heap.Get(pID).(*object.PromiseObject)
	handlers := p.Handlers
	p.Handlers = nil
	for _, h := range handlers {
		var target object.ObjectId
		if p.State == object.PromiseFulfilled {
			target = h.OnFulfilled
		} else {
			target = h.OnRejected
		}
		if target == object.NilId {
			continue
		}
		if _, err := vm.callSyncValue(object.Obj(target), []object.Value{p.Value}); err != nil {
			return err
		}
	}
	return nil
}

// await implements OpAwait (spec.md §4.4): a settled Promise yields its
// value (or throws its rejection reason) immediately; an already-pending
// one cannot make further progress on its own, since nothing else in this
// single-threaded VM runs concurrently to settle it.
func (vm *VM) await(v object.Value) (object.Value, error) {
	if !v.IsObject() || vm.heap.Get(v.AsObject()).Hdr().Kind != object.KindPromise {
		return v, nil
	}
	p := vm.heap.Get(v.AsObject()).(*object.PromiseObject)
	switch p.State {
	case object.PromiseFulfilled:
		return p.Value, nil
	case object.PromiseRejected:
		return object.Nil, vm.throwValue(p.Value)
	default:
		return object.Nil, vm.runtimeError("Cannot await a promise that will never settle.")
	}
}

func nativePromiseThen(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	pID := receiver.AsObject()
	p := vm.heap.Get(pID).(*object.PromiseObject)

	var onFulfilled, onRejected object.ObjectId
	if len(args) > 0 && args[0].IsObject() {
		onFulfilled = args[0].AsObject()
	}
	if len(args) > 1 && args[1].IsObject() {
		onRejected = args[1].AsObject()
	}
	handler := object.PromiseHandler{OnFulfilled: onFulfilled, OnRejected: onRejected}

	if p.State == object.PromisePending {
		p.Handlers = append(p.Handlers, handler)
		return receiver, nil
	}
	p.Handlers = append(p.Handlers, handler)
	if err := vm.runPromiseHandlers(pID); err != nil {
		return object.Nil, err
	}
	return receiver, nil
}

func nativePromiseState(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
	vm := vmb.(*VM)
	p := vm.heap.Get(receiver.AsObject()).(*object.PromiseObject)
	switch p.State {
	case object.PromiseFulfilled:
		return object.Obj(vm.heap.CopyString("fulfilled")), nil
	case object.PromiseRejected:
		return object.Obj(vm.heap.CopyString("rejected")), nil
	default:
		return object.Obj(vm.heap.CopyString("pending")), nil
	}
}

var promiseMethods = map[string]object.NativeMethodFn{
	"then":  nativePromiseThen,
	"state": nativePromiseState,
	"toString": func(vmb object.VMBridge, receiver object.Value, args []object.Value) (object.Value, error) {
		vm := vmb.(*VM)
		return object.Obj(vm.heap.CopyString("<promise>")), nil
	},
}
