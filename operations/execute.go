package operations

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// ErrNotSerializable is returned when a step input or output would not survive a round trip
// through the JSON report.
var ErrNotSerializable = errors.New("value cannot be written to the report without losing data")

// ExecuteOperation runs the operation once and adds its report to the bundle's reporter, whether
// the handler failed or not. Input and output must pass IsSerializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle, operation *Operation[IN, OUT, DEP], deps DEP, input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	output, err := operation.execute(b, deps, input)
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := newReport(operation.def, input, output, err, nil)
	if rerr := b.reporter.AddReport(erase(report)); rerr != nil {
		return Report[IN, OUT]{}, errors.Join(err, rerr)
	}

	return report, err
}

// ExecuteSequence runs the sequence handler with a bundle that records the reports of the
// operations it executes, then adds the sequence report listing them as children. The report is
// added even when the handler fails.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", sequence.def.ID, ErrNotSerializable)
	}

	b.Logger.Infow("Executing sequence",
		"id", sequence.def.ID, "version", sequence.def.Version, "description", sequence.def.Description)

	recorder := &childRecorder{Reporter: b.reporter}
	output, err := sequence.handler(Bundle{
		Logger:     b.Logger,
		GetContext: b.GetContext,
		reporter:   recorder,
	}, deps, input)
	if errors.Is(err, ErrNotSerializable) {
		return Report[IN, OUT]{}, err
	}
	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", sequence.def.ID, ErrNotSerializable)
	}

	report := newReport(sequence.def, input, output, err, recorder.children())
	if rerr := b.reporter.AddReport(erase(report)); rerr != nil {
		return Report[IN, OUT]{}, errors.Join(err, rerr)
	}

	return report, err
}

// IsSerializable reports whether v can be written to a report file and read back without
// losing data. Values JSON cannot encode and structs with unexported fields are rejected, unless
// the type marshals itself.
func IsSerializable(lggr logger.Logger, v any) bool {
	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not JSON serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	if !isValueSerializable(reflect.ValueOf(v)) {
		lggr.Errorw("Value loses data when serialized", "type", fmt.Sprintf("%T", v))
		return false
	}

	return true
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func isValueSerializable(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	t := v.Type()
	if marshalsItself(t) {
		return true
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return true
		}

		return isValueSerializable(v.Elem())
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			if !isValueSerializable(v.Index(i)) {
				return false
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if !isValueSerializable(iter.Key()) || !isValueSerializable(iter.Value()) {
				return false
			}
		}
	case reflect.Struct:
		for i := range t.NumField() {
			field := t.Field(i)
			if field.Tag.Get("json") == "-" {
				continue
			}
			if !field.IsExported() {
				return false
			}
			if !isValueSerializable(v.Field(i)) {
				return false
			}
		}
	default:
	}

	return true
}

func marshalsItself(t reflect.Type) bool {
	pt := reflect.PointerTo(t)

	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}
