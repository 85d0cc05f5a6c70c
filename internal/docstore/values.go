package docstore

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// normalize converts arbitrary Go values into the canonical field types.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string, []byte:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case time.Time:
		return x.UTC(), nil
	case *firestore.DocumentRef:
		if x == nil {
			return nil, nil
		}
		return x.Path, nil
	case latLng:
		if reflect.ValueOf(x).IsNil() {
			return nil, nil
		}
		return geoPoint(x), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC(), nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, inner := range x {
			n, err := normalize(inner)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, inner := range x {
			n, err := normalize(inner)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	}

	// named types (e.g. taskmachine.State) and other containers
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n, err := normalize(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", iter.Key().String(), err)
			}
			out[iter.Key().String()] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// normalizeFields normalises every top-level field.
func normalizeFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// toValue converts a normalised value to a Firestore value.
func toValue(v any) (*firestorepb.Value, error) {
	switch x := v.(type) {
	case nil:
		return &firestorepb.Value{ValueType: &firestorepb.Value_NullValue{NullValue: structpb.NullValue_NULL_VALUE}}, nil
	case bool:
		return &firestorepb.Value{ValueType: &firestorepb.Value_BooleanValue{BooleanValue: x}}, nil
	case int64:
		return &firestorepb.Value{ValueType: &firestorepb.Value_IntegerValue{IntegerValue: x}}, nil
	case float64:
		return &firestorepb.Value{ValueType: &firestorepb.Value_DoubleValue{DoubleValue: x}}, nil
	case string:
		return &firestorepb.Value{ValueType: &firestorepb.Value_StringValue{StringValue: x}}, nil
	case []byte:
		return &firestorepb.Value{ValueType: &firestorepb.Value_BytesValue{BytesValue: x}}, nil
	case time.Time:
		return &firestorepb.Value{ValueType: &firestorepb.Value_TimestampValue{TimestampValue: timestamppb.New(x)}}, nil
	case map[string]any:
		fields, err := toFields(x)
		if err != nil {
			return nil, err
		}
		return &firestorepb.Value{ValueType: &firestorepb.Value_MapValue{MapValue: &firestorepb.MapValue{Fields: fields}}}, nil
	case []any:
		values := make([]*firestorepb.Value, len(x))
		for i, inner := range x {
			val, err := toValue(inner)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			values[i] = val
		}
		return &firestorepb.Value{ValueType: &firestorepb.Value_ArrayValue{ArrayValue: &firestorepb.ArrayValue{Values: values}}}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func toFields(fields map[string]any) (map[string]*firestorepb.Value, error) {
	out := make(map[string]*firestorepb.Value, len(fields))
	for k, v := range fields {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// fromValue converts a Firestore value back to its normalised Go form,
// the same shapes the Firestore client returns from a snapshot.
func fromValue(v *firestorepb.Value) (any, error) {
	switch x := v.GetValueType().(type) {
	case nil, *firestorepb.Value_NullValue:
		return nil, nil
	case *firestorepb.Value_BooleanValue:
		return x.BooleanValue, nil
	case *firestorepb.Value_IntegerValue:
		return x.IntegerValue, nil
	case *firestorepb.Value_DoubleValue:
		return x.DoubleValue, nil
	case *firestorepb.Value_StringValue:
		return x.StringValue, nil
	case *firestorepb.Value_BytesValue:
		return x.BytesValue, nil
	case *firestorepb.Value_TimestampValue:
		if err := x.TimestampValue.CheckValid(); err != nil {
			return nil, fmt.Errorf("invalid timestamp: %w", err)
		}
		return x.TimestampValue.AsTime().UTC(), nil
	case *firestorepb.Value_ReferenceValue:
		return x.ReferenceValue, nil
	case *firestorepb.Value_GeoPointValue:
		return geoPoint(x.GeoPointValue), nil
	case *firestorepb.Value_MapValue:
		return fromFields(x.MapValue.GetFields())
	case *firestorepb.Value_ArrayValue:
		values := x.ArrayValue.GetValues()
		out := make([]any, len(values))
		for i, inner := range values {
			val, err := fromValue(inner)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported firestore value %T", v.GetValueType())
}

func fromFields(fields map[string]*firestorepb.Value) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		val, err := fromValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

type latLng interface {
	GetLatitude() float64
	GetLongitude() float64
}

func geoPoint(p latLng) map[string]any {
	return map[string]any{"latitude": p.GetLatitude(), "longitude": p.GetLongitude()}
}

// equalValues compares two values after normalisation.
func equalValues(a, b any) bool {
	na, err := normalize(a)
	if err != nil {
		return false
	}
	nb, err := normalize(b)
	if err != nil {
		return false
	}
	switch x := na.(type) {
	case time.Time:
		y, ok := nb.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := nb.([]byte)
		return ok && bytes.Equal(x, y)
	case int64:
		if y, ok := nb.(float64); ok {
			return float64(x) == y
		}
	case float64:
		if y, ok := nb.(int64); ok {
			return x == float64(y)
		}
	}
	return reflect.DeepEqual(na, nb)
}
