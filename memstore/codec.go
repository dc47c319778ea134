package memstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kairei-project/kairei/value"
)

// wireValue is the JSON-serialisable shadow of value.Value used by the
// Redis-backed Store. value.Value intentionally exposes no struct tags of
// its own (§3 keeps it an opaque tagged union), so memstore owns this
// encode/decode boundary rather than the value package reaching for a
// serialisation concern it doesn't otherwise need.
type wireValue struct {
	Kind string            `json:"kind"`
	B    bool              `json:"b,omitempty"`
	I    int64             `json:"i,omitempty"`
	F    float64           `json:"f,omitempty"`
	S    string            `json:"s,omitempty"`
	DNs  int64             `json:"d_ns,omitempty"`
	List []wireValue       `json:"list,omitempty"`
	M    map[string]wireValue `json:"m,omitempty"`
	Err  string            `json:"err,omitempty"`
}

func encodeValue(v value.Value) wireValue {
	w := wireValue{Kind: v.Kind().String()}
	switch v.Kind() {
	case value.KindBoolean:
		w.B, _ = v.Bool()
	case value.KindInteger:
		w.I, _ = v.Int()
	case value.KindFloat:
		w.F, _ = v.Float()
	case value.KindString:
		w.S, _ = v.String()
	case value.KindDuration:
		d, _ := v.Duration()
		w.DNs = int64(d)
	case value.KindError:
		w.Err, _ = v.ErrMessage()
	case value.KindList:
		items, _ := v.List()
		w.List = make([]wireValue, len(items))
		for i, item := range items {
			w.List[i] = encodeValue(item)
		}
	case value.KindMap:
		m, _ := v.Map()
		w.M = make(map[string]wireValue, len(m))
		for k, item := range m {
			w.M[k] = encodeValue(item)
		}
	}
	return w
}

func decodeValue(w wireValue) (value.Value, error) {
	switch w.Kind {
	case value.KindNull.String():
		return value.Null(), nil
	case value.KindUnit.String():
		return value.Unit(), nil
	case value.KindBoolean.String():
		return value.OfBool(w.B), nil
	case value.KindInteger.String():
		return value.OfInt(w.I), nil
	case value.KindFloat.String():
		return value.OfFloat(w.F), nil
	case value.KindString.String():
		return value.OfString(w.S), nil
	case value.KindDuration.String():
		return value.OfDuration(time.Duration(w.DNs)), nil
	case value.KindError.String():
		return value.OfError(w.Err), nil
	case value.KindList.String():
		items := make([]value.Value, len(w.List))
		for i, item := range w.List {
			dv, err := decodeValue(item)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = dv
		}
		return value.OfList(items), nil
	case value.KindMap.String():
		m := make(map[string]value.Value, len(w.M))
		for k, item := range w.M {
			dv, err := decodeValue(item)
			if err != nil {
				return value.Value{}, err
			}
			m[k] = dv
		}
		return value.OfMap(m), nil
	default:
		return value.Value{}, fmt.Errorf("memstore: unknown value kind %q", w.Kind)
	}
}

func marshalValue(v value.Value) ([]byte, error) {
	return json.Marshal(encodeValue(v))
}

func unmarshalValue(data []byte) (value.Value, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return value.Value{}, err
	}
	return decodeValue(w)
}
