package bencode

import (
	"bufio"
	"reflect"
	"sort"
	"strconv"
)

// Encoder writes bencoded values to an output stream.
type Encoder struct {
	w *bufio.Writer
}

// Encode writes the bencode encoding of v to the stream.
func (e *Encoder) Encode(v interface{}) error {
	if v == nil {
		return e.w.Flush()
	}
	if err := e.encodeValue(reflect.ValueOf(v)); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e *Encoder) encodeValue(v reflect.Value) error {
	if !v.IsValid() {
		return nil
	}

	if m, ok := marshalerOf(v); ok {
		b, err := m.MarshalBencode()
		if err != nil {
			return &MarshalerError{Type: v.Type(), Err: err}
		}
		_, err = e.w.Write(b)
		return err
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return e.encodeString("")
		}
		return e.encodeValue(v.Elem())
	case reflect.Bool:
		if v.Bool() {
			return e.encodeInt(1)
		}
		return e.encodeInt(0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.encodeInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return e.encodeUint(v.Uint())
	case reflect.String:
		return e.encodeString(v.String())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return e.encodeBytes(v.Bytes())
		}
		return e.encodeList(v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 && v.Type().Len() == 0 {
			return e.encodeBytes(nil)
		}
		return e.encodeList(v)
	case reflect.Map:
		return e.encodeMap(v)
	case reflect.Struct:
		return e.encodeStruct(v)
	default:
		return &MarshalTypeError{Type: v.Type()}
	}
}

func marshalerOf(v reflect.Value) (Marshaler, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if m, ok := v.Interface().(Marshaler); ok {
		return m, true
	}
	if v.CanAddr() {
		if m, ok := v.Addr().Interface().(Marshaler); ok {
			return m, true
		}
	}
	return nil, false
}

func (e *Encoder) encodeInt(n int64) error {
	_, err := e.w.WriteString("i" + strconv.FormatInt(n, 10) + "e")
	return err
}

func (e *Encoder) encodeUint(n uint64) error {
	_, err := e.w.WriteString("i" + strconv.FormatUint(n, 10) + "e")
	return err
}

func (e *Encoder) encodeString(s string) error {
	return e.encodeBytes([]byte(s))
}

func (e *Encoder) encodeBytes(b []byte) error {
	if _, err := e.w.WriteString(strconv.Itoa(len(b)) + ":"); err != nil {
		return err
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) encodeList(v reflect.Value) error {
	if err := e.w.WriteByte('l'); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.encodeValue(v.Index(i)); err != nil {
			return err
		}
	}
	return e.w.WriteByte('e')
}

type dictEntry struct {
	key string
	val reflect.Value
}

func (e *Encoder) encodeMap(v reflect.Value) error {
	if v.Type().Key().Kind() != reflect.String {
		return &MarshalTypeError{Type: v.Type()}
	}
	entries := make([]dictEntry, 0, v.Len())
	for _, k := range v.MapKeys() {
		entries = append(entries, dictEntry{key: k.String(), val: v.MapIndex(k)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	if err := e.w.WriteByte('d'); err != nil {
		return err
	}
	for _, ent := range entries {
		if err := e.encodeString(ent.key); err != nil {
			return err
		}
		if err := e.encodeValue(ent.val); err != nil {
			return err
		}
	}
	return e.w.WriteByte('e')
}

func (e *Encoder) encodeStruct(v reflect.Value) error {
	t := v.Type()
	entries := make([]dictEntry, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			// Unexported field.
			continue
		}
		tag, opts := parseTag(f.Tag.Get("bencode"))
		if tag == "-" {
			continue
		}
		name := tag
		if name == "" {
			name = f.Name
		}
		fv := v.Field(i)
		if opts.contains("omitempty") && isEmptyValue(fv) {
			continue
		}
		entries = append(entries, dictEntry{key: name, val: fv})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	if err := e.w.WriteByte('d'); err != nil {
		return err
	}
	for _, ent := range entries {
		if err := e.encodeString(ent.key); err != nil {
			return err
		}
		if err := e.encodeValue(ent.val); err != nil {
			return err
		}
	}
	return e.w.WriteByte('e')
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
