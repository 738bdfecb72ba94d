package exodus

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Dataset is a named-array view of an open container file. Values are
// returned as decoded by the container library: numeric scalars or
// (nested) slices for numeric variables, strings or byte rows for character
// variables.
type Dataset interface {
	Lookup(key string) (any, bool)
	Keys() []string
	Close() error
}

// netcdfDataset adapts a netCDF (classic or HDF5 based) file.
type netcdfDataset struct {
	group api.Group
	keys  map[string]struct{}
}

func openNetCDF(path string) (Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	d := &netcdfDataset{group: g, keys: make(map[string]struct{})}
	for _, name := range g.ListVariables() {
		d.keys[name] = struct{}{}
	}
	return d, nil
}

func (d *netcdfDataset) Lookup(key string) (any, bool) {
	if _, ok := d.keys[key]; !ok {
		return nil, false
	}
	v, err := d.group.GetVariable(key)
	if err != nil || v == nil {
		return nil, false
	}
	return v.Values, true
}

func (d *netcdfDataset) Keys() []string {
	keys := make([]string, 0, len(d.keys))
	for k := range d.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *netcdfDataset) Close() error {
	d.group.Close()
	return nil
}

// Array is a dense, row-major numeric array decoded from a dataset value.
// Shape is empty for scalars.
type Array struct {
	Shape []int
	Data  []float64
}

// Len returns the number of elements.
func (a Array) Len() int { return len(a.Data) }

// Rows returns the leading dimension, or 0 for an empty array.
func (a Array) Rows() int {
	if len(a.Shape) == 0 {
		return len(a.Data)
	}
	return a.Shape[0]
}

// RowLen returns the number of elements per leading index.
func (a Array) RowLen() int {
	if rows := a.Rows(); rows > 0 {
		return len(a.Data) / rows
	}
	return 0
}

// toArray flattens a numeric value of any nesting depth. Nested slices must
// be rectangular.
func toArray(v any) (Array, error) {
	var a Array
	if v == nil {
		return a, nil
	}
	rv := reflect.ValueOf(v)
	shape, err := shapeOf(rv)
	if err != nil {
		return a, err
	}
	a.Shape = shape
	size := 1
	for _, n := range shape {
		size *= n
	}
	a.Data = make([]float64, 0, size)
	if err := flatten(rv, shape, &a.Data); err != nil {
		return Array{}, err
	}
	return a, nil
}

func shapeOf(rv reflect.Value) ([]int, error) {
	var shape []int
	for {
		for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return shape, nil
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			shape = append(shape, rv.Len())
			if rv.Len() == 0 {
				return shape, nil
			}
			rv = rv.Index(0)
		case reflect.String:
			return nil, fmt.Errorf("character data is not numeric")
		default:
			return shape, nil
		}
	}
}

func flatten(rv reflect.Value, shape []int, out *[]float64) error {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if len(shape) == 0 {
		f, err := toFloat(rv)
		if err != nil {
			return err
		}
		*out = append(*out, f)
		return nil
	}
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() != shape[0] {
		return fmt.Errorf("ragged array")
	}
	for i := 0; i < rv.Len(); i++ {
		if err := flatten(rv.Index(i), shape[1:], out); err != nil {
			return err
		}
	}
	return nil
}

func toFloat(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("unsupported element kind %s", rv.Kind())
	}
}

// toNames decodes a character variable into trimmed strings.
func toNames(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(x))
		for i, s := range x {
			out[i] = trimName(s)
		}
		return out
	case string:
		return []string{trimName(x)}
	case [][]byte:
		out := make([]string, len(x))
		for i, b := range x {
			out[i] = trimName(string(b))
		}
		return out
	case []byte:
		return []string{trimName(string(x))}
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, toNames(e)...)
		}
		return out
	}
	return nil
}

func trimName(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
