package jsonfmt

import (
	"encoding/json"
	"reflect"
	"strconv"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
)

var bytesType = reflect.TypeOf([]byte(nil))

// assign 把导航结果写入目标字段。
//
// 行为：
//   - nil 清零字段，文档里的显式 null 会覆盖复用实例中的旧值；
//   - json.Number 按字段的数值类型收窄，溢出报 ErrValueInvalid；
//   - []any 与 map[string]any 逐元素转换成字段声明的集合类型；
//   - 指针字段先分配实例再向内递归。
func assign(field reflect.Value, value any) error {
	if value == nil {
		field.SetZero()
		return nil
	}
	return assignValue(field, reflect.ValueOf(value))
}

func assignValue(field reflect.Value, rv reflect.Value) error {
	rt := field.Type()

	if rv.Type().AssignableTo(rt) {
		field.Set(rv)
		return nil
	}

	if rt.Kind() == reflect.Pointer {
		elem := reflect.New(rt.Elem())
		if err := assignValue(elem.Elem(), rv); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	if n, ok := rv.Interface().(json.Number); ok {
		return assignNumber(field, n)
	}

	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch {
		case rv.CanInt():
			return setInt(field, rv.Int())
		case rv.CanUint():
			return setInt(field, int64(rv.Uint()))
		case rv.CanFloat():
			return setInt(field, int64(rv.Float()))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch {
		case rv.CanInt():
			if rv.Int() < 0 {
				return serr.WrapErrValueInvalid(rt.String(), rv.Interface())
			}
			return setUint(field, uint64(rv.Int()))
		case rv.CanUint():
			return setUint(field, rv.Uint())
		case rv.CanFloat():
			return setUint(field, uint64(rv.Float()))
		}

	case reflect.Float32, reflect.Float64:
		switch {
		case rv.CanFloat():
			field.SetFloat(rv.Float())
			return nil
		case rv.CanInt():
			field.SetFloat(float64(rv.Int()))
			return nil
		case rv.CanUint():
			field.SetFloat(float64(rv.Uint()))
			return nil
		}

	case reflect.String:
		if rv.Kind() == reflect.String {
			field.SetString(rv.String())
			return nil
		}

	case reflect.Bool:
		if rv.Kind() == reflect.Bool {
			field.SetBool(rv.Bool())
			return nil
		}

	case reflect.Slice:
		if rt == bytesType && rv.Kind() == reflect.String {
			field.SetBytes([]byte(rv.String()))
			return nil
		}
		if items, ok := rv.Interface().([]any); ok {
			out := reflect.MakeSlice(rt, len(items), len(items))
			for i, item := range items {
				if err := assign(out.Index(i), item); err != nil {
					return err
				}
			}
			field.Set(out)
			return nil
		}

	case reflect.Map:
		if entries, ok := rv.Interface().(map[string]any); ok && rt.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(rt, len(entries))
			for key, item := range entries {
				slot := reflect.New(rt.Elem()).Elem()
				if err := assign(slot, item); err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(key).Convert(rt.Key()), slot)
			}
			field.Set(out)
			return nil
		}
	}

	return serr.WrapErrValueInvalid(rt.String(), rv.Interface())
}

func assignNumber(field reflect.Value, n json.Number) error {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := n.Int64()
		if err != nil {
			return serr.WrapErrValueInvalid(field.Type().String(), n, err.Error())
		}
		return setInt(field, i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return serr.WrapErrValueInvalid(field.Type().String(), n, err.Error())
		}
		return setUint(field, u)

	case reflect.Float32, reflect.Float64:
		f, err := n.Float64()
		if err != nil {
			return serr.WrapErrValueInvalid(field.Type().String(), n, err.Error())
		}
		field.SetFloat(f)
		return nil

	case reflect.String:
		field.SetString(n.String())
		return nil

	default:
		return serr.WrapErrValueInvalid(field.Type().String(), n)
	}
}

func setInt(field reflect.Value, i int64) error {
	if field.OverflowInt(i) {
		return serr.WrapErrValueInvalid(field.Type().String(), i)
	}
	field.SetInt(i)
	return nil
}

func setUint(field reflect.Value, u uint64) error {
	if field.OverflowUint(u) {
		return serr.WrapErrValueInvalid(field.Type().String(), u)
	}
	field.SetUint(u)
	return nil
}
