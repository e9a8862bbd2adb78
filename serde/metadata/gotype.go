package metadata

import (
	"reflect"
	"time"

	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// 内建处理器使用的逻辑类型名。
const (
	TypeNameDateTime = "DateTime"
	TypeNameDuration = "Duration"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	bytesType    = reflect.TypeOf([]byte(nil))
)

// typeFromGo 将 Go 反射类型映射为逻辑类型描述。
//
// 行为：
//   - time.Time 与 time.Duration 映射到内建处理器的类型名；
//   - []byte 按字符串处理；
//   - 切片、数组与映射递归映射元素类型，元素无法确定时参数留空；
//   - 结构体与接口通过 namer 查询已注册的逻辑名，未注册时返回 nil，
//     表示该属性的类型只能在运行时推断。
func typeFromGo(rt reflect.Type, namer types.TypeNamer) *types.Type {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	switch rt {
	case timeType:
		return types.Named(TypeNameDateTime)
	case durationType:
		return types.Named(TypeNameDuration)
	case bytesType:
		return types.Named(types.NameString)
	}

	switch rt.Kind() {
	case reflect.String:
		return types.Named(types.NameString)
	case reflect.Bool:
		return types.Named(types.NameBool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return types.Named(types.NameInt)
	case reflect.Float32, reflect.Float64:
		return types.Named(types.NameFloat)
	case reflect.Slice, reflect.Array:
		elem := typeFromGo(rt.Elem(), namer)
		if elem == nil {
			return types.Named(types.NameArray)
		}
		return types.New(types.NameArray, *elem)
	case reflect.Map:
		key := typeFromGo(rt.Key(), namer)
		elem := typeFromGo(rt.Elem(), namer)
		if key == nil || elem == nil {
			return types.Named(types.NameArray)
		}
		return types.New(types.NameArray, *key, *elem)
	case reflect.Struct, reflect.Interface:
		if namer != nil {
			if name, ok := namer.NameFor(rt); ok {
				return types.Named(name)
			}
		}
		return nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return types.Named(types.NameResource)
	default:
		return nil
	}
}
