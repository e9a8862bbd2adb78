package metadata

import (
	"reflect"
	"sort"

	"github.com/lk2023060901/serde-garden-go/pkg/metrics"
	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/pkg/util/typeutil"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// Registry 为进程内的类元数据注册表。
//
// 设计目标：
//   - 同时充当 Provider（逻辑名 -> 元数据）与 TypeNamer（Go 类型 -> 逻辑名）；
//   - 注册完成后查询是并发安全的只读操作；
//   - 基类注册判别器后，自动向映射到的具体类注入虚拟判别属性，
//     与具体类的注册顺序无关。
type Registry struct {
	classes *typeutil.ConcurrentMap[string, *ClassMetadata]
	names   *typeutil.ConcurrentMap[reflect.Type, string]

	// pending 暂存具体类尚未注册时的判别属性注入请求，键为具体类逻辑名。
	pending *typeutil.ConcurrentMap[string, discriminatorSeed]
}

type discriminatorSeed struct {
	field       string
	value       string
	asAttribute bool
}

// 编译期断言：确保 Registry 实现了 Provider 与 TypeNamer 接口。
var (
	_ Provider        = (*Registry)(nil)
	_ types.TypeNamer = (*Registry)(nil)
)

// NewRegistry 创建一个空的类元数据注册表。
func NewRegistry() *Registry {
	return &Registry{
		classes: typeutil.NewConcurrentMap[string, *ClassMetadata](),
		names:   typeutil.NewConcurrentMap[reflect.Type, string](),
		pending: typeutil.NewConcurrentMap[string, discriminatorSeed](),
	}
}

// Register 完成构建并注册类元数据。
//
// 行为：
//   - 构建过程中暂存的错误在此处返回；
//   - 重复注册同名类型返回 ErrMetadataInvalid；
//   - 声明了判别器时，为映射到的每个具体类注入虚拟判别属性。
func (r *Registry) Register(builders ...*Builder) error {
	for _, b := range builders {
		cm, err := b.build()
		if err != nil {
			return err
		}
		if _, ok := r.classes.Get(cm.Name); ok {
			return serr.WrapErrMetadataInvalid(cm.Name, "type already registered")
		}

		r.classes.Insert(cm.Name, cm)
		r.names.Insert(cm.GoType, cm.Name)

		// 具体类注册在基类之后：消费之前暂存的注入请求。
		if seed, ok := r.pending.GetAndRemove(cm.Name); ok {
			injectDiscriminatorProperty(cm, seed)
		}

		// 基类注册在具体类之前或之后均可：已注册的立即注入，未注册的暂存。
		if cm.Discriminator != nil {
			for value, class := range cm.Discriminator.Map {
				seed := discriminatorSeed{
					field:       cm.Discriminator.FieldName,
					value:       value,
					asAttribute: cm.Discriminator.AsAttribute,
				}
				if sub, ok := r.classes.Get(class); ok {
					injectDiscriminatorProperty(sub, seed)
				} else {
					r.pending.Insert(class, seed)
				}
			}
		}
	}
	return nil
}

// MetadataFor 返回 name 对应的类元数据，未注册时返回 ErrTypeUnknown。
func (r *Registry) MetadataFor(name string) (*ClassMetadata, error) {
	cm, ok := r.classes.Get(name)
	if !ok {
		return nil, serr.WrapErrTypeUnknown(name)
	}
	metrics.MetadataLoads.WithLabelValues(name).Inc()
	cm.resolveTypes(r)
	return cm, nil
}

// NameFor 返回 Go 反射类型对应的逻辑类型名。
func (r *Registry) NameFor(rt reflect.Type) (string, bool) {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return r.names.Get(rt)
}

// Names 返回所有已注册的逻辑类型名，按字典序排列。
func (r *Registry) Names() []string {
	names := r.classes.Keys()
	sort.Strings(names)
	return names
}

// injectDiscriminatorProperty 向具体类注入虚拟判别属性。
//
// 要求：
//   - 具体类已显式声明同名字段时不注入；
//   - 注入的属性只读，反序列化时不会写回对象。
func injectDiscriminatorProperty(cm *ClassMetadata, seed discriminatorSeed) {
	for _, p := range cm.Properties {
		if p.SerializedName == seed.field {
			return
		}
	}

	cm.Properties = append(cm.Properties, &PropertyMetadata{
		Name:           seed.field,
		SerializedName: seed.field,
		Type:           types.Named(types.NameString),
		ReadOnly:       true,
		Static:         true,
		StaticValue:    seed.value,
	})
}
