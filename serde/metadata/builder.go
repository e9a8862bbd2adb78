package metadata

import (
	"reflect"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/lk2023060901/serde-garden-go/pkg/util/serr"
	"github.com/lk2023060901/serde-garden-go/serde/types"
)

// Builder 以链式调用方式构建类元数据。
//
// 说明：
//   - Property 的调用顺序即属性的序列化输出顺序；
//   - 构建过程中的错误被暂存，统一在 Registry.Register 时返回；
//   - 同一个 Builder 只应构建一次。
type Builder struct {
	name   string
	goType reflect.Type
	naming func(string) string

	props  []*PropertyMetadata
	disc   *Discriminator
	pre    []LifecycleFunc
	post   []LifecycleFunc
	postDe []LifecycleFunc

	err error
}

// ClassOption 用于配置类级行为。
type ClassOption func(*Builder)

// WithNamingStrategy 设置序列化字段名的派生策略，默认为 snake_case。
func WithNamingStrategy(fn func(string) string) ClassOption {
	return func(b *Builder) {
		b.naming = fn
	}
}

// NewClass 以 prototype 的具体类型为基础创建类元数据构建器。
//
// 参数：
//   - name：逻辑类型名；
//   - prototype：该类型的零值实例，结构体或结构体指针。
func NewClass(name string, prototype any, opts ...ClassOption) *Builder {
	b := &Builder{
		name:   name,
		naming: SnakeCase,
	}
	for _, opt := range opts {
		opt(b)
	}

	rt := reflect.TypeOf(prototype)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		b.fail(serr.WrapErrMetadataInvalid(name, "prototype must be a struct or struct pointer"))
		return b
	}
	b.goType = rt
	return b
}

// NewInterface 为多态基类创建类元数据构建器。
//
// 参数：
//   - name：基类逻辑名；
//   - iface：接口类型的空指针，例如 (*Animal)(nil)。
//
// 通常与 Discriminator 配合使用，本身不声明字段属性。
func NewInterface(name string, iface any, opts ...ClassOption) *Builder {
	b := &Builder{
		name:   name,
		naming: SnakeCase,
	}
	for _, opt := range opts {
		opt(b)
	}

	rt := reflect.TypeOf(iface)
	if rt == nil || rt.Kind() != reflect.Pointer || rt.Elem().Kind() != reflect.Interface {
		b.fail(serr.WrapErrMetadataInvalid(name, "iface must be a nil pointer to an interface type"))
		return b
	}
	b.goType = rt.Elem()
	return b
}

// PropertyOption 用于配置单个属性。
type PropertyOption func(*Builder, *PropertyMetadata)

// WithSerializedName 覆盖属性在文档中的字段名。
func WithSerializedName(name string) PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.SerializedName = name
	}
}

// WithType 显式指定属性的逻辑类型。
func WithType(t *types.Type) PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.Type = t
	}
}

// WithTypeName 以类型字符串形式指定属性的逻辑类型。
func WithTypeName(expr string) PropertyOption {
	return func(b *Builder, p *PropertyMetadata) {
		t, err := types.Parse(expr)
		if err != nil {
			b.fail(err)
			return
		}
		p.Type = t
	}
}

// WithGetter 设置自定义取值函数，替代反射字段读取。
func WithGetter(fn func(obj any) (any, error)) PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.Getter = fn
	}
}

// WithReadOnly 标记属性为只读，反序列化时跳过写入。
func WithReadOnly() PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.ReadOnly = true
	}
}

// WithGroups 设置属性所属的分组。
func WithGroups(groups ...string) PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.Groups = groups
	}
}

// WithSince 标记属性自某版本起存在，版本号须符合语义化版本规范。
func WithSince(version string) PropertyOption {
	return func(b *Builder, p *PropertyMetadata) {
		v, err := semver.Parse(version)
		if err != nil {
			b.fail(serr.WrapErrPropertyInvalid(b.name, p.Name, "invalid since version: "+version))
			return
		}
		p.SinceVersion = &v
	}
}

// WithUntil 标记属性至某版本止存在，版本号须符合语义化版本规范。
func WithUntil(version string) PropertyOption {
	return func(b *Builder, p *PropertyMetadata) {
		v, err := semver.Parse(version)
		if err != nil {
			b.fail(serr.WrapErrPropertyInvalid(b.name, p.Name, "invalid until version: "+version))
			return
		}
		p.UntilVersion = &v
	}
}

// WithExcludeIf 设置表达式排除条件，表达式为真时跳过该属性。
// 使用后必须为序列化器配置表达式求值器。
func WithExcludeIf(expr string) PropertyOption {
	return func(_ *Builder, p *PropertyMetadata) {
		p.ExcludeIf = expr
	}
}

// Property 按结构体字段名追加一个属性。
func (b *Builder) Property(fieldName string, opts ...PropertyOption) *Builder {
	if b.err != nil {
		return b
	}
	if b.goType == nil || b.goType.Kind() != reflect.Struct {
		b.fail(serr.WrapErrPropertyInvalid(b.name, fieldName, "interface metadata cannot declare field properties"))
		return b
	}

	field, ok := b.goType.FieldByName(fieldName)
	if !ok || !field.IsExported() {
		b.fail(serr.WrapErrPropertyInvalid(b.name, fieldName, "no such exported field"))
		return b
	}

	p := &PropertyMetadata{
		Name:       fieldName,
		GoType:     field.Type,
		FieldIndex: field.Index,
	}
	for _, opt := range opts {
		opt(b, p)
	}
	if p.SerializedName == "" {
		p.SerializedName = b.naming(fieldName)
	}
	b.props = append(b.props, p)
	return b
}

// VirtualProperty 追加一个取值函数支撑的虚拟属性，对象上无对应字段。
func (b *Builder) VirtualProperty(name string, getter func(obj any) (any, error), opts ...PropertyOption) *Builder {
	if b.err != nil {
		return b
	}
	if getter == nil {
		b.fail(serr.WrapErrPropertyInvalid(b.name, name, "virtual property requires a getter"))
		return b
	}

	p := &PropertyMetadata{
		Name:     name,
		Getter:   getter,
		ReadOnly: true,
	}
	for _, opt := range opts {
		opt(b, p)
	}
	if p.SerializedName == "" {
		p.SerializedName = b.naming(name)
	}
	b.props = append(b.props, p)
	return b
}

// AllExported 按声明顺序追加所有尚未声明的可导出字段。
func (b *Builder) AllExported(opts ...PropertyOption) *Builder {
	if b.err != nil || b.goType == nil || b.goType.Kind() != reflect.Struct {
		return b
	}

	declared := make(map[string]struct{}, len(b.props))
	for _, p := range b.props {
		declared[p.Name] = struct{}{}
	}

	for i := 0; i < b.goType.NumField(); i++ {
		field := b.goType.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		if _, ok := declared[field.Name]; ok {
			continue
		}
		b.Property(field.Name, opts...)
	}
	return b
}

// DiscriminatorOption 用于配置判别器行为。
type DiscriminatorOption func(*Discriminator)

// DiscriminatorAsAttribute 标记判别值位于文档属性而非子元素。
func DiscriminatorAsAttribute() DiscriminatorOption {
	return func(d *Discriminator) {
		d.AsAttribute = true
	}
}

// DiscriminatorNamespace 设置查找判别字段使用的命名空间。
func DiscriminatorNamespace(ns string) DiscriminatorOption {
	return func(d *Discriminator) {
		d.Namespace = ns
	}
}

// Discriminator 在基类上声明判别器。
//
// 参数：
//   - field：输入数据中承载判别值的字段名；
//   - mapping：判别值到具体类逻辑名的映射。
func (b *Builder) Discriminator(field string, mapping map[string]string, opts ...DiscriminatorOption) *Builder {
	if b.err != nil {
		return b
	}
	if field == "" || len(mapping) == 0 {
		b.fail(serr.WrapErrMetadataInvalid(b.name, "discriminator requires a field name and a non-empty map"))
		return b
	}

	d := &Discriminator{
		FieldName: field,
		BaseClass: b.name,
		Map:       make(map[string]string, len(mapping)),
	}
	for value, class := range mapping {
		d.Map[value] = class
	}
	for _, opt := range opts {
		opt(d)
	}
	b.disc = d
	return b
}

// OnPreSerialize 追加序列化前回调。
func (b *Builder) OnPreSerialize(fn LifecycleFunc) *Builder {
	b.pre = append(b.pre, fn)
	return b
}

// OnPostSerialize 追加序列化后回调。
func (b *Builder) OnPostSerialize(fn LifecycleFunc) *Builder {
	b.post = append(b.post, fn)
	return b
}

// OnPostDeserialize 追加反序列化后回调。
func (b *Builder) OnPostDeserialize(fn LifecycleFunc) *Builder {
	b.postDe = append(b.postDe, fn)
	return b
}

// build 产出最终的类元数据。
func (b *Builder) build() (*ClassMetadata, error) {
	if b.err != nil {
		return nil, b.err
	}

	cm := &ClassMetadata{
		Name:            b.name,
		GoType:          b.goType,
		Properties:      b.props,
		Discriminator:   b.disc,
		PreSerialize:    b.pre,
		PostSerialize:   b.post,
		PostDeserialize: b.postDe,
	}
	for _, p := range b.props {
		if p.ExcludeIf != "" {
			cm.UsesExpression = true
			break
		}
	}
	return cm, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// SnakeCase 将驼峰命名转换为下划线命名，例如 CreatedAt -> created_at、HTTPCode -> http_code。
func SnakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			// 大写字母前插入下划线；连续大写视为一个缩写词，仅在词首插入。
			if i > 0 && (isLower(runes[i-1]) || (i+1 < len(runes) && isLower(runes[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isLower(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
