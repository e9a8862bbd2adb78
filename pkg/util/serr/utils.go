// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package serr

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code returns the error code of the given error,
// WARN: DO NOT use this for now
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch cause := cause.(type) {
	case serdeError:
		return cause.code()

	default:
		if errors.Is(cause, context.Canceled) {
			return CanceledCode
		} else if errors.Is(cause, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(serdeError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	if err, ok := err.(serdeError); ok {
		return err.errType
	}

	return SystemError
}

func IsInputError(err error) bool {
	return GetErrorType(err) == InputError
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}

func wrapFields(err serdeError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err serdeError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

// Configuration related

func WrapErrFormatUnsupported(format string, msg ...string) error {
	err := wrapFields(ErrFormatUnsupported, value("format", format))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeRequired(msg ...string) error {
	err := error(ErrTypeRequired)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrResourceNotSupported(typeName string, path string, msg ...string) error {
	err := wrapFields(ErrResourceNotSupported,
		value("type", typeName),
		value("path", path),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrExpressionEvaluatorRequired(class string, msg ...string) error {
	err := wrapFields(ErrExpressionEvaluatorRequired, value("class", class))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrDepthLimitExceeded(limit int, path string, msg ...string) error {
	err := wrapFields(ErrDepthLimitExceeded,
		value("limit", limit),
		value("path", path),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrVisitorMissing(direction string, format string, msg ...string) error {
	err := wrapFields(ErrVisitorMissing,
		value("direction", direction),
		value("format", format),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConstructorMissing(class string, msg ...string) error {
	err := wrapFields(ErrConstructorMissing, value("class", class))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Input data related

func WrapErrDiscriminatorMissing(class string, field string, msg ...string) error {
	err := wrapFields(ErrDiscriminatorMissing,
		value("class", class),
		value("field", field),
	)
	err = errors.Wrap(err, "input data should carry the discriminator field")
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrDiscriminatorUnmapped(class string, got string, available []string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrDiscriminatorUnmapped,
		fmt.Sprintf("available values: %s", strings.Join(available, ", ")),
		value("class", class),
		value("value", got),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrValueInvalid(expected string, got any, msg ...string) error {
	err := wrapFields(ErrValueInvalid,
		value("expected", expected),
		value("got", fmt.Sprintf("%T(%v)", got, got)),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrDocumentInvalid(format string, reason error, msg ...string) error {
	err := wrapFieldsWithDesc(ErrDocumentInvalid, reason.Error(), value("format", format))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Metadata related

func WrapErrTypeUnknown(name string, msg ...string) error {
	err := wrapFields(ErrTypeUnknown, value("type", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeStringInvalid(expr string, pos int, msg ...string) error {
	err := wrapFields(ErrTypeStringInvalid,
		value("expr", expr),
		value("pos", pos),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrMetadataInvalid(class string, reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrMetadataInvalid, reason, value("class", class))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrPropertyInvalid(class string, property string, reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrPropertyInvalid, reason,
		value("class", class),
		value("property", property),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Handler related

func WrapErrHandlerDuplicate(direction string, typeName string, format string, msg ...string) error {
	err := wrapFields(ErrHandlerDuplicate,
		value("direction", direction),
		value("type", typeName),
		value("format", format),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}
