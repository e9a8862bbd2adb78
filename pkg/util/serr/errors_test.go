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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrTypeUnknown("Animal")
	errors.Wrap(err, "failed to resolve metadata")
	s.ErrorIs(err, ErrTypeUnknown)
	s.Equal(ErrTypeUnknown.code(), Code(err))
	s.Equal(errUnexpected.code(), Code(errors.New("unknown error")))
	s.Equal(int32(0), Code(nil))
}

func (s *ErrSuite) TestWrap() {
	// Configuration related
	s.ErrorIs(WrapErrFormatUnsupported("yaml", "resolving visitor"), ErrFormatUnsupported)
	s.ErrorIs(WrapErrTypeRequired("deserialize facade"), ErrTypeRequired)
	s.ErrorIs(WrapErrResourceNotSupported("chan int", "$.Orders[0]", "visiting property"), ErrResourceNotSupported)
	s.ErrorIs(WrapErrExpressionEvaluatorRequired("Comment", "checking metadata"), ErrExpressionEvaluatorRequired)
	s.ErrorIs(WrapErrDepthLimitExceeded(64, "$.Parent.Parent"), ErrDepthLimitExceeded)
	s.ErrorIs(WrapErrVisitorMissing("serialization", "xml"), ErrVisitorMissing)
	s.ErrorIs(WrapErrConstructorMissing("Order"), ErrConstructorMissing)

	// Input data related
	s.ErrorIs(WrapErrDiscriminatorMissing("Animal", "type"), ErrDiscriminatorMissing)
	s.ErrorIs(WrapErrDiscriminatorUnmapped("Animal", "bird", []string{"cat", "dog"}), ErrDiscriminatorUnmapped)
	s.ErrorIs(WrapErrValueInvalid("string", 42, "visiting property"), ErrValueInvalid)
	s.ErrorIs(WrapErrDocumentInvalid("json", errors.New("unexpected EOF")), ErrDocumentInvalid)

	// Metadata related
	s.ErrorIs(WrapErrTypeUnknown("Ghost", "loading metadata"), ErrTypeUnknown)
	s.ErrorIs(WrapErrTypeStringInvalid("array<string", 12), ErrTypeStringInvalid)
	s.ErrorIs(WrapErrMetadataInvalid("Animal", "discriminator base must be registered"), ErrMetadataInvalid)
	s.ErrorIs(WrapErrPropertyInvalid("Order", "Total", "field index out of range"), ErrPropertyInvalid)

	// Handler related
	s.ErrorIs(WrapErrHandlerDuplicate("serialization", "DateTime", "json"), ErrHandlerDuplicate)
}

func (s *ErrSuite) TestDiscriminatorUnmappedListsAvailable() {
	err := WrapErrDiscriminatorUnmapped("Animal", "bird", []string{"cat", "dog"})
	s.Contains(err.Error(), "cat, dog")
	s.Contains(err.Error(), "bird")
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("target")

	err = Combine(nil, err)
	s.NotNil(err)

	err = Combine(err, nil)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrTypeUnknown("Ghost"), WrapErrTypeRequired())
	s.Equal(ErrTypeRequired.code(), Code(err))
}

func (s *ErrSuite) TestIsCanceledOrTimeout() {
	s.True(IsCanceledOrTimeout(context.Canceled))
	s.True(IsCanceledOrTimeout(context.DeadlineExceeded))
	s.False(IsCanceledOrTimeout(ErrTypeUnknown))
	s.False(IsCanceledOrTimeout(nil))
}

func (s *ErrSuite) TestErrorType() {
	err := newSerdeError("bad input", 2000, false, WithErrorType(InputError))
	s.Equal(InputError, GetErrorType(err))
	s.True(IsInputError(err))
	s.Equal("input_error", InputError.String())

	s.Equal(SystemError, GetErrorType(errors.New("plain")))
	s.False(IsInputError(ErrTypeUnknown))
}

func (s *ErrSuite) TestDetail() {
	err := newSerdeError("detail test", 2001, false, WithDetail("custom detail"))
	s.Equal("custom detail", err.Detail())
	s.Equal("detail test", err.Error())
}

func (s *ErrSuite) TestRetriable() {
	s.False(IsRetryableErr(ErrTypeUnknown))
	s.False(IsRetryableErr(errors.New("not a serde error")))
	s.True(IsRetryableErr(newSerdeError("transient", 2002, true)))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
