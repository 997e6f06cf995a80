package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewErrorNullsValue(t *testing.T) {
	v := NewError(NewErr(KindTypeError, Location{}, "boom"))
	require.True(t, v.IsError())
	require.Nil(t, v.Value)
}

func TestPropagateFirstErrorWins(t *testing.T) {
	a := NewError(NewErr(KindTypeError, Location{}, "a failed"))
	b := NewError(NewErr(KindRangeError, Location{}, "b failed"))

	result := Binary(OpAdd, a, b, Location{})
	require.True(t, result.IsError())
	require.Equal(t, KindTypeError, result.Err.Kind)

	result = Binary(OpAdd, New(1.0), b, Location{})
	require.True(t, result.IsError())
	require.Equal(t, KindRangeError, result.Err.Kind)
}

func TestBinaryAddSequencesConcatenate(t *testing.T) {
	result := Binary(OpAdd, New([]any{1.0, 2.0}), New([]any{3.0}), Location{})
	require.False(t, result.IsError())
	require.Equal(t, []any{1.0, 2.0, 3.0}, result.Value)
}

func TestBinaryAddTextCoercesNull(t *testing.T) {
	result := Binary(OpAdd, New("hello "), Null(), Location{})
	require.False(t, result.IsError())
	require.Equal(t, "hello ", result.Value)
}

func TestBinaryArithmeticOnNullIsError(t *testing.T) {
	result := Binary(OpSub, New(1.0), Null(), Location{})
	require.True(t, result.IsError())
	require.Equal(t, KindTypeError, result.Err.Kind)
}

func TestBinaryMixedTypeArithmeticFails(t *testing.T) {
	result := Binary(OpMul, New(1.0), New("x"), Location{})
	require.True(t, result.IsError())
	require.Equal(t, KindTypeError, result.Err.Kind)
}

func TestIndexNegativeNormalizes(t *testing.T) {
	arr := New([]any{"a", "b", "c"})
	result := Index(arr, New(-1.0), Location{})
	require.False(t, result.IsError())
	require.Equal(t, "c", result.Value)
}

func TestIndexOutOfBounds(t *testing.T) {
	arr := New([]any{"a", "b", "c"})
	result := Index(arr, New(5.0), Location{})
	require.True(t, result.IsError())
	require.Equal(t, KindRangeError, result.Err.Kind)
}

func TestSliceOmittingEndNegativeOne(t *testing.T) {
	arr := New([]any{"a", "b", "c"})
	end := -1
	result := Slice(arr, nil, &end, Location{})
	require.False(t, result.IsError())
	require.Equal(t, []any{"a", "b"}, result.Value)
}

func TestUsageCopyIsDefensive(t *testing.T) {
	v := VibeValue{Usage: &Usage{InputTokens: 10}}
	first := v.UsageCopy()
	first.InputTokens = 999
	second := v.UsageCopy()
	require.Equal(t, 10, second.InputTokens)
}

func TestMemberReservedFieldsSurviveError(t *testing.T) {
	v := NewError(NewErr(KindTypeError, Location{}, "boom"))
	errField := Member(v, "err", Location{})
	require.Equal(t, "TypeError", errField.Value)
}

func TestCallBoundMethodPushRejectsConst(t *testing.T) {
	recv := New([]any{1.0})
	bm := BoundMethod{Receiver: recv, Name: "push"}
	result, _, err := CallBoundMethod(bm, []VibeValue{New(2.0)}, true, Location{})
	require.Error(t, err)
	require.True(t, result.IsError())
	require.Equal(t, KindConstAssignError, result.Err.Kind)
}

func TestCallBoundMethodPushAppends(t *testing.T) {
	recv := New([]any{1.0})
	bm := BoundMethod{Receiver: recv, Name: "push"}
	result, mutated, err := CallBoundMethod(bm, []VibeValue{New(2.0)}, false, Location{})
	require.NoError(t, err)
	require.Equal(t, []any{1.0, 2.0}, result.Value)
	require.Equal(t, []any{1.0, 2.0}, mutated)
}
