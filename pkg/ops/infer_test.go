package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/redisrun/pkg/kv/memory"
)

func TestInferWriteType(t *testing.T) {
	tests := []struct {
		name  string
		tag   string
		value any
		want  ValueType
	}{
		{"explicit string", "string", map[string]any{"a": "b"}, TypeString},
		{"explicit hash", "hash", "anything", TypeHash},
		{"explicit list", "list", "a b c", TypeList},
		{"explicit set", "set", "a b c", TypeSet},
		{"legacy sets alias", "sets", "a b c", TypeSet},
		{"scalar string", TypeAutomatic, "hello", TypeString},
		{"scalar number", TypeAutomatic, 42, TypeString},
		{"scalar float", TypeAutomatic, 3.14, TypeString},
		{"scalar bool", "", true, TypeString},
		{"sequence", TypeAutomatic, []any{"a", "b"}, TypeList},
		{"string sequence", "", []string{"a"}, TypeList},
		{"structured", TypeAutomatic, map[string]any{"f": "v"}, TypeHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inferWriteType(tt.tag, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferWriteTypeErrors(t *testing.T) {
	_, err := inferWriteType("bitmap", "x")
	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "keyType", perr.Name)

	// No inference path leads to the set primitive, and an uninferrable
	// shape is a parameter error rather than a guess.
	_, err = inferWriteType(TypeAutomatic, struct{ X int }{1})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "value", perr.Name)
}

func TestResolveReadType(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "s", "v", 0))
	_, err := store.HSet(ctx, "h", map[string]string{"f": "v"})
	require.NoError(t, err)
	_, err = store.RPush(ctx, "l", "a")
	require.NoError(t, err)
	_, err = store.SAdd(ctx, "st", "m")
	require.NoError(t, err)

	tests := []struct {
		key  string
		want ValueType
	}{
		{"s", TypeString},
		{"h", TypeHash},
		{"l", TypeList},
		{"st", TypeSet},
		{"missing", TypeNone},
	}
	for _, tt := range tests {
		got, err := resolveReadType(ctx, store, tt.key, TypeAutomatic)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "key %s", tt.key)
	}

	// An explicit tag wins over introspection.
	got, err := resolveReadType(ctx, store, "s", "hash")
	require.NoError(t, err)
	assert.Equal(t, TypeHash, got)

	_, err = resolveReadType(ctx, store, "s", "stream")
	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
}

func TestReadValueMissingKeyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	value, found, err := readValue(ctx, store, "ghost", TypeString)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	value, found, err = readValue(ctx, store, "ghost", TypeNone)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestWriteValueString(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	result, err := writeValue(ctx, store, "k", TypeString, "hello", 0, "", false)
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestWriteValueConditional(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	require.NoError(t, store.Set(ctx, "taken", "v1", 0))

	// NX against an existing key is an unsuccessful result, not an error.
	result, err := writeValue(ctx, store, "taken", TypeString, "v2", 0, "nx", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonKeyAlreadyExists, result.Reason)

	got, err := store.Get(ctx, "taken")
	require.NoError(t, err)
	assert.Equal(t, "v1", got, "the stored value must be untouched")

	// XX against a missing key likewise.
	result, err = writeValue(ctx, store, "free", TypeString, "v", 0, "xx", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonKeyDoesNotExist, result.Reason)

	// The same conditions hold for non-string types via an existence
	// precheck.
	result, err = writeValue(ctx, store, "taken", TypeList, "a b", 0, "nx", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonKeyAlreadyExists, result.Reason)

	result, err = writeValue(ctx, store, "free", TypeHash, map[string]any{"f": "v"}, 0, "xx", false)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ReasonKeyDoesNotExist, result.Reason)
}

func TestWriteValueUnknownMode(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	_, err := writeValue(ctx, store, "k", TypeString, "v", 0, "maybe", false)
	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "mode", perr.Name)
}

func TestWriteValueListReplaces(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	_, err := store.RPush(ctx, "l", "old")
	require.NoError(t, err)

	result, err := writeValue(ctx, store, "l", TypeList, []any{"a", "b"}, 0, "", false)
	require.NoError(t, err)
	assert.True(t, result.Success)

	got, err := store.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestWriteValueSetFromTokens(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	_, err := writeValue(ctx, store, "s", TypeSet, "a b c", 0, "", false)
	require.NoError(t, err)

	members, err := store.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, members)
}

func TestWriteValueHashTTL(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	defer store.Close()

	result, err := writeValue(ctx, store, "h", TypeHash, map[string]any{"f": "v"}, time.Minute, "", false)
	require.NoError(t, err)
	assert.True(t, result.Success)

	ttl, err := store.TTL(ctx, "h")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "a positive ttl applies to hashes too")
}

func TestHashFields(t *testing.T) {
	fields, err := hashFields(`{"name":"ada","born":1815}`, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ada", "born": "1815"}, fields)

	// A string that does not parse as a JSON object is kept whole under a
	// single field.
	fields, err = hashFields("not json at all", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"value": "not json at all"}, fields)

	fields, err = hashFields("f1 v1 f2 v2", false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, fields)

	_, err = hashFields("f1 v1 f2", false)
	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
}
