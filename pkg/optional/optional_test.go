// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package optional_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/pkg/optional"
)

type patch struct {
	Name   optional.Value[string]  `json:"name"`
	Hidden optional.Value[bool]    `json:"hidden"`
	Key    optional.Value[*string] `json:"key"`
}

/*
TestValue_DecodePresence verifies that omitted keys stay absent, empty values
are recorded as supplied and null is ignored for types that cannot hold nil.
*/
func TestValue_DecodePresence(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		nameSet    bool
		nameValue  string
		hiddenSet  bool
		hiddenWant bool
	}{
		{"omitted", `{}`, false, "", false, false},
		{"empty_string", `{"name":""}`, true, "", false, false},
		{"null_string", `{"name":null}`, false, "", false, false},
		{"null_bool", `{"hidden":null}`, false, "", false, false},
		{"both", `{"name":"Ada","hidden":true}`, true, "Ada", true, true},
		{"false_is_set", `{"hidden":false}`, false, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			value, ok := p.Name.Get()
			assert.Equal(t, tt.nameSet, ok)
			assert.Equal(t, tt.nameValue, value)

			hidden, ok := p.Hidden.Get()
			assert.Equal(t, tt.hiddenSet, ok)
			assert.Equal(t, tt.hiddenWant, hidden)
		})
	}
}

func TestValue_TypeMismatch(t *testing.T) {
	var p patch
	assert.Error(t, json.Unmarshal([]byte(`{"hidden":"yes"}`), &p))
}

/*
TestValue_NullClearsPointer verifies an explicit null on a nilable type is a
request to clear the stored value.
*/
func TestValue_NullClearsPointer(t *testing.T) {
	var p patch
	require.NoError(t, json.Unmarshal([]byte(`{"key":null}`), &p))
	key, ok := p.Key.Get()
	assert.True(t, ok)
	assert.Nil(t, key)

	p = patch{}
	require.NoError(t, json.Unmarshal([]byte(`{"key":"pk"}`), &p))
	key, ok = p.Key.Get()
	require.True(t, ok)
	require.NotNil(t, key)
	assert.Equal(t, "pk", *key)

	p = patch{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
	assert.False(t, p.Key.IsSet())
}

func TestValue_Helpers(t *testing.T) {
	assert.False(t, optional.None[int]().IsSet())
	assert.True(t, optional.Some(0).IsSet())

	value, ok := optional.Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, value)
}
