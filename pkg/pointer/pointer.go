// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

/*
Package pointer builds pointers to values.

Nullable columns such as display_name and public_key travel as *string;
these helpers keep the call sites free of temporary variables.
*/
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}
