// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package reflection

import (
	"reflect"
	"runtime"
	"strings"
)

// GetFunctionName returns the bare name of the given function or method value, e.g. for registering mock calls.
func GetFunctionName(function any) string {
	fullPath := runtime.FuncForPC(reflect.ValueOf(function).Pointer()).Name()
	name := fullPath[strings.LastIndex(fullPath, ".")+1:]

	// method values carry a '-fm' suffix
	name, _, _ = strings.Cut(name, "-")
	return name
}
