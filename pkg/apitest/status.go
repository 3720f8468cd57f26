/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apitest

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/spjmurray/go-util/pkg/set"
)

// StatusSet is the set of status codes a call accepts as success.
type StatusSet struct {
	codes []int
}

// Statuses builds a StatusSet from the given codes, ignoring duplicates.
func Statuses(codes ...int) StatusSet {
	unique := set.New[int](codes...)

	var out []int

	for code := range unique.All() {
		out = append(out, code)
	}

	slices.Sort(out)

	return StatusSet{
		codes: out,
	}
}

var (
	// StatusOK accepts only 200.
	StatusOK = Statuses(http.StatusOK)

	// StatusCreated accepts only 201.
	StatusCreated = Statuses(http.StatusCreated)

	// StatusOKOrCreated accepts 200 and 201.
	StatusOKOrCreated = Statuses(http.StatusOK, http.StatusCreated)
)

// Contains reports whether code is accepted.
func (s StatusSet) Contains(code int) bool {
	_, found := slices.BinarySearch(s.codes, code)

	return found
}

// String renders the set as e.g. "200|201".
func (s StatusSet) String() string {
	out := make([]string, len(s.codes))

	for i, code := range s.codes {
		out[i] = strconv.Itoa(code)
	}

	return strings.Join(out, "|")
}
