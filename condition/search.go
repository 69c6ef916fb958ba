// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package condition

import (
	"strconv"
	"strings"

	"github.com/poiesic/yqlguard/core"
)

// FreeText matches documents recalled by the platform's user-input parser for
// a query parameter.
type FreeText struct {
	param      string
	targetHits int
}

// NewFreeText creates a free-text search primitive over the query parameter
// param (with or without the leading '@'). targetHits bounds the candidates
// considered before global ranking; zero omits the hint.
func NewFreeText(param string, targetHits int) (*FreeText, error) {
	if err := core.ValidateParameter("param", param); err != nil {
		return nil, err
	}
	if err := core.ValidateNonNegative("targetHits", targetHits); err != nil {
		return nil, err
	}
	return &FreeText{param: "@" + strings.TrimPrefix(param, "@"), targetHits: targetHits}, nil
}

// TargetHits returns the candidate bound.
func (f *FreeText) TargetHits() int { return f.targetHits }

// Key identifies the primitive in core.Document.Recalled.
func (f *FreeText) Key() string {
	return "userInput(" + f.param + ")"
}

func (f *FreeText) String() string { return renderString(f) }

func (f *FreeText) render(r *renderer) {
	writeHinted(r, f.targetHits, f.Key())
}

// VectorNearest matches the approximate nearest neighbours of a query tensor.
type VectorNearest struct {
	field      string
	param      string
	targetHits int
}

// NewVectorNearest creates a nearest-neighbour primitive comparing the tensor
// attribute field with the query input named param.
func NewVectorNearest(field, param string, targetHits int) (*VectorNearest, error) {
	if err := core.ValidateFieldName("field", field); err != nil {
		return nil, err
	}
	if err := core.ValidateParameter("param", param); err != nil {
		return nil, err
	}
	if err := core.ValidateNonNegative("targetHits", targetHits); err != nil {
		return nil, err
	}
	return &VectorNearest{field: field, param: strings.TrimPrefix(param, "@"), targetHits: targetHits}, nil
}

// Field returns the tensor attribute.
func (v *VectorNearest) Field() string { return v.field }

// Param returns the query input name, which the transport binds as
// input.query(<param>).
func (v *VectorNearest) Param() string { return v.param }

// TargetHits returns the candidate bound.
func (v *VectorNearest) TargetHits() int { return v.targetHits }

// Key identifies the primitive in core.Document.Recalled.
func (v *VectorNearest) Key() string {
	return "nearestNeighbor(" + v.field + ", " + v.param + ")"
}

func (v *VectorNearest) String() string { return renderString(v) }

func (v *VectorNearest) render(r *renderer) {
	writeHinted(r, v.targetHits, v.Key())
}

func writeHinted(r *renderer, targetHits int, call string) {
	if targetHits == 0 {
		r.write(call)
		return
	}
	r.write("({targetHits:" + strconv.Itoa(targetHits) + "}" + call + ")")
}
