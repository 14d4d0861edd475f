/*
Copyright © 2024 the cuestas authors.
This file is part of cuestas.

cuestas is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cuestas is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cuestas.  If not, see <http://www.gnu.org/licenses/>.
*/

package cuestas

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
)

// deriveFunctions are available in derived product expressions.
var deriveFunctions = map[string]govaluate.ExpressionFunction{
	"sqrt":  unaryFunc("sqrt", math.Sqrt),
	"abs":   unaryFunc("abs", math.Abs),
	"exp":   unaryFunc("exp", math.Exp),
	"log":   unaryFunc("log", math.Log),
	"log10": unaryFunc("log10", math.Log10),
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("cuestas: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("cuestas: argument to '%s' is %T, not a number", name, arg[0])
		}
		return f(v), nil
	}
}

// ExpressionVars returns the distinct grid names referenced by expr.
func ExpressionVars(expr string) ([]string, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, deriveFunctions)
	if err != nil {
		return nil, fmt.Errorf("cuestas: parsing expression %q: %v", expr, err)
	}
	seen := make(map[string]bool)
	var o []string
	for _, v := range e.Vars() {
		if !seen[v] {
			seen[v] = true
			o = append(o, v)
		}
	}
	sort.Strings(o)
	return o, nil
}

// Derive evaluates expr at every node, with the names in expr bound to
// the grids of the same name, for example
// "100 * basal_layer_thickness / icethk". All referenced grids must be
// co-registered. A NaN operand, or a result that is infinite (such as
// division by zero), gives NaN. The inputs are not modified.
func Derive(expr string, grids map[string]*Grid) (*Grid, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, deriveFunctions)
	if err != nil {
		return nil, fmt.Errorf("cuestas: parsing expression %q: %v", expr, err)
	}
	vars, err := ExpressionVars(expr)
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("%w: expression %q does not reference any grid", ErrInvalidParams, expr)
	}
	operands := make([]*Grid, len(vars))
	for i, v := range vars {
		g, ok := grids[v]
		if !ok || g == nil {
			return nil, fmt.Errorf("%w: expression %q references unknown grid %q", ErrInvalidParams, expr, v)
		}
		if i > 0 && !operands[0].CoRegistered(g) {
			return nil, fmt.Errorf("%w: %q and %q", ErrNotCoRegistered, vars[0], v)
		}
		operands[i] = g
	}

	o := operands[0].like()
	params := make(map[string]interface{}, len(vars))
	for k := range o.Data.Elements {
		missing := false
		for i, v := range vars {
			x := operands[i].Data.Elements[k]
			if math.IsNaN(x) {
				missing = true
				break
			}
			params[v] = x
		}
		if missing {
			continue
		}
		r, err := e.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("cuestas: evaluating %q: %v", expr, err)
		}
		f, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("cuestas: expression %q evaluates to %T, not a number", expr, r)
		}
		if !math.IsInf(f, 0) {
			o.Data.Elements[k] = f
		}
	}
	return o, nil
}
