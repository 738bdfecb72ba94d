package hcl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. For an omitted optional attribute the decoder fills in a
// placeholder expression with a zero-width range.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// ctyValueToInterface converts a cty.Value to a Go value. Numbers become
// float64.
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			elem, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = elem
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			elem, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}

// sweepGrid translates `values = { var = [v1, v2] }`. A scalar is a grid
// of one value.
func sweepGrid(val cty.Value, field string) (config.SweepGrid, error) {
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, config.Errorf(field, "values must be an object of variable lists, got %s", val.Type().FriendlyName())
	}

	grid := make(config.SweepGrid)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		goVal, err := ctyValueToInterface(v)
		if err != nil {
			return nil, config.Errorf(field+"."+name, "%v", err)
		}
		list, ok := goVal.([]any)
		if !ok {
			list = []any{goVal}
		}
		grid[name] = list
	}
	return grid, nil
}

// stringList evaluates an optional list of strings. An omitted attribute
// gives nil, an empty list a non-nil empty slice.
func stringList(ctx context.Context, expr hcl.Expression, field string) ([]string, error) {
	if !isExprDefined(ctx, expr, field) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, config.Errorf(field, "%s", diags.Error())
	}
	val, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, config.Errorf(field, "expected a list of strings: %v", err)
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			return nil, config.Errorf(field, "null entry")
		}
		out = append(out, v.AsString())
	}
	return out, nil
}

// intList evaluates an optional list of whole numbers.
func intList(ctx context.Context, expr hcl.Expression, field string) ([]int, error) {
	if !isExprDefined(ctx, expr, field) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, config.Errorf(field, "%s", diags.Error())
	}
	val, err := convert.Convert(val, cty.List(cty.Number))
	if err != nil {
		return nil, config.Errorf(field, "expected a list of numbers: %v", err)
	}

	out := []int{}
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		n, acc := v.AsBigFloat().Int64()
		if acc != big.Exact {
			return nil, config.Errorf(field, "%s is not a whole number", v.AsBigFloat().String())
		}
		out = append(out, int(n))
	}
	return out, nil
}

type elemVarValue struct {
	Name  string `cty:"name"`
	Block int    `cty:"block"`
}

var elemVarType = cty.List(cty.Object(map[string]cty.Type{
	"name":  cty.String,
	"block": cty.Number,
}))

// elemVarList evaluates `elem_vars = [{ name = "...", block = 1 }, ...]`.
func elemVarList(ctx context.Context, expr hcl.Expression, field string) ([]config.ElemVarSetting, error) {
	if !isExprDefined(ctx, expr, field) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, config.Errorf(field, "%s", diags.Error())
	}
	val, err := convert.Convert(val, elemVarType)
	if err != nil {
		return nil, config.Errorf(field, "expected a list of {name, block} objects: %v", err)
	}

	var raw []elemVarValue
	if err := gocty.FromCtyValue(val, &raw); err != nil {
		return nil, config.Errorf(field, "%v", err)
	}
	out := make([]config.ElemVarSetting, len(raw))
	for i, ev := range raw {
		out[i] = config.ElemVarSetting{Name: ev.Name, Block: ev.Block}
	}
	return out, nil
}
