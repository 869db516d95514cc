package filter

import (
	"fmt"
	"strings"

	"github.com/vietddude/explorer/internal/core/domain"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// TransferDeclarations returns the identifiers accepted in a transfer filter expression.
func TransferDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("from", filtering.TypeString),
		filtering.DeclareIdent("to", filtering.TypeString),
		filtering.DeclareIdent("block", filtering.TypeInt),
		filtering.DeclareIdent("tx_hash", filtering.TypeString),
	)
}

// Parse reads an AIP-160 expression such as
//
//	from = "0xab..." AND block >= 19000000 AND block < 19100000
//
// into base. Only conjunctions of comparisons are supported. Addresses and hashes are
// validated; any failure is a ValidationError on the "filter" field.
func Parse(base TransferFilter, s string) (TransferFilter, error) {
	if strings.TrimSpace(s) == "" {
		return base, nil
	}

	decls, err := TransferDeclarations()
	if err != nil {
		return base, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(s, decls)
	if err != nil {
		return base, invalid(err.Error())
	}

	out := base
	if err := apply(&out, parsed.CheckedExpr.GetExpr()); err != nil {
		return base, err
	}
	if out.FromBlock != nil && out.ToBlock != nil && *out.FromBlock > *out.ToBlock {
		return base, invalid("block range is empty")
	}
	return out, nil
}

func invalid(reason string) error {
	return &domain.ValidationError{Field: "filter", Reason: reason}
}

func apply(f *TransferFilter, e *expr.Expr) error {
	if e == nil {
		return nil
	}
	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return invalid(fmt.Sprintf("unsupported expression %T", e.ExprKind))
	}

	switch fn := call.CallExpr.Function; fn {
	case "_&&_", "AND":
		for _, arg := range call.CallExpr.Args {
			if err := apply(f, arg); err != nil {
				return err
			}
		}
		return nil
	case "_==_", "=":
		return applyComparison(f, call.CallExpr.Args, "=")
	case "_<_", "<":
		return applyComparison(f, call.CallExpr.Args, "<")
	case "_<=_", "<=":
		return applyComparison(f, call.CallExpr.Args, "<=")
	case "_>_", ">":
		return applyComparison(f, call.CallExpr.Args, ">")
	case "_>=_", ">=":
		return applyComparison(f, call.CallExpr.Args, ">=")
	default:
		return invalid(fmt.Sprintf("unsupported operator %s", fn))
	}
}

func applyComparison(f *TransferFilter, args []*expr.Expr, op string) error {
	if len(args) != 2 {
		return invalid("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return invalid("left side of a comparison must be a field")
	}
	c, ok := args[1].GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return invalid("right side of a comparison must be a literal")
	}

	field := ident.IdentExpr.GetName()
	switch field {
	case "from", "to", "tx_hash":
		if op != "=" {
			return invalid(fmt.Sprintf("%s only supports =", field))
		}
		sv, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
		if !ok {
			return invalid(fmt.Sprintf("%s expects a string", field))
		}
		return applyString(f, field, sv.StringValue)
	case "block":
		iv, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_Int64Value)
		if !ok {
			return invalid("block expects an integer")
		}
		return applyBlock(f, op, iv.Int64Value)
	default:
		return invalid(fmt.Sprintf("unknown field %s", field))
	}
}

func applyString(f *TransferFilter, field, v string) error {
	switch field {
	case "tx_hash":
		h, err := domain.ParseTxHash("filter", v)
		if err != nil {
			return err
		}
		if f.TxHash != nil && *f.TxHash != h {
			return invalid("conflicting tx_hash")
		}
		f.TxHash = &h
	default:
		addr, err := domain.ParseAddress("filter", v)
		if err != nil {
			return err
		}
		target := &f.From
		if field == "to" {
			target = &f.To
		}
		if *target != nil && **target != addr {
			return invalid("conflicting " + field)
		}
		*target = &addr
	}
	return nil
}

func applyBlock(f *TransferFilter, op string, v int64) error {
	if v < 0 {
		return invalid("block must not be negative")
	}
	n := uint64(v)

	switch op {
	case "=":
		raiseLower(f, n)
		lowerUpper(f, n)
	case ">=":
		raiseLower(f, n)
	case ">":
		raiseLower(f, n+1)
	case "<=":
		lowerUpper(f, n)
	case "<":
		if n == 0 {
			return invalid("block range is empty")
		}
		lowerUpper(f, n-1)
	}
	return nil
}

func raiseLower(f *TransferFilter, n uint64) {
	if f.FromBlock == nil || n > *f.FromBlock {
		f.FromBlock = &n
	}
}

func lowerUpper(f *TransferFilter, n uint64) {
	if f.ToBlock == nil || n < *f.ToBlock {
		f.ToBlock = &n
	}
}
