// Package segment compiles audience rule trees into store-native filters.
//
// A rule tree is a group node {operator: AND|OR, conditions: [...]} whose
// children are either leaf conditions {type: "condition", field, operator,
// value} or nested groups {type: "group", ...}.
package segment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Node is one vertex of a rule tree. Group nodes carry Operator/Conditions,
// leaf nodes carry Field/Operator/Value.
type Node struct {
	Type       string      `json:"type,omitempty"`
	Operator   string      `json:"operator"`
	Field      string      `json:"field,omitempty"`
	Value      interface{} `json:"value,omitempty"`
	Conditions []Node      `json:"conditions,omitempty"`
}

// columns whitelists rule fields and maps them onto customer columns.
var columns = map[string]string{
	"totalSpent":      "total_spent",
	"totalOrderValue": "total_order_value",
	"orderCount":      "order_count",
	"visitCount":      "visit_count",
	"loginCount":      "login_count",
	"lastActive":      "last_active",
}

// Compile translates a raw rule tree into a SQL filter over the customers
// table. An empty tree matches every customer.
func Compile(raw json.RawMessage) (Filter, error) {
	if len(raw) == 0 {
		return All(), nil
	}

	var root Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return Filter{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(root.Conditions) == 0 {
		return All(), nil
	}

	var args []interface{}
	where, err := compileGroup(root, &args)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Where: where, Args: args}, nil
}

func compileGroup(group Node, args *[]interface{}) (string, error) {
	joiner := " AND "
	if strings.EqualFold(group.Operator, "OR") {
		joiner = " OR "
	}

	parts := make([]string, 0, len(group.Conditions))
	for _, node := range group.Conditions {
		var (
			clause string
			err    error
		)
		switch node.Type {
		case "group":
			clause, err = compileGroup(node, args)
		case "condition", "":
			clause, err = compileCondition(node, args)
		default:
			err = fmt.Errorf("unknown rule node type %q", node.Type)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}

	return "(" + strings.Join(parts, joiner) + ")", nil
}

func compileCondition(node Node, args *[]interface{}) (string, error) {
	column, ok := columns[node.Field]
	if !ok {
		return "", fmt.Errorf("unknown rule field %q", node.Field)
	}

	// lastActive rules are expressed in "days ago" and compare against a
	// one-day window rather than an exact timestamp.
	if node.Field == "lastActive" {
		return compileLastActive(node, column, args)
	}

	value, err := numericValue(node.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", node.Field, err)
	}

	var op string
	switch node.Operator {
	case "greaterThan":
		op = ">"
	case "lessThan":
		op = "<"
	case "equals":
		op = "="
	case "notEquals":
		op = "<>"
	default:
		return "", fmt.Errorf("unknown rule operator %q", node.Operator)
	}

	*args = append(*args, value)
	return fmt.Sprintf("%s %s $%d", column, op, len(*args)), nil
}

func compileLastActive(node Node, column string, args *[]interface{}) (string, error) {
	value, err := numericValue(node.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", node.Field, err)
	}
	daysAgo := time.Now().AddDate(0, 0, -int(value))

	switch node.Operator {
	case "equals":
		*args = append(*args, daysAgo)
		from := len(*args)
		*args = append(*args, daysAgo.Add(24*time.Hour))
		to := len(*args)
		return fmt.Sprintf("(%s >= $%d AND %s < $%d)", column, from, column, to), nil
	case "greaterThan":
		// active more recently than N days ago
		*args = append(*args, daysAgo)
		return fmt.Sprintf("%s > $%d", column, len(*args)), nil
	case "lessThan":
		*args = append(*args, daysAgo)
		return fmt.Sprintf("%s < $%d", column, len(*args)), nil
	default:
		return "", fmt.Errorf("unknown rule operator %q for lastActive", node.Operator)
	}
}

func numericValue(v interface{}) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", value)
		}
		return parsed, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
