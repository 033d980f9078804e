package segment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileEmptyRulesMatchEveryone(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`{}`), json.RawMessage(`{"operator":"AND","conditions":[]}`)} {
		filter, err := Compile(raw)
		require.NoError(t, err)
		assert.Equal(t, "TRUE", filter.Where)
		assert.Empty(t, filter.Args)
	}
}

func TestCompileSingleCondition(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "totalSpent", "operator": "greaterThan", "value": 5000}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "(total_spent > $1)", filter.Where)
	require.Len(t, filter.Args, 1)
	assert.Equal(t, float64(5000), filter.Args[0])
}

func TestCompileOrGroup(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "OR",
		"conditions": [
			{"type": "condition", "field": "orderCount", "operator": "lessThan", "value": 3},
			{"type": "condition", "field": "visitCount", "operator": "equals", "value": 10}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "(order_count < $1 OR visit_count = $2)", filter.Where)
	assert.Equal(t, []interface{}{float64(3), float64(10)}, filter.Args)
}

func TestCompileNestedGroup(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "totalSpent", "operator": "greaterThan", "value": 1000},
			{"type": "group", "operator": "OR", "conditions": [
				{"type": "condition", "field": "loginCount", "operator": "greaterThan", "value": 5},
				{"type": "condition", "field": "visitCount", "operator": "greaterThan", "value": 20}
			]}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "(total_spent > $1 AND (login_count > $2 OR visit_count > $3))", filter.Where)
	assert.Len(t, filter.Args, 3)
}

func TestCompileStringNumericValue(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "orderCount", "operator": "notEquals", "value": "7"}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "(order_count <> $1)", filter.Where)
	assert.Equal(t, float64(7), filter.Args[0])
}

func TestCompileLastActiveEqualsUsesDayWindow(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "lastActive", "operator": "equals", "value": 30}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "((last_active >= $1 AND last_active < $2))", filter.Where)
	require.Len(t, filter.Args, 2)

	from, ok := filter.Args[0].(time.Time)
	require.True(t, ok)
	to, ok := filter.Args[1].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, to.Sub(from))
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), from, time.Minute)
}

func TestCompileLastActiveGreaterThan(t *testing.T) {
	filter, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "lastActive", "operator": "greaterThan", "value": 7}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "(last_active > $1)", filter.Where)
}

func TestCompileRejectsUnknownField(t *testing.T) {
	_, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "password", "operator": "equals", "value": 1}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule field")
}

func TestCompileRejectsUnknownOperator(t *testing.T) {
	_, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "orderCount", "operator": "like", "value": 1}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rule operator")
}

func TestCompileRejectsMissingValue(t *testing.T) {
	_, err := Compile(json.RawMessage(`{
		"operator": "AND",
		"conditions": [
			{"type": "condition", "field": "orderCount", "operator": "equals"}
		]
	}`))
	require.Error(t, err)
}

func TestCompileRejectsMalformedJSON(t *testing.T) {
	_, err := Compile(json.RawMessage(`{"operator":`))
	require.Error(t, err)
}
