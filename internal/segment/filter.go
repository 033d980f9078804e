package segment

// Filter is a compiled, store-native audience predicate: a SQL boolean
// expression over the customers table plus its positional arguments.
type Filter struct {
	Where string
	Args  []interface{}
}

// All matches every customer.
func All() Filter {
	return Filter{Where: "TRUE"}
}
