package rest

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query builds the backend's filter/sort/populate query strings, e.g.
// filters[instructores][id][$eq]=42&populate=*&sort=orden:asc
type Query struct {
	values url.Values
}

func NewQuery() *Query {
	return &Query{values: make(url.Values)}
}

// FilterRelation adds an equality filter on a relation's id.
func (q *Query) FilterRelation(relation string, id int) *Query {
	q.values.Set(fmt.Sprintf("filters[%s][id][$eq]", relation), strconv.Itoa(id))
	return q
}

// FilterEq adds an equality filter on a scalar field.
func (q *Query) FilterEq(field, value string) *Query {
	q.values.Set(fmt.Sprintf("filters[%s][$eq]", field), value)
	return q
}

func (q *Query) SortAsc(field string) *Query {
	q.values.Set("sort", field+":asc")
	return q
}

func (q *Query) SortDesc(field string) *Query {
	q.values.Set("sort", field+":desc")
	return q
}

// Populate expands relations; "*" for one level, "deep" for the full graph.
func (q *Query) Populate(depth string) *Query {
	q.values.Set("populate", depth)
	return q
}

func (q *Query) Values() url.Values {
	return q.values
}
