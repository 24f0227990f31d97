/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package utils

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-joined predicates with their positional arguments.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// Add appends a predicate containing zero or more ? placeholders.
func (w *WhereBuilder) Add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// AddIn appends "column IN (?, ?, ...)". An empty list is ignored.
func (w *WhereBuilder) AddIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		w.args = append(w.args, v)
	}
	w.clauses = append(w.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
}

// Apply appends the WHERE clause to baseQuery.
func (w *WhereBuilder) Apply(baseQuery string) string {
	if len(w.clauses) == 0 {
		return baseQuery
	}
	return baseQuery + " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the collected arguments in placeholder order.
func (w *WhereBuilder) Args() []interface{} {
	return w.args
}

// BuildPaginationQuery adds LIMIT and OFFSET clauses to a query.
func BuildPaginationQuery(baseQuery string, limit, offset int) string {
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", baseQuery, limit, offset)
}

// BuildOrderByQuery adds ORDER BY clause to a query. orderBy must come from a whitelist.
func BuildOrderByQuery(baseQuery string, orderBy string, ascending bool) string {
	direction := "ASC"
	if !ascending {
		direction = "DESC"
	}
	return fmt.Sprintf("%s ORDER BY %s %s", baseQuery, orderBy, direction)
}

// BuildInPlaceholders returns "?, ?, ?" for n values.
func BuildInPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
