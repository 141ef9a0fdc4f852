// Package query turns a caller's visibility scope and list filters into SQL.
//
// The scope restriction and every filter are AND-conjoined into a single predicate, so a
// listing can never return a row the caller's scope excludes. Match is the in-memory twin
// of the same predicate.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"docrepo/internal/model"
	"docrepo/internal/policy"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxOffset bounds (page-1)*per_page so the OFFSET fits every backend's integer type.
	MaxOffset = math.MaxInt32
)

// Dialect selects the placeholder style.
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders.
	Postgres Dialect = iota
	// SQLite uses ? placeholders.
	SQLite
)

// Filter holds the optional caller-supplied list filters. Zero values impose no constraint.
type Filter struct {
	Search       string
	CategoryID   int64
	DepartmentID int64
}

// keyword returns the lower-cased, trimmed search term.
func (f Filter) keyword() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}

// Page is a 1-based page request.
type Page struct {
	Page    int
	PerPage int
}

// MaxPage is the last page whose offset stays within MaxOffset for perPage (normalized first).
func MaxPage(perPage int) int {
	perPage = Page{PerPage: perPage}.Normalize().PerPage
	return MaxOffset/perPage + 1
}

// Normalize clamps PerPage to 1..MaxPerPage (0 means DefaultPerPage) and Page to 1..MaxPage.
func (p Page) Normalize() Page {
	switch {
	case p.PerPage == 0:
		p.PerPage = DefaultPerPage
	case p.PerPage < 1:
		p.PerPage = 1
	case p.PerPage > MaxPerPage:
		p.PerPage = MaxPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if last := MaxOffset/p.PerPage + 1; p.Page > last {
		p.Page = last
	}
	return p
}

// Offset returns the row offset of the (normalized) page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PerPage
}

// Statement is a built, parameterized list query fragment.
type Statement struct {
	where   string
	orderBy string
	page    Page
	args    []any
	dialect Dialect
}

// Where returns the WHERE clause (with leading space) or "" when nothing is restricted.
func (s Statement) Where() string { return s.where }

// Args returns the predicate arguments, in placeholder order.
func (s Statement) Args() []any { return append([]any(nil), s.args...) }

// Page returns the normalized page the statement was built for.
func (s Statement) Page() Page { return s.page }

// CountSQL returns a COUNT(*) query over from, restricted by the same predicate as SelectSQL.
func (s Statement) CountSQL(from string) (string, []any) {
	return "SELECT COUNT(*) FROM " + from + s.where, s.Args()
}

// SelectSQL returns the paged select of columns over from, newest first.
func (s Statement) SelectSQL(columns, from string) (string, []any) {
	args := s.Args()
	limit := s.dialect.Placeholder(len(args) + 1)
	offset := s.dialect.Placeholder(len(args) + 2)
	args = append(args, s.page.PerPage, s.page.Offset())
	q := "SELECT " + columns + " FROM " + from + s.where + s.orderBy + " LIMIT " + limit + " OFFSET " + offset
	return q, args
}

// Build assembles the statement for scope, filter and page. Columns are qualified with
// alias (e.g. "d") when alias is non-empty.
func Build(d Dialect, alias string, scope policy.Scope, f Filter, p Page) Statement {
	b := &builder{dialect: d, alias: alias}
	b.scope(scope)
	b.filter(f)

	st := Statement{
		orderBy: fmt.Sprintf(" ORDER BY %s DESC, %s DESC", b.col("created_at"), b.col("id")),
		page:    p.Normalize(),
		args:    b.args,
		dialect: d,
	}
	if len(b.clauses) > 0 {
		st.where = " WHERE " + strings.Join(b.clauses, " AND ")
	}
	return st
}

type builder struct {
	dialect Dialect
	alias   string
	clauses []string
	args    []any
}

func (b *builder) col(name string) string {
	if b.alias == "" {
		return name
	}
	return b.alias + "." + name
}

// arg records v and returns its placeholder.
func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *builder) scope(s policy.Scope) {
	switch s := s.(type) {
	case policy.Unrestricted:
	case policy.PublicOnly:
		b.clauses = append(b.clauses, fmt.Sprintf("(%s = %s OR %s = %s)",
			b.col("access_level"), b.arg(string(model.AccessPublic)),
			b.col("uploaded_by"), b.arg(s.OwnerID),
		))
	case policy.OwnPublicDepartmentOrOwned:
		b.clauses = append(b.clauses, fmt.Sprintf("(%s = %s OR (%s = %s AND %s = %s) OR %s = %s)",
			b.col("access_level"), b.arg(string(model.AccessPublic)),
			b.col("access_level"), b.arg(string(model.AccessDepartment)),
			b.col("department_id"), b.arg(s.DepartmentID),
			b.col("uploaded_by"), b.arg(s.UserID),
		))
	default:
		// Unknown or nil scope admits nothing.
		b.clauses = append(b.clauses, "1 = 0")
	}
}

func (b *builder) filter(f Filter) {
	if kw := f.keyword(); kw != "" {
		pattern := "%" + escapeLike(kw) + "%"
		b.clauses = append(b.clauses, fmt.Sprintf(`(LOWER(%s) LIKE %s ESCAPE '\' OR LOWER(COALESCE(%s, '')) LIKE %s ESCAPE '\')`,
			b.col("title"), b.arg(pattern),
			b.col("description"), b.arg(pattern),
		))
	}
	if f.CategoryID != 0 {
		b.clauses = append(b.clauses, fmt.Sprintf("%s = %s", b.col("category_id"), b.arg(f.CategoryID)))
	}
	if f.DepartmentID != 0 {
		b.clauses = append(b.clauses, fmt.Sprintf("%s = %s", b.col("department_id"), b.arg(f.DepartmentID)))
	}
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Rebind rewrites the ? placeholders of a fixed statement into the dialect's style.
func (d Dialect) Rebind(q string) string {
	if d == SQLite {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString(d.Placeholder(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// predicate is the in-memory equivalent of the WHERE clause Build produces for scope and f.
func predicate(scope policy.Scope, f Filter) func(model.Document) bool {
	kw := f.keyword()
	return func(d model.Document) bool {
		if scope == nil || !scope.Contains(d) {
			return false
		}
		if kw != "" {
			inTitle := strings.Contains(strings.ToLower(d.Title), kw)
			inDesc := d.Description != nil && strings.Contains(strings.ToLower(*d.Description), kw)
			if !inTitle && !inDesc {
				return false
			}
		}
		if f.CategoryID != 0 && d.CategoryID != f.CategoryID {
			return false
		}
		if f.DepartmentID != 0 && d.DepartmentID != f.DepartmentID {
			return false
		}
		return true
	}
}
